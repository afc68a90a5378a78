package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// StatusMapper translates a domain error into an HTTP status. Zero means "unknown".
type StatusMapper func(err error) int

// ErrorHandlerMiddleware turns errors returned by handlers into the response envelope.
// *fiber.Error keeps its own code, validation failures become 400 with field details and
// everything else goes through statusOf, falling back to 500.
func ErrorHandlerMiddleware(statusOf StatusMapper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponseWithData(fiber.StatusBadRequest, "Validation failed", verr.Fields))
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return ctx.Status(ferr.Code).JSON(ErrorResponse(ferr.Code, ferr.Message))
		}

		code := fiber.StatusInternalServerError
		if statusOf != nil {
			if mapped := statusOf(err); mapped != 0 {
				code = mapped
			}
		}
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
