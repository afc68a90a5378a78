package serverutils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalUserID = "user_id"
	LocalOrgID  = "org_id"
)

var ErrMissingOrg = errors.New("token carries no organization")

// Identity is what the API needs from an access token.
type Identity struct {
	UserId string
	OrgId  uuid.UUID
}

// ParseToken verifies an HS256 token and extracts the user and organization claims.
func ParseToken(secret, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	userId, _ := claims["user_id"].(string)
	orgStr, _ := claims["org_id"].(string)
	orgId, err := uuid.Parse(orgStr)
	if err != nil {
		return nil, ErrMissingOrg
	}
	return &Identity{UserId: userId, OrgId: orgId}, nil
}

func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		identity, err := ParseToken(secret, authHeader[7:])
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals(LocalUserID, identity.UserId)
		ctx.Locals(LocalOrgID, identity.OrgId)
		return ctx.Next()
	}
}

// OrgID returns the organization set by the JWT middleware.
func OrgID(ctx *fiber.Ctx) (uuid.UUID, error) {
	orgId, ok := ctx.Locals(LocalOrgID).(uuid.UUID)
	if !ok || orgId == uuid.Nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return orgId, nil
}

// UUIDParam parses a route parameter, answering 400 when it is not a UUID.
func UUIDParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}
