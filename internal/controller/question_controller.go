package controller

import (
	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/pkg/serverutils"
	"rfp-answer-engine/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IQuestionController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	ImportQuestions(ctx *fiber.Ctx) error
	ListQuestions(ctx *fiber.Ctx) error
}

type questionController struct {
	service service.IQuestionService
}

func NewQuestionController(service service.IQuestionService) IQuestionController {
	return &questionController{service: service}
}

func (c *questionController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/projects/v1/:projectId/questions")
	h.Post("", auth, c.ImportQuestions)
	h.Get("", auth, c.ListQuestions)
}

func (c *questionController) ImportQuestions(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}

	var req dto.ImportQuestionsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.ProjectId = projectId
	req.OrgId = orgId

	res, err := c.service.ImportQuestions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success import questions", res))
}

func (c *questionController) ListQuestions(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}

	res, err := c.service.ListQuestions(ctx.UserContext(), projectId, orgId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list questions", res))
}
