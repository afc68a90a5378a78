package controller

import (
	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/pkg/serverutils"
	"rfp-answer-engine/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	IngestDocument(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	service service.IKnowledgeService
}

func NewKnowledgeController(service service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{service: service}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/knowledge/v1")
	h.Use(auth)
	h.Post("/documents", c.IngestDocument)
}

func (c *knowledgeController) IngestDocument(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}

	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.OrgId = orgId

	res, err := c.service.IngestDocument(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success ingest document", res))
}
