package controller

import (
	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/pkg/serverutils"
	"rfp-answer-engine/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPipelineController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	RunAnswerGeneration(ctx *fiber.Ctx) error
	GetLatestRun(ctx *fiber.Ctx) error
}

type pipelineController struct {
	service service.IPipelineService
}

func NewPipelineController(service service.IPipelineService) IPipelineController {
	return &pipelineController{service: service}
}

func (c *pipelineController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/projects/v1/:projectId/runs")
	h.Post("", auth, c.RunAnswerGeneration)
	h.Get("/latest", auth, c.GetLatestRun)
}

// RunAnswerGeneration queues a run and answers 202; progress arrives over the websocket or
// by polling the latest run.
func (c *pipelineController) RunAnswerGeneration(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}

	var req dto.RunAnswerGenerationRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.ProjectId = projectId
	req.OrgId = orgId

	res, err := c.service.RunAnswerGeneration(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Pipeline run queued", res))
}

func (c *pipelineController) GetLatestRun(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}

	res, err := c.service.GetPipelineRun(ctx.UserContext(), projectId, orgId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get pipeline run", res))
}
