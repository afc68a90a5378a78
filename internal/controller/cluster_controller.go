package controller

import (
	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/pkg/serverutils"
	"rfp-answer-engine/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IClusterController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	ClusterQuestions(ctx *fiber.Ctx) error
	GetClusters(ctx *fiber.Ctx) error
	FindSimilarQuestions(ctx *fiber.Ctx) error
	ApplyClusterAnswer(ctx *fiber.Ctx) error
}

type clusterController struct {
	service service.IClusterService
}

func NewClusterController(service service.IClusterService) IClusterController {
	return &clusterController{service: service}
}

func (c *clusterController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/projects/v1/:projectId")
	h.Post("/cluster", auth, c.ClusterQuestions)
	h.Get("/clusters", auth, c.GetClusters)
	h.Get("/questions/:questionId/similar", auth, c.FindSimilarQuestions)
	h.Post("/apply-answer", auth, c.ApplyClusterAnswer)
}

func (c *clusterController) ClusterQuestions(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}

	var req dto.ClusterQuestionsRequest
	// an empty body means "cluster with defaults"
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	req.ProjectId = projectId
	req.OrgId = orgId

	res, err := c.service.ClusterQuestions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success cluster questions", res))
}

func (c *clusterController) GetClusters(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}

	res, err := c.service.GetClusters(ctx.UserContext(), projectId, orgId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get clusters", res))
}

func (c *clusterController) FindSimilarQuestions(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}
	questionId, err := serverutils.UUIDParam(ctx, "questionId")
	if err != nil {
		return err
	}

	var req dto.FindSimilarQuestionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.ProjectId = projectId
	req.OrgId = orgId
	req.QuestionId = questionId

	res, err := c.service.FindSimilarQuestions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success find similar questions", res))
}

func (c *clusterController) ApplyClusterAnswer(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}
	projectId, err := serverutils.UUIDParam(ctx, "projectId")
	if err != nil {
		return err
	}

	var req dto.ApplyClusterAnswerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.ProjectId = projectId

	res, err := c.service.ApplyClusterAnswer(ctx.UserContext(), &req, orgId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success apply cluster answer", res))
}
