package controller

import (
	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/pkg/serverutils"
	"rfp-answer-engine/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISettingsController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetClusteringSettings(ctx *fiber.Ctx) error
	UpdateClusteringSettings(ctx *fiber.Ctx) error
}

type settingsController struct {
	service service.ISettingsService
}

func NewSettingsController(service service.ISettingsService) ISettingsController {
	return &settingsController{service: service}
}

func (c *settingsController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/settings/v1")
	h.Use(auth)
	h.Get("/clustering", c.GetClusteringSettings)
	h.Put("/clustering", c.UpdateClusteringSettings)
}

func (c *settingsController) GetClusteringSettings(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetClusteringSettings(ctx.UserContext(), orgId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get clustering settings", res))
}

func (c *settingsController) UpdateClusteringSettings(ctx *fiber.Ctx) error {
	orgId, err := serverutils.OrgID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateClusteringSettingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.OrgId = orgId

	res, err := c.service.UpdateClusteringSettings(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update clustering settings", res))
}
