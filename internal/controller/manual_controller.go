package controller

import (
	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/pkg/serverutils"
	"sales-copilot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IManualController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
}

type manualController struct {
	manualService service.IManualService
}

func NewManualController(manualService service.IManualService) IManualController {
	return &manualController{
		manualService: manualService,
	}
}

func (c *manualController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/manual/v1")
	h.Post("ingest", c.Ingest)
	h.Post("search", c.Search)
}

func (c *manualController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestManualRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.manualService.Ingest(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ingest manual", res))
}

func (c *manualController) Search(ctx *fiber.Ctx) error {
	var req dto.SearchManualRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.manualService.Search(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search manual", res))
}
