package controller

import (
	"sales-copilot-be/internal/dto"
	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/pkg/serverutils"
	"sales-copilot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICopilotController interface {
	RegisterRoutes(r fiber.Router)
	Update(ctx *fiber.Ctx) error
}

type copilotController struct {
	copilotService service.ICopilotService
}

func NewCopilotController(copilotService service.ICopilotService) ICopilotController {
	return &copilotController{
		copilotService: copilotService,
	}
}

func (c *copilotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/copilot/v1")
	h.Post("update", c.Update)
}

func (c *copilotController) Update(ctx *fiber.Ctx) error {
	var req dto.UpdateCopilotRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.copilotService.Update(ctx.Context(), &req)
	if err != nil {
		return err
	}

	// A degraded payload still carries usable questions, but the caller
	// must know the reasoning backend is out of quota.
	if res.Degraded {
		return ctx.Status(fiber.StatusPaymentRequired).JSON(serverutils.Response[*entity.Suggestion]{
			Code:    402,
			Message: "Reasoning quota exceeded, returning fallback suggestions",
			Data:    res,
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update suggestions", res))
}
