package serverutils

import (
	"errors"

	"sales-copilot-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors to HTTP responses in one
// place so controllers can just return errors. Anything outside the
// caller-visible taxonomy collapses to a generic 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case apperror.CodeValidation:
				return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(400, appErr.Message))
			case apperror.CodeNotFound:
				return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(404, appErr.Message))
			case apperror.CodeTerminalState, apperror.CodeCycleInFlight:
				return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse(409, appErr.Message))
			}
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "Internal server error"))
	}
}
