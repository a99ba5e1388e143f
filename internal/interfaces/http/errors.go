package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// writeError traduce errores del ledger a código HTTP + dto.ErrorResponse.
// ErrOutcomeUnknown se evalúa antes que ErrRepositoryUnavailable porque lo envuelve.
func writeError(c *fiber.Ctx, err error) error {
	var ise *domain.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		return c.Status(fiber.StatusConflict).JSON(dto.InsufficientStockResponse{
			Code:      "INSUFFICIENT_STOCK",
			Message:   ise.Error(),
			Size:      ise.Size,
			Color:     ise.Color,
			Requested: ise.Requested,
			Available: ise.Available,
		})
	case errors.Is(err, domain.ErrInsufficientStock):
		return errorJSON(c, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente")
	case errors.Is(err, domain.ErrUnknownVariant):
		return errorJSON(c, fiber.StatusUnprocessableEntity, "UNKNOWN_VARIANT", "la talla/color no está declarada en el producto")
	case errors.Is(err, domain.ErrInvalidQuantity):
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_QUANTITY", "la cantidad debe ser un entero >= 0")
	case errors.Is(err, domain.ErrInvalidInput):
		return errorJSON(c, fiber.StatusBadRequest, "VALIDATION", "datos inválidos")
	case errors.Is(err, domain.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND", "producto no encontrado")
	case errors.Is(err, domain.ErrDuplicate):
		return errorJSON(c, fiber.StatusConflict, "DUPLICATE", "el producto ya tiene matriz de stock")
	case errors.Is(err, domain.ErrVersionConflict):
		return errorJSON(c, fiber.StatusConflict, "VERSION_CONFLICT", "el stock cambió concurrentemente, intente de nuevo")
	case errors.Is(err, domain.ErrOutcomeUnknown):
		return errorJSON(c, fiber.StatusGatewayTimeout, "OUTCOME_UNKNOWN", "no se sabe si la operación se aplicó; consulte la disponibilidad antes de reintentar")
	case errors.Is(err, domain.ErrRepositoryUnavailable):
		return errorJSON(c, fiber.StatusServiceUnavailable, "REPOSITORY_UNAVAILABLE", "almacenamiento no disponible, intente más tarde")
	default:
		return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func errorJSON(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
