package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
)

// StockHandler mutaciones y consultas de la matriz de stock (protegido).
type StockHandler struct {
	uc *stock.LedgerUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *stock.LedgerUseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// Reserve godoc
// @Summary      Reservar stock de una variante
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del producto"
// @Param        body  body  dto.MutateStockRequest   true  "size, color, quantity, idempotency_key opcional"
// @Success      200   {object}  dto.StockMutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      504   {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/reserve [post]
func (h *StockHandler) Reserve(c *fiber.Ctx) error {
	return h.mutate(c, h.uc.ReserveStock)
}

// Restore godoc
// @Summary      Devolver stock a una variante
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del producto"
// @Param        body  body  dto.MutateStockRequest  true  "size, color, quantity, idempotency_key opcional"
// @Success      200   {object}  dto.StockMutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/restore [post]
func (h *StockHandler) Restore(c *fiber.Ctx) error {
	return h.mutate(c, h.uc.RestoreStock)
}

// Adjust godoc
// @Summary      Fijar la cantidad absoluta de una variante
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del producto"
// @Param        body  body  dto.AdjustStockRequest  true  "size, color, quantity"
// @Success      200   {object}  dto.StockMutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/adjust [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "cuerpo inválido")
	}
	productID := c.Params("id")
	qty, err := h.uc.AdjustStock(c.UserContext(), stock.MutationInput{
		ProductID: productID,
		Size:      in.Size,
		Color:     in.Color,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		Actor:     GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockMutationResponse{ProductID: productID, Size: in.Size, Color: in.Color, NewQuantity: qty})
}

func (h *StockHandler) mutate(c *fiber.Ctx, op func(context.Context, stock.MutationInput) (int, error)) error {
	var in dto.MutateStockRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "cuerpo inválido")
	}
	if key := c.Get("Idempotency-Key"); key != "" && in.IdempotencyKey == "" {
		in.IdempotencyKey = key
	}
	productID := c.Params("id")
	qty, err := op(c.UserContext(), stock.MutationInput{
		ProductID:      productID,
		Size:           in.Size,
		Color:          in.Color,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
		Actor:          GetUserID(c),
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockMutationResponse{ProductID: productID, Size: in.Size, Color: in.Color, NewQuantity: qty})
}

// Availability godoc
// @Summary      Disponibilidad derivada de la matriz
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del producto"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/availability [get]
func (h *StockHandler) Availability(c *fiber.Ctx) error {
	out, err := h.uc.GetAvailability(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Events godoc
// @Summary      Log de auditoría de stock del producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        from    query  string  false  "RFC3339"
// @Param        to      query  string  false  "RFC3339"
// @Param        limit   query  int     false  "máx. 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/events [get]
func (h *StockHandler) Events(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_QUERY", "paginación inválida")
	}
	page.DefaultPage()
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_QUERY", "from debe ser RFC3339")
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_QUERY", "to debe ser RFC3339")
	}
	list, err := h.uc.ListEvents(c.UserContext(), c.Params("id"), from, to, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"events": list,
		"page":   dto.NewPageResponse(page, len(list)),
	})
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
