package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
)

// CatalogHandler alta, edición de variantes y baja de la matriz de un producto.
type CatalogHandler struct {
	uc *stock.LedgerUseCase
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *stock.LedgerUseCase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// Create godoc
// @Summary      Crear la matriz de stock de un producto
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductStockRequest  true  "product_id, sizes, colors, seed_quantity, initial"
// @Success      201   {object}  dto.AvailabilityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/stock/products [post]
func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductStockRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.CreateProduct(c.UserContext(), stock.CreateProductInput{
		ProductID:    in.ProductID,
		Sizes:        in.Sizes,
		Colors:       in.Colors,
		SeedQuantity: in.SeedQuantity,
		Initial:      in.Initial,
		Actor:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateVariants godoc
// @Summary      Reemplazar tallas y colores declarados
// @Description  Los pares eliminados se podan de la matriz y sus registros por variante se borran.
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del producto"
// @Param        body  body  dto.UpdateVariantsRequest  true  "sizes, colors, reason"
// @Success      200   {object}  dto.UpdateVariantsResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/variants [put]
func (h *CatalogHandler) UpdateVariants(c *fiber.Ctx) error {
	var in dto.UpdateVariantsRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.UpdateVariants(c.UserContext(), stock.UpdateVariantsInput{
		ProductID: c.Params("id"),
		Sizes:     in.Sizes,
		Colors:    in.Colors,
		Reason:    in.Reason,
		Actor:     GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetForcedOutOfStock godoc
// @Summary      Marcar o desmarcar "agotado forzado"
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID del producto"
// @Param        body  body  dto.ForcedOutOfStockRequest  true  "forced"
// @Success      200   {object}  dto.AvailabilityResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/forced-out-of-stock [put]
func (h *CatalogHandler) SetForcedOutOfStock(c *fiber.Ctx) error {
	var in dto.ForcedOutOfStockRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.SetForcedOutOfStock(c.UserContext(), c.Params("id"), in.Forced)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar la matriz de stock de un producto
// @Tags         catalog
// @Security     Bearer
// @Param        id  path  string  true  "ID del producto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id} [delete]
func (h *CatalogHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
