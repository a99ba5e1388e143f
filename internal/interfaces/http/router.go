package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/reconciliation"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger         *stock.LedgerUseCase
	Reconciliation *reconciliation.Job
	Scheduler      *reconciliation.Scheduler
	JWTSecret      string
}

// Router registra las rutas de la API. Todo /api/stock exige Bearer Token; el rol decide
// qué operaciones puede ejecutar cada usuario.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	protected := api.Group("/stock", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	managers := RequireRole(RoleAdmin, RoleBodeguero)
	adminOnly := RequireRole(RoleAdmin)

	stockHandler := NewStockHandler(deps.Ledger)
	catalogHandler := NewCatalogHandler(deps.Ledger)

	products := protected.Group("/products")
	products.Post("/", managers, catalogHandler.Create)
	products.Put("/:id/variants", managers, catalogHandler.UpdateVariants)
	products.Put("/:id/forced-out-of-stock", managers, catalogHandler.SetForcedOutOfStock)
	products.Delete("/:id", adminOnly, catalogHandler.Delete)

	products.Get("/:id/availability", anyRole, stockHandler.Availability)
	products.Get("/:id/events", managers, stockHandler.Events)
	products.Post("/:id/reserve", anyRole, stockHandler.Reserve)
	products.Post("/:id/restore", anyRole, stockHandler.Restore)
	products.Post("/:id/adjust", managers, stockHandler.Adjust)

	if deps.Reconciliation != nil {
		recHandler := NewReconciliationHandler(deps.Reconciliation, deps.Scheduler)
		protected.Post("/reconciliation", adminOnly, recHandler.Run)
		protected.Get("/reconciliation/last", adminOnly, recHandler.Last)
	}
}
