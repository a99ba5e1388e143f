package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/reconciliation"
)

// ReconciliationHandler dispara una pasada de reconciliación y expone la última ejecución periódica.
type ReconciliationHandler struct {
	job       *reconciliation.Job
	scheduler *reconciliation.Scheduler
}

// NewReconciliationHandler construye el handler. scheduler puede ser nil.
func NewReconciliationHandler(job *reconciliation.Job, scheduler *reconciliation.Scheduler) *ReconciliationHandler {
	return &ReconciliationHandler{job: job, scheduler: scheduler}
}

// Run godoc
// @Summary      Ejecutar reconciliación de registros huérfanos
// @Description  Siempre responde 200 con el resumen; un fallo parcial se informa en "error".
// @Tags         reconciliation
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReconciliationResponse
// @Router       /api/stock/reconciliation [post]
func (h *ReconciliationHandler) Run(c *fiber.Ctx) error {
	res := h.job.Run(c.UserContext())
	return c.JSON(res.ToResponse())
}

// Last godoc
// @Summary      Última pasada periódica
// @Tags         reconciliation
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/stock/reconciliation/last [get]
func (h *ReconciliationHandler) Last(c *fiber.Ctx) error {
	if h.scheduler == nil {
		return c.JSON(fiber.Map{"runs": 0})
	}
	last, runs := h.scheduler.Last()
	if runs == 0 {
		return c.JSON(fiber.Map{"runs": 0})
	}
	return c.JSON(fiber.Map{"runs": runs, "last": last.ToResponse()})
}
