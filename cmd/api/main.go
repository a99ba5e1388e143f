package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/stock-ledger/internal/application/reconciliation"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/events"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Ledger.Storage).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		stockRepo  repository.StockRepository
		recordRepo repository.VariantRecordRepository
		eventRepo  repository.StockEventRepository
	)
	switch cfg.Ledger.Storage {
	case config.StorageMemory:
		stockRepo = memory.NewStockRepository()
		recordRepo = memory.NewVariantRecordRepository()
		eventRepo = memory.NewStockEventRepository()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		stockRepo = postgres.NewStockRepository(pool)
		recordRepo = postgres.NewVariantRecordRepository(pool)
		eventRepo = postgres.NewStockEventRepository(pool)
	}

	// Auditoría asíncrona: una mutación nunca espera al log de eventos.
	dispatcher := events.NewDispatcher(eventRepo, cfg.Ledger.EventBuffer, log)
	dispatcher.Start()

	ledgerUC := stock.NewLedgerUseCase(
		stockRepo, recordRepo, dispatcher,
		stock.NewKeyedLocker(),
		stock.RetryPolicy{
			MaxAttempts: cfg.Ledger.MaxAttempts,
			BaseDelay:   cfg.Ledger.BackoffBase,
			MaxDelay:    cfg.Ledger.BackoffMax,
		},
		log,
	).WithHistory(eventRepo)

	reconcileJob := reconciliation.NewJob(stockRepo, recordRepo, log)
	scheduler := reconciliation.NewScheduler(reconcileJob, cfg.Reconcile.Interval)
	scheduler.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		enqueued, delivered, dropped, failed := dispatcher.Metrics()
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": cfg.App.Name,
			"storage": cfg.Ledger.Storage,
			"events": fiber.Map{
				"enqueued":  enqueued,
				"delivered": delivered,
				"dropped":   dropped,
				"failed":    failed,
			},
		})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:         ledgerUC,
		Reconciliation: reconcileJob,
		Scheduler:      scheduler,
		JWTSecret:      cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	scheduler.Stop()
	if !dispatcher.Stop(shutdownCtx) {
		log.Warn().Msg("eventos de stock pendientes sin entregar al apagar")
	}

	log.Info().Msg("aplicación detenida")
}
