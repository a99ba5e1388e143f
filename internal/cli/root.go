// Package cli implementa stockctl, la herramienta de operación del ledger de stock.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// RootOptions flags globales.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats formatos de salida permitidos.
var ValidFormats = []string{"text", "json"}

// Backend repositorios abiertos por un comando. Migrate es nil cuando el almacenamiento no
// tiene esquema (memoria).
type Backend struct {
	Stocks  repository.StockRepository
	Records repository.VariantRecordRepository
	Migrate func(ctx context.Context) ([]string, error)
	Close   func()
}

// Deps puntos de inyección de la CLI (los tests reemplazan ambos).
type Deps struct {
	LoadConfig  func() (*config.Config, error)
	OpenBackend func(ctx context.Context, cfg *config.Config) (*Backend, error)
}

// DefaultDeps configuración desde entorno y backend según LEDGER_STORAGE.
func DefaultDeps() Deps {
	return Deps{LoadConfig: config.Load, OpenBackend: OpenBackend}
}

// OpenBackend abre PostgreSQL o repositorios en memoria vacíos.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.Ledger.Storage == config.StorageMemory {
		return &Backend{
			Stocks:  memory.NewStockRepository(),
			Records: memory.NewVariantRecordRepository(),
			Close:   func() {},
		}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Stocks:  postgres.NewStockRepository(pool),
		Records: postgres.NewVariantRecordRepository(pool),
		Migrate: func(ctx context.Context) ([]string, error) { return postgres.Migrate(ctx, pool) },
		Close:   pool.Close,
	}, nil
}

// NewRootCommand construye stockctl con sus subcomandos.
func NewRootCommand(deps Deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stockctl",
		Short: "stockctl - operación del ledger de stock por variante",
		Long:  "Herramienta de operación del ledger de stock: reconciliación, consulta de disponibilidad, migraciones y tokens de servicio.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("formato inválido %q: debe ser uno de %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "salida detallada")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (json|text)")

	cmd.AddCommand(NewReconcileCommand(opts, deps))
	cmd.AddCommand(NewAvailabilityCommand(opts, deps))
	cmd.AddCommand(NewMigrateCommand(opts, deps))
	cmd.AddCommand(NewTokenCommand(opts, deps))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// open carga configuración y backend para un comando.
func open(ctx context.Context, deps Deps) (*config.Config, *Backend, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "configuración", err)
	}
	b, err := deps.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "abrir almacenamiento", err)
	}
	return cfg, b, nil
}
