package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand aplica el esquema del ledger (product_stock, product_variants,
// stock_idempotency_keys, stock_events).
func NewMigrateCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Aplicar las migraciones SQL del ledger",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			_, backend, err := open(cmd.Context(), deps)
			if err != nil {
				_ = formatter.Error("E_CONFIG", err.Error())
				return err
			}
			defer backend.Close()

			if backend.Migrate == nil {
				err := errors.New("el almacenamiento configurado no usa migraciones")
				_ = formatter.Error("E_STORAGE", err.Error())
				return WrapExitError(ExitCommandError, "migrate", err)
			}
			applied, err := backend.Migrate(cmd.Context())
			if err != nil {
				_ = formatter.Error("E_MIGRATE", err.Error())
				return WrapExitError(ExitFailure, "migrate", err)
			}
			return formatter.Success(map[string]any{"applied": applied}, func(w io.Writer) {
				for _, name := range applied {
					fmt.Fprintf(w, "aplicada %s\n", name)
				}
			})
		},
	}
}
