package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/reconciliation"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// NewReconcileCommand ejecuta una pasada de reconciliación y muestra el resumen.
func NewReconcileCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Eliminar registros por variante huérfanos (una pasada)",
		Long: `Compara las tallas × colores declaradas de cada producto contra los registros
por variante y borra los que ya no corresponden. Es idempotente: una segunda pasada
no encuentra nada que borrar.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, backend, err := open(cmd.Context(), deps)
			if err != nil {
				_ = formatter.Error("E_CONFIG", err.Error())
				return err
			}
			defer backend.Close()

			job := reconciliation.NewJob(backend.Stocks, backend.Records, diagnosticLogger(rootOpts, cmd, cfg))
			res := job.Run(cmd.Context())
			out := res.ToResponse()
			if err := formatter.Success(out, func(w io.Writer) {
				fmt.Fprintf(w, "escaneados:  %d\n", out.Scanned)
				fmt.Fprintf(w, "huérfanos:   %d\n", out.OrphansFound)
				fmt.Fprintf(w, "eliminados:  %d\n", out.OrphansDeleted)
				fmt.Fprintf(w, "fallidos:    %d\n", out.Failed)
				if out.Error != "" {
					fmt.Fprintf(w, "error:       %s\n", out.Error)
				}
			}); err != nil {
				return err
			}
			if res.Err != nil {
				return WrapExitError(ExitFailure, "reconciliación incompleta", res.Err)
			}
			return nil
		},
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// diagnosticLogger logs a stderr solo con --verbose, para no mezclar con la salida JSON.
func diagnosticLogger(opts *RootOptions, cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	if !opts.Verbose {
		return logger.Nop()
	}
	return logger.NewWithWriter(cmd.ErrOrStderr(), logger.Config{Env: cfg.App.Env, Level: "debug"})
}
