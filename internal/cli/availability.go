package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// NewAvailabilityCommand muestra la disponibilidad derivada de la matriz de un producto.
func NewAvailabilityCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:           "availability <product-id>",
		Short:         "Disponibilidad por talla y color de un producto",
		Args:          cobra.ExactArgs(1),
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

			uc := stock.NewLedgerUseCase(backend.Stocks, backend.Records, nil, nil, stock.DefaultRetryPolicy(), diagnosticLogger(rootOpts, cmd, cfg))
			av, err := uc.GetAvailability(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					_ = formatter.Error("E_NOT_FOUND", fmt.Sprintf("producto %s no encontrado", args[0]))
					return WrapExitError(ExitFailure, "producto no encontrado", err)
				}
				_ = formatter.Error("E_READ", err.Error())
				return WrapExitError(ExitCommandError, "leer disponibilidad", err)
			}
			return formatter.Success(av, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TALLA\tCOLOR\tCANTIDAD")
				for _, c := range av.PerCombination {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Size, c.Color, c.Quantity)
				}
				_ = tw.Flush()
				fmt.Fprintf(w, "total: %d  en_stock: %t  agotado_forzado: %t  vendible: %t  versión: %d\n",
					av.Total, av.InStock, av.ForcedOutOfStock, av.Sellable, av.Version)
			})
		},
	}
}
