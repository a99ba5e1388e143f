package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// NewTokenCommand emite un JWT de servicio firmado con JWT_SECRET (integraciones y pruebas manuales).
func NewTokenCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	var userID, companyID, role string
	var minutes int

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Emitir un token Bearer para la API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := deps.LoadConfig()
			if err != nil {
				_ = formatter.Error("E_CONFIG", err.Error())
				return WrapExitError(ExitCommandError, "configuración", err)
			}
			if minutes <= 0 {
				minutes = cfg.JWT.Expiration
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, userID, companyID, role, cfg.JWT.Issuer, minutes)
			if err != nil {
				_ = formatter.Error("E_TOKEN", err.Error())
				return WrapExitError(ExitCommandError, "token", err)
			}
			return formatter.Success(map[string]string{"token": tok}, func(w io.Writer) {
				fmt.Fprintln(w, tok)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "stockctl", "user_id del token (actor de las mutaciones)")
	cmd.Flags().StringVar(&companyID, "company", "", "company_id del token")
	cmd.Flags().StringVar(&role, "role", "admin", "rol: admin | bodeguero | vendedor")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
	return cmd
}
