package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewUpgradeCmd creates the upgrade command
func NewUpgradeCmd() *cobra.Command {
	var (
		migrate      string
		allowRenames bool
	)

	cmd := &cobra.Command{
		Use:   "upgrade <proxy> <contract> [migration-args...]",
		Short: "Upgrade a proxy to a new implementation",
		Long: `Deploy a new implementation and point the proxy at it with upgradeToAndCall.

The new storage layout is checked against the one recorded for the proxy's
current implementation first; fields may be appended but never removed,
reordered or retyped. Migration arguments, when given, are passed to the
migrate method (or the one named with --migrate) in the same transaction.

The proxy may be given by name or address. Without one, an interactive
picker lists the proxies on the current chain.

Examples:
  uups upgrade Box BoxV2
  uups upgrade Box BoxV2 55
  uups upgrade 0x5FbDB2315678afecb367f032d93F642f64180aa3 src/BoxV3.sol:BoxV3 --migrate "reindex(uint256)" 10`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.UpgradeProxy.Run(cmd.Context(), usecase.UpgradeProxyParams{
				Proxy:           args[0],
				ContractID:      args[1],
				MigrationMethod: migrate,
				MigrationArgs:   args[2:],
				AllowRenames:    allowRenames,
			})
			if err != nil {
				return err
			}

			renderer := render.NewProxyRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderUpgrade(result)
		},
	}

	cmd.Flags().StringVar(&migrate, "migrate", "", "Migration method to run with the upgrade (defaults to migrate when args are given)")
	cmd.Flags().BoolVar(&allowRenames, "allow-renames", false, "Accept fields renamed in place")

	return cmd
}
