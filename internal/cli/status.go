package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "status [proxy]",
		Short: "Show a proxy's current implementation and version history",
		Long: `Show the ledger entry of a proxy: its current implementation, version and the
full history of deployments and upgrades.

With --verify, the implementation slot and runtime code are read from the chain
and the command fails if they disagree with the ledger.

Without a proxy, an interactive picker lists the proxies on the current chain.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params := usecase.ShowStatusParams{Verify: verify}
			if len(args) > 0 {
				params.Proxy = args[0]
			}

			result, err := app.ShowStatus.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			renderer := render.NewProxyRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderStatus(result)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check the ledger against on-chain state")

	return cmd
}
