package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var contract string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List proxies on the current network",
		Long: `List the proxies recorded in the ledger for the current network, sorted by name.

Use --contract to keep only proxies whose current implementation is that contract.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListProxies.Run(cmd.Context(), usecase.ListProxiesParams{
				ContractName: contract,
			})
			if err != nil {
				return err
			}

			renderer := render.NewProxyRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderList(result)
		},
	}

	cmd.Flags().StringVar(&contract, "contract", "", "Filter by implementation contract name")

	return cmd
}
