package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
)

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List available networks from foundry.toml",
		Long: `List all networks configured in the [rpc_endpoints] section of foundry.toml.

This command shows all available networks and attempts to fetch their chain IDs.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListNetworks.Run(cmd.Context())
			if err != nil {
				return err
			}

			renderer := render.NewNetworksRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderNetworksList(result)
		},
	}
}
