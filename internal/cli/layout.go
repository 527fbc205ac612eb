package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewLayoutCmd creates the layout command
func NewLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout <contract>",
		Short: "Print the storage layout of a compiled contract",
		Long: `Print the storage layout recorded in a contract's Foundry artifact, one row per
persistent field in slot order. This is the layout upgrades are checked against.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			contract, err := app.InspectLayout.Run(cmd.Context(), usecase.InspectLayoutParams{
				ContractID: args[0],
			})
			if err != nil {
				return err
			}

			renderer := render.NewLayoutRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderLayout(contract)
		},
	}
}
