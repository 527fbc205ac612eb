package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	var allowRenames bool

	cmd := &cobra.Command{
		Use:   "validate <proxy> <contract>",
		Short: "Check whether a contract can safely replace a proxy's implementation",
		Long: `Run the storage layout and upgradeability checks of an upgrade without sending
any transaction. The command fails when the candidate would be rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ValidateUpgrade.Run(cmd.Context(), usecase.ValidateUpgradeParams{
				Proxy:        args[0],
				ContractID:   args[1],
				AllowRenames: allowRenames,
			})
			if err != nil {
				return err
			}

			renderer := render.NewLayoutRenderer(cmd.OutOrStdout(), app.Config.JSON)
			if err := renderer.RenderValidation(result); err != nil {
				return err
			}
			if result.Rejection != nil {
				return result.Rejection
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowRenames, "allow-renames", false, "Accept fields renamed in place")

	return cmd
}
