package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewApplyCmd creates the apply command
func NewApplyCmd() *cobra.Command {
	var allowRenames bool

	cmd := &cobra.Command{
		Use:   "apply <plan.yaml>",
		Short: "Apply a release plan of deployments and upgrades",
		Long: `Apply the steps of a YAML release plan in order. Steps already reflected in the
ledger are skipped, so a plan can be re-run after a failure.

  steps:
    - deploy: Box
      name: Vault
      args: ["42"]
    - upgrade: Vault
      to: BoxV2
      method: migrate
      args: ["55"]

Execution stops at the first failing step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read plan: %w", err)
			}
			plan, err := models.ParsePlan(data)
			if err != nil {
				return err
			}

			result, runErr := app.ApplyPlan.Run(cmd.Context(), usecase.ApplyPlanParams{
				Plan:         plan,
				AllowRenames: allowRenames,
			})
			if result == nil {
				return runErr
			}

			renderer := render.NewPlanRenderer(cmd.OutOrStdout(), app.Config.JSON)
			if err := renderer.RenderPlan(result); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&allowRenames, "allow-renames", false, "Accept fields renamed in place")

	return cmd
}
