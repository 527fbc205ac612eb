package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	var (
		name       string
		initMethod string
	)

	cmd := &cobra.Command{
		Use:   "deploy <contract> [init-args...]",
		Short: "Deploy an implementation behind a new UUPS proxy",
		Long: `Deploy a contract as the implementation of a new ERC-1967 proxy and run its
initializer in the proxy's constructor, so the proxy can never be observed
uninitialized.

The contract may be given as a name (Box), a qualified name (src/Box.sol:Box)
or an artifact path. The remaining arguments are passed to the initializer.

Deploying the same proxy name twice on a chain fails; use upgrade instead.

Examples:
  uups deploy Box 42 --network sepolia
  uups deploy src/Vault.sol:Vault 0xA0b8...eB48 --name UsdcVault
  uups deploy Token --init initializeV1 "My Token" MTK`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.DeployProxy.Run(cmd.Context(), usecase.DeployProxyParams{
				ContractID: args[0],
				Name:       name,
				InitMethod: initMethod,
				InitArgs:   args[1:],
			})
			if err != nil {
				return err
			}

			renderer := render.NewProxyRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderDeploy(result)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Proxy name in the ledger (defaults to the contract name)")
	cmd.Flags().StringVar(&initMethod, "init", "", "Initializer method name or signature (defaults to initialize)")

	return cmd
}
