package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewCallCmd creates the call command
func NewCallCmd() *cobra.Command {
	var abiContract string

	cmd := &cobra.Command{
		Use:   "call <proxy> <method> [args...]",
		Short: "Call a view method through a proxy",
		Long: `Run a read-only call against a proxy and print the decoded return values.

The call is encoded with the ABI of the contract recorded for the proxy's current
implementation; use --abi to encode with another contract's ABI instead.

Examples:
  uups call Box retrieve
  uups call Box "balanceOf(address)" 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.CallProxy.Run(cmd.Context(), usecase.CallProxyParams{
				Proxy:      args[0],
				Method:     args[1],
				Args:       args[2:],
				ContractID: abiContract,
			})
			if err != nil {
				return err
			}

			renderer := render.NewCallRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderCall(result)
		},
	}

	cmd.Flags().StringVar(&abiContract, "abi", "", "Contract whose ABI encodes the call")

	return cmd
}
