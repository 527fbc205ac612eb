package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the defaults of this checkout",
		Long: `Show the namespace and network defaults saved in .uups/config.local.json,
together with the [profile.<namespace>.uups] settings they select: proxy
artifact, confirmation timeout, gas multiplier, rename policy, and whether the
profile emits storage layouts.

Flags (--namespace, --network) and UUPS_* environment variables override the
saved defaults for a single run.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	}

	cmd.AddCommand(NewConfigSetCmd())
	cmd.AddCommand(NewConfigRemoveCmd())

	return cmd
}

// NewConfigSetCmd creates the config set subcommand
func NewConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a default",
		Long: `Save a default in .uups/config.local.json.
Keys: namespace (ns), network. A network must be listed in foundry.toml [rpc_endpoints].

Examples:
  uups config set namespace production
  uups config set network sepolia`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.SetConfig.Run(cmd.Context(), usecase.SetConfigParams{
				Key:   args[0],
				Value: args[1],
			})
			if err != nil {
				return err
			}

			renderer := render.NewConfigRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderSet(result)
		},
	}
}

// NewConfigRemoveCmd creates the config remove subcommand
func NewConfigRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Drop a saved default",
		Long: `Drop a default from .uups/config.local.json.
Without a namespace the default profile is used; without a network every
command that talks to a chain needs --network.

Examples:
  uups config remove namespace
  uups config remove network`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.RemoveConfig.Run(cmd.Context(), usecase.RemoveConfigParams{
				Key: args[0],
			})
			if err != nil {
				return err
			}

			renderer := render.NewConfigRenderer(cmd.OutOrStdout(), app.Config.JSON)
			return renderer.RenderRemove(result)
		},
	}
}

// showConfig prints the saved defaults and the active profile
func showConfig(cmd *cobra.Command) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	result, err := app.ShowConfig.Run(cmd.Context())
	if err != nil {
		return err
	}

	renderer := render.NewConfigRenderer(cmd.OutOrStdout(), app.Config.JSON)
	return renderer.RenderConfig(result)
}
