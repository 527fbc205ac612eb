package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/uups-cli/internal/app"
	"github.com/trebuchet-org/uups-cli/internal/cli/render"
	"github.com/trebuchet-org/uups-cli/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"

	// offlineAnnotation marks commands that never talk to a chain, so a
	// configured but unreachable network does not block them
	offlineAnnotation = "offline"
)

// session owns the resources opened for one command invocation
type session struct {
	app     *app.App
	cleanup func()
	cancel  context.CancelFunc
}

func (s *session) close() {
	if s.app != nil {
		if stopper, ok := s.app.Sink.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.cleanup != nil {
		s.cleanup()
	}
	*s = session{}
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context, args []string) int {
	s := &session{}
	rootCmd := newRootCmd(s)
	rootCmd.SetArgs(args)

	executed, err := rootCmd.ExecuteContextC(ctx)
	jsonOutput := s.app != nil && s.app.Config.JSON
	s.close()
	if err == nil {
		return 0
	}

	if !jsonOutput {
		jsonOutput, _ = rootCmd.PersistentFlags().GetBool("json")
	}
	if executed == nil {
		executed = rootCmd
	}
	RenderError(executed, err, jsonOutput)
	return 1
}

// RenderError prints err to stderr for the operator, or as an ErrorReport in JSON mode
func RenderError(cmd *cobra.Command, err error, jsonOutput bool) {
	if jsonOutput {
		if encErr := render.WriteJSON(cmd.ErrOrStderr(), render.NewErrorReport(err)); encErr == nil {
			return
		}
	}
	fmt.Fprintln(cmd.ErrOrStderr(), render.FormatError(err))
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&session{})
}

func newRootCmd(s *session) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "uups",
		Short: "UUPS proxy deployment and upgrade orchestrator for Foundry",
		Long: `uups deploys ERC-1967 proxies in front of UUPS implementations, initializes
them atomically, and upgrades them only after checking the new implementation's
storage layout against the one in place. Every deployment and upgrade is recorded
in a ledger under .uups/ so a proxy's full version history stays inspectable.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)
			if isOffline(cmd) {
				v.Set("network", "")
			}

			// Initialize app with DI
			appInstance, cleanup, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			s.app = appInstance
			s.cleanup = cleanup

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			if appInstance.Config.Timeout > 0 {
				ctx, s.cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
			}
			cmd.SetContext(ctx)

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			s.close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output results and errors as JSON")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().StringP("namespace", "s", "", "Namespace, maps to a foundry profile (defaults to 'default')")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (e.g., mainnet, sepolia)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort the command after this long (e.g. 5m)")

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "inspect",
		Title: "Inspection Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	for _, cmd := range []*cobra.Command{
		NewDeployCmd(),
		NewUpgradeCmd(),
		NewApplyCmd(),
	} {
		cmd.GroupID = "main"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{
		NewStatusCmd(),
		NewListCmd(),
		NewValidateCmd(),
		NewLayoutCmd(),
		NewCallCmd(),
	} {
		cmd.GroupID = "inspect"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{
		NewNetworksCmd(),
		NewConfigCmd(),
	} {
		cmd.GroupID = "management"
		rootCmd.AddCommand(cmd)
	}

	// Version command
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func isOffline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[offlineAnnotation]; ok {
			return true
		}
	}
	return false
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
