package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
)

const (
	// DataDirName is the per-project directory holding the ledger and local config
	DataDirName = ".uups"
	// LocalConfigName is the viper config file inside DataDirName
	LocalConfigName = "config.local"
	// EnvPrefix prefixes every environment override (UUPS_NETWORK, UUPS_PRIVATE_KEY, ...)
	EnvPrefix = "UUPS"
)

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, DataDirName),
		Namespace:      v.GetString("namespace"),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		AssumeYes:      v.GetBool("yes"),
		Timeout:        v.GetDuration("timeout"),
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}

	foundryConfig, err := loadFoundryConfig(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load foundry config: %w", err)
	}
	cfg.FoundryConfig = foundryConfig

	// namespace = foundry profile
	profile := resolveProfile(foundryConfig, cfg.Namespace)
	cfg.OutDir = profile.OutPath
	if cfg.OutDir == "" {
		cfg.OutDir = "out"
	}
	if profile.UUPS != nil {
		cfg.UUPS = *profile.UUPS
	}
	if key := v.GetString("private_key"); key != "" {
		cfg.UUPS.PrivateKey = key
	}
	if timeout := v.GetDuration("confirm_timeout"); timeout > 0 {
		cfg.UUPS.ConfirmTimeout = timeout
	}
	if v.GetBool("allow_renames") {
		cfg.UUPS.AllowRenames = true
	}
	cfg.UUPS = cfg.UUPS.WithDefaults()

	if networkName := v.GetString("network"); networkName != "" {
		resolver := NewNetworkResolver(cfg.DataDir, foundryConfig)
		ctx := context.Background()
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		network, err := resolver.ResolveNetwork(ctx, networkName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		cfg.Network = network
	}

	return cfg, nil
}

// FindProjectRoot walks up from current directory to find foundry.toml
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		foundryToml := filepath.Join(dir, "foundry.toml")
		if _, err := os.Stat(foundryToml); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Foundry project (foundry.toml not found)")
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	v.SetConfigName(LocalConfigName)
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, DataDirName))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("namespace", "default")
	v.SetDefault("timeout", "10m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	// flags only win over file and env when given explicitly
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
			panic(err)
		}
	})

	return v
}

// ProvideNetworkResolver creates a NetworkResolver for Wire dependency injection
func ProvideNetworkResolver(cfg *config.RuntimeConfig) *NetworkResolver {
	return NewNetworkResolver(cfg.DataDir, cfg.FoundryConfig)
}
