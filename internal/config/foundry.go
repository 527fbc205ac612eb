package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
)

// loadFoundryConfig loads and parses foundry.toml
func loadFoundryConfig(projectRoot string) (*config.FoundryConfig, error) {
	// Load .env files first for variable expansion
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				// Log warning but don't fail
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}

	foundryPath := filepath.Join(projectRoot, "foundry.toml")
	var cfg config.FoundryConfig
	if _, err := toml.DecodeFile(foundryPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse foundry.toml: %w", err)
	}

	for name, url := range cfg.RpcEndpoints {
		cfg.RpcEndpoints[name] = os.ExpandEnv(url)
	}
	for network, ec := range cfg.Etherscan {
		ec.URL = os.ExpandEnv(ec.URL)
		ec.Key = os.ExpandEnv(ec.Key)
		cfg.Etherscan[network] = ec
	}
	for name, profile := range cfg.Profile {
		if profile.UUPS != nil {
			profile.UUPS.PrivateKey = os.ExpandEnv(profile.UUPS.PrivateKey)
			cfg.Profile[name] = profile
		}
	}

	return &cfg, nil
}

// resolveProfile overlays the namespace profile on the default profile
func resolveProfile(foundry *config.FoundryConfig, namespace string) config.ProfileConfig {
	merged := foundry.Profile["default"]
	merged.UUPS = cloneUUPS(merged.UUPS)

	if namespace == "default" {
		return merged
	}
	profile, ok := foundry.Profile[namespace]
	if !ok {
		return merged
	}

	if profile.OutPath != "" {
		merged.OutPath = profile.OutPath
	}
	if profile.SrcPath != "" {
		merged.SrcPath = profile.SrcPath
	}
	if len(profile.ExtraOutput) > 0 {
		merged.ExtraOutput = profile.ExtraOutput
	}
	if profile.UUPS != nil {
		if merged.UUPS == nil {
			merged.UUPS = &config.UUPSConfig{}
		}
		overlayUUPS(merged.UUPS, profile.UUPS)
	}
	return merged
}

func cloneUUPS(c *config.UUPSConfig) *config.UUPSConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func overlayUUPS(dst, src *config.UUPSConfig) {
	if src.ProxyArtifact != "" {
		dst.ProxyArtifact = src.ProxyArtifact
	}
	if src.PrivateKey != "" {
		dst.PrivateKey = src.PrivateKey
	}
	if src.ConfirmTimeout > 0 {
		dst.ConfirmTimeout = src.ConfirmTimeout
	}
	if src.PollInterval > 0 {
		dst.PollInterval = src.PollInterval
	}
	if src.GasMultiplier > 0 {
		dst.GasMultiplier = src.GasMultiplier
	}
	if src.AllowRenames {
		dst.AllowRenames = true
	}
}
