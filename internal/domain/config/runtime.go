package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string
	OutDir      string // Foundry artifacts directory

	// Context settings
	Namespace string   // Maps to foundry profile
	Network   *Network // nil if not specified

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	AssumeYes      bool // Skip confirmation prompts
	Timeout        time.Duration

	// Resolved configurations
	FoundryConfig *FoundryConfig
	UUPS          UUPSConfig // Profile-specific orchestrator settings
}

// EmitsStorageLayout reports whether the active foundry profile writes storageLayout
// into artifacts. A profile without its own extra_output inherits the default one.
func (c *RuntimeConfig) EmitsStorageLayout() bool {
	if c.FoundryConfig == nil {
		return true
	}
	if profile, ok := c.FoundryConfig.Profile[c.Namespace]; ok && len(profile.ExtraOutput) > 0 {
		return profile.HasStorageLayout()
	}
	return c.FoundryConfig.Profile["default"].HasStorageLayout()
}

// Network represents network configuration
type Network struct {
	ChainID     uint64 `json:"chainId"`
	Name        string `json:"name"`
	RPCURL      string `json:"rpcUrl"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// UUPSConfig is the [profile.<name>.uups] section of foundry.toml
type UUPSConfig struct {
	ProxyArtifact  string        `toml:"proxy_artifact"`
	PrivateKey     string        `toml:"private_key"`
	ConfirmTimeout time.Duration `toml:"confirm_timeout"`
	PollInterval   time.Duration `toml:"poll_interval"`
	GasMultiplier  float64       `toml:"gas_multiplier"`
	AllowRenames   bool          `toml:"allow_renames"`
}

const (
	DefaultProxyArtifact  = "ERC1967Proxy"
	DefaultConfirmTimeout = 2 * time.Minute
	DefaultPollInterval   = 2 * time.Second
	DefaultGasMultiplier  = 1.2
)

// WithDefaults fills unset values
func (c UUPSConfig) WithDefaults() UUPSConfig {
	if c.ProxyArtifact == "" {
		c.ProxyArtifact = DefaultProxyArtifact
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.GasMultiplier < 1 {
		c.GasMultiplier = DefaultGasMultiplier
	}
	return c
}
