package config

// FoundryConfig represents the parts of foundry.toml the orchestrator reads
type FoundryConfig struct {
	Profile      map[string]ProfileConfig   `toml:"profile"`
	RpcEndpoints map[string]string          `toml:"rpc_endpoints"`
	Etherscan    map[string]EtherscanConfig `toml:"etherscan,omitempty"`
}

// EtherscanConfig represents Etherscan configuration for a network
// This matches Foundry's expected structure
type EtherscanConfig struct {
	Key string `toml:"key,omitempty"` // API key for verification
	URL string `toml:"url,omitempty"` // API URL (for custom explorers)
}

// ProfileConfig represents a profile's foundry configuration
type ProfileConfig struct {
	SrcPath     string      `toml:"src,omitempty"`
	OutPath     string      `toml:"out,omitempty"`
	ExtraOutput []string    `toml:"extra_output,omitempty"`
	SolcVersion string      `toml:"solc_version,omitempty"`
	UUPS        *UUPSConfig `toml:"uups,omitempty"`
}

// HasStorageLayout reports whether the profile asks forge to emit storage layouts
func (p ProfileConfig) HasStorageLayout() bool {
	for _, out := range p.ExtraOutput {
		if out == "storageLayout" {
			return true
		}
	}
	return false
}
