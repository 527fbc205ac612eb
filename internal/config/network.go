package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
)

const chainIDTimeout = 10 * time.Second

// NetworkResolver resolves network names to configurations with caching
type NetworkResolver struct {
	dataDir       string
	foundryConfig *config.FoundryConfig
	cache         *NetworkCache
	fetchChainID  func(ctx context.Context, rpcURL string) (uint64, error)
	mu            sync.RWMutex
}

// NetworkCache caches chain ID lookups
type NetworkCache struct {
	Networks  map[string]uint64 `json:"networks"` // name -> chainID
	RPCs      map[string]uint64 `json:"rpcs"`     // rpcURL -> chainID
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewNetworkResolver creates a new network resolver
func NewNetworkResolver(dataDir string, foundryConfig *config.FoundryConfig) *NetworkResolver {
	r := &NetworkResolver{
		dataDir:       dataDir,
		foundryConfig: foundryConfig,
		fetchChainID:  dialChainID,
	}

	r.loadCache()

	return r
}

// GetNetworks returns the names of all [rpc_endpoints] entries, sorted
func (r *NetworkResolver) GetNetworks(ctx context.Context) []string {
	names := make([]string, 0, len(r.foundryConfig.RpcEndpoints))
	for name := range r.foundryConfig.RpcEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveNetwork resolves a network name to its configuration
func (r *NetworkResolver) ResolveNetwork(ctx context.Context, networkName string) (*config.Network, error) {
	rpcURL, exists := r.foundryConfig.RpcEndpoints[networkName]
	if !exists {
		return nil, fmt.Errorf("network '%s' not found in foundry.toml [rpc_endpoints]", networkName)
	}
	if rpcURL == "" {
		return nil, fmt.Errorf("network '%s' has an empty rpc url (unset environment variable?)", networkName)
	}

	r.mu.RLock()
	chainID, cached := r.cache.RPCs[rpcURL]
	r.mu.RUnlock()

	if !cached {
		ctx, cancel := context.WithTimeout(ctx, chainIDTimeout)
		defer cancel()

		fetched, err := r.fetchChainID(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chain ID for network %s: %w", networkName, err)
		}
		chainID = fetched
		r.updateCache(networkName, rpcURL, chainID)
	}

	return &config.Network{
		Name:        networkName,
		RPCURL:      rpcURL,
		ChainID:     chainID,
		ExplorerURL: r.getExplorerURL(networkName, chainID),
	}, nil
}

// dialChainID asks the endpoint for its chain id
func dialChainID(ctx context.Context, rpcURL string) (uint64, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return chainID.Uint64(), nil
}

// getExplorerURL returns the explorer URL for a network
func (r *NetworkResolver) getExplorerURL(networkName string, chainID uint64) string {
	if etherscan, exists := r.foundryConfig.Etherscan[networkName]; exists && etherscan.URL != "" {
		return etherscan.URL
	}

	switch chainID {
	case 1:
		return "https://etherscan.io"
	case 11155111:
		return "https://sepolia.etherscan.io"
	case 17000:
		return "https://holesky.etherscan.io"
	case 10:
		return "https://optimistic.etherscan.io"
	case 137:
		return "https://polygonscan.com"
	case 8453:
		return "https://basescan.org"
	case 42161:
		return "https://arbiscan.io"
	case 42220:
		return "https://celoscan.io"
	default:
		return ""
	}
}

func (r *NetworkResolver) cachePath() string {
	return filepath.Join(r.dataDir, "chainIds.json")
}

// loadCache loads the chain ID cache from disk
func (r *NetworkResolver) loadCache() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = &NetworkCache{
		Networks: make(map[string]uint64),
		RPCs:     make(map[string]uint64),
	}

	data, err := os.ReadFile(r.cachePath())
	if err != nil {
		return
	}

	var cache NetworkCache
	if err := json.Unmarshal(data, &cache); err != nil || cache.Networks == nil || cache.RPCs == nil {
		return
	}
	r.cache = &cache
}

// updateCache records a chain id and persists the cache
func (r *NetworkResolver) updateCache(networkName, rpcURL string, chainID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Networks[networkName] = chainID
	r.cache.RPCs[rpcURL] = chainID
	r.cache.UpdatedAt = time.Now()

	// cache is only a shortcut, a failed write is not an error
	_ = r.saveCache()
}

func (r *NetworkResolver) saveCache() error {
	if err := os.MkdirAll(r.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r.cache, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.cachePath(), data, 0644)
}
