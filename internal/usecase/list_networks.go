package usecase

import (
	"context"
	"sync"

	"github.com/trebuchet-org/uups-cli/internal/domain/config"
)

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
	// Current is the network selected with --network, if any
	Current string
}

// NetworkStatus is one [rpc_endpoints] entry and whether it answered
type NetworkStatus struct {
	Name    string
	ChainID uint64
	RPCURL  string
	Error   error
}

// ListNetworks is a use case for listing the networks proxies can be deployed to
type ListNetworks struct {
	cfg      *config.RuntimeConfig
	resolver NetworkResolver
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(cfg *config.RuntimeConfig, resolver NetworkResolver) *ListNetworks {
	return &ListNetworks{cfg: cfg, resolver: resolver}
}

// Run resolves every network concurrently; a failing endpoint is reported, not fatal.
func (uc *ListNetworks) Run(ctx context.Context) (*ListNetworksResult, error) {
	names := uc.resolver.GetNetworks(ctx)
	networks := make([]NetworkStatus, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			status := NetworkStatus{Name: name}
			if info, err := uc.resolver.ResolveNetwork(ctx, name); err != nil {
				status.Error = err
			} else {
				status.ChainID = info.ChainID
				status.RPCURL = info.RPCURL
			}
			networks[i] = status
		}(i, name)
	}
	wg.Wait()

	result := &ListNetworksResult{Networks: networks}
	if uc.cfg.Network != nil {
		result.Current = uc.cfg.Network.Name
	}
	return result, nil
}
