package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// ListProxiesParams contains parameters for listing proxies
type ListProxiesParams struct {
	// ContractName keeps proxies whose current implementation is this contract
	ContractName string
}

// ProxyListResult contains the result of listing proxies
type ProxyListResult struct {
	ChainID uint64
	Proxies []*models.ProxyState
	Summary ProxySummary
}

// ProxySummary provides summary statistics
type ProxySummary struct {
	Total      int
	Upgraded   int
	ByContract map[string]int
}

// ListProxies is a use case for listing proxies recorded on the current chain
type ListProxies struct {
	cfg    *config.RuntimeConfig
	chain  ChainClient
	ledger DeploymentLedger
}

// NewListProxies creates a new ListProxies use case
func NewListProxies(cfg *config.RuntimeConfig, chain ChainClient, ledger DeploymentLedger) *ListProxies {
	return &ListProxies{cfg: cfg, chain: chain, ledger: ledger}
}

// Run executes the list proxies use case
func (uc *ListProxies) Run(ctx context.Context, params ListProxiesParams) (*ProxyListResult, error) {
	var chainID uint64
	if uc.cfg.Network != nil && uc.cfg.Network.ChainID != 0 {
		chainID = uc.cfg.Network.ChainID
	} else {
		id, err := checkChainID(ctx, uc.chain, uc.cfg)
		if err != nil {
			return nil, err
		}
		chainID = id
	}

	proxies, err := uc.ledger.List(ctx, chainID)
	if err != nil {
		return nil, err
	}

	if params.ContractName != "" {
		proxies = lo.Filter(proxies, func(p *models.ProxyState, _ int) bool {
			current := p.Current()
			return current != nil && contractName(current.ContractID) == params.ContractName
		})
	}

	sort.Slice(proxies, func(i, j int) bool {
		return proxies[i].Name < proxies[j].Name
	})

	return &ProxyListResult{
		ChainID: chainID,
		Proxies: proxies,
		Summary: summarize(proxies),
	}, nil
}

func summarize(proxies []*models.ProxyState) ProxySummary {
	summary := ProxySummary{
		Total: len(proxies),
		Upgraded: lo.CountBy(proxies, func(p *models.ProxyState) bool {
			return p.Version > 1
		}),
		ByContract: make(map[string]int),
	}
	for _, p := range proxies {
		if current := p.Current(); current != nil {
			summary.ByContract[contractName(current.ContractID)]++
		}
	}
	return summary
}

// contractName strips the source path from "path:Name" references
func contractName(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}
