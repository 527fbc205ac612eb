package usecase

import (
	"context"
	"fmt"

	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// CallProxyParams contains parameters for a read-only call through a proxy
type CallProxyParams struct {
	Proxy  string
	Method string
	Args   []string
	// ContractID overrides the ABI used to encode the call; defaults to the
	// contract recorded for the current implementation
	ContractID string
}

// CallProxyResult contains the decoded return values
type CallProxyResult struct {
	Proxy     *models.ProxyState
	Signature string
	Values    []string
}

// CallProxy performs eth_call against a proxy with its implementation's ABI
type CallProxy struct {
	cfg      *config.RuntimeConfig
	chain    ChainClient
	resolver ArtifactResolver
	ledger   DeploymentLedger
	encoder  CallEncoder
	selector ProxySelector
}

// NewCallProxy creates a new CallProxy use case
func NewCallProxy(
	cfg *config.RuntimeConfig,
	chain ChainClient,
	resolver ArtifactResolver,
	ledger DeploymentLedger,
	encoder CallEncoder,
	selector ProxySelector,
) *CallProxy {
	return &CallProxy{
		cfg:      cfg,
		chain:    chain,
		resolver: resolver,
		ledger:   ledger,
		encoder:  encoder,
		selector: selector,
	}
}

// Run executes the call proxy use case
func (uc *CallProxy) Run(ctx context.Context, params CallProxyParams) (*CallProxyResult, error) {
	chainID, err := checkChainID(ctx, uc.chain, uc.cfg)
	if err != nil {
		return nil, err
	}
	state, err := lookupProxy(ctx, uc.ledger, uc.selector, chainID, params.Proxy)
	if err != nil {
		return nil, err
	}

	contractID := params.ContractID
	if contractID == "" {
		current := state.Current()
		if current == nil {
			return nil, fmt.Errorf("proxy %s has no recorded implementation: %w", state.DisplayName(), domain.ErrNotFound)
		}
		contractID = current.ContractID
	}
	contract, err := uc.resolver.Resolve(ctx, contractID)
	if err != nil {
		return nil, err
	}

	data, method, err := uc.encoder.EncodeCall(contract.ABI, params.Method, params.Args)
	if err != nil {
		return nil, err
	}

	ret, err := uc.chain.Call(ctx, state.Address, data)
	if err != nil {
		return nil, &domain.ChainError{Op: "call " + method.Sig, Err: err}
	}

	values, err := uc.encoder.DecodeResult(method, ret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", method.Sig, err)
	}

	return &CallProxyResult{
		Proxy:     state,
		Signature: method.Sig,
		Values:    values,
	}, nil
}
