package usecase

import (
	"context"

	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// ShowStatusParams contains parameters for showing a proxy
type ShowStatusParams struct {
	// Proxy is the proxy address or its ledger name
	Proxy string
	// Verify compares the ledger with the chain and fails when they disagree
	Verify bool
}

// StatusResult is the status of a proxy
type StatusResult struct {
	Proxy    *models.ProxyState
	Verified bool
}

// ShowStatus is the use case for showing a proxy's state and history
type ShowStatus struct {
	cfg      *config.RuntimeConfig
	chain    ChainClient
	ledger   DeploymentLedger
	selector ProxySelector
	sink     ProgressSink
}

// NewShowStatus creates a new ShowStatus use case
func NewShowStatus(
	cfg *config.RuntimeConfig,
	chain ChainClient,
	ledger DeploymentLedger,
	selector ProxySelector,
	sink ProgressSink,
) *ShowStatus {
	return &ShowStatus{
		cfg:      cfg,
		chain:    chain,
		ledger:   ledger,
		selector: selector,
		sink:     sink,
	}
}

// Run executes the show status use case
func (uc *ShowStatus) Run(ctx context.Context, params ShowStatusParams) (*StatusResult, error) {
	chainID, err := uc.chainID(ctx, params.Verify)
	if err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "loading", Message: "Loading proxy", Spinner: true})
	state, err := lookupProxy(ctx, uc.ledger, uc.selector, chainID, params.Proxy)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{Proxy: state}
	if params.Verify {
		uc.sink.OnProgress(ctx, ProgressEvent{Stage: "verifying", Message: "Comparing with chain state", Spinner: true})
		if err := verifyIdentity(ctx, uc.chain, state); err != nil {
			return nil, err
		}
		result.Verified = true
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: "Proxy loaded"})
	return result, nil
}

// chainID uses the configured chain id when the chain does not need to be contacted
func (uc *ShowStatus) chainID(ctx context.Context, verify bool) (uint64, error) {
	if !verify && uc.cfg.Network != nil && uc.cfg.Network.ChainID != 0 {
		return uc.cfg.Network.ChainID, nil
	}
	return checkChainID(ctx, uc.chain, uc.cfg)
}
