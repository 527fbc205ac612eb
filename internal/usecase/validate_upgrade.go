package usecase

import (
	"context"
	"fmt"

	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/domain/uups"
)

// ValidateUpgradeParams contains parameters for checking an upgrade without sending it
type ValidateUpgradeParams struct {
	Proxy        string
	ContractID   string
	AllowRenames bool
}

// ValidateUpgradeResult contains the outcome of an upgrade check
type ValidateUpgradeResult struct {
	Proxy     *models.ProxyState
	Current   *models.DeploymentRecord
	Candidate *models.LogicalContract
	// Rejection is nil when the candidate may replace the current implementation
	Rejection *domain.ValidationError
}

// ValidateUpgrade runs the storage layout and UUPS checks for a candidate implementation
type ValidateUpgrade struct {
	cfg      *config.RuntimeConfig
	chain    ChainClient
	resolver ArtifactResolver
	ledger   DeploymentLedger
	selector ProxySelector
	sink     ProgressSink
}

// NewValidateUpgrade creates a new ValidateUpgrade use case
func NewValidateUpgrade(
	cfg *config.RuntimeConfig,
	chain ChainClient,
	resolver ArtifactResolver,
	ledger DeploymentLedger,
	selector ProxySelector,
	sink ProgressSink,
) *ValidateUpgrade {
	return &ValidateUpgrade{
		cfg:      cfg,
		chain:    chain,
		resolver: resolver,
		ledger:   ledger,
		selector: selector,
		sink:     sink,
	}
}

// Run executes the validate upgrade use case
func (uc *ValidateUpgrade) Run(ctx context.Context, params ValidateUpgradeParams) (*ValidateUpgradeResult, error) {
	candidate, err := uc.resolver.Resolve(ctx, params.ContractID)
	if err != nil {
		return nil, err
	}

	chainID, err := checkChainID(ctx, uc.chain, uc.cfg)
	if err != nil {
		return nil, err
	}
	state, err := lookupProxy(ctx, uc.ledger, uc.selector, chainID, params.Proxy)
	if err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "validating", Message: "Comparing storage layouts"})

	return &ValidateUpgradeResult{
		Proxy:     state,
		Current:   state.Current(),
		Candidate: candidate,
		Rejection: checkUpgrade(state, candidate, layout.Options{AllowRenames: params.AllowRenames || uc.cfg.UUPS.AllowRenames}),
	}, nil
}

// checkUpgrade compares the layout recorded for the proxy's current implementation with
// the candidate's, and requires the candidate to keep the UUPS upgrade entry points.
func checkUpgrade(state *models.ProxyState, candidate *models.LogicalContract, opts layout.Options) *domain.ValidationError {
	reject := func(v domain.Violation) *domain.ValidationError {
		return &domain.ValidationError{Proxy: state.DisplayName(), ContractID: candidate.ID, Violation: v}
	}

	if missing := uups.MissingMethods(candidate.ABI); len(missing) > 0 {
		return reject(domain.Violation{
			Rule:   string(layout.RuleNotUpgradeable),
			Index:  -1,
			Reason: fmt.Sprintf("candidate does not expose %v; the proxy would be left without an upgrade path", missing),
		})
	}

	current := state.Current()
	if current == nil || current.StorageLayout == nil {
		return reject(domain.Violation{
			Rule:   string(layout.RuleLayoutUnknown),
			Index:  -1,
			Reason: "the ledger holds no storage layout for the current implementation",
		})
	}
	if candidate.StorageLayout == nil {
		return reject(domain.Violation{
			Rule:   string(layout.RuleLayoutUnknown),
			Index:  -1,
			Reason: "the candidate artifact has no storage layout",
		})
	}

	result := layout.Validate(current.StorageLayout, candidate.StorageLayout, opts)
	if result.Ok() {
		return nil
	}
	r := result.Rejected
	return reject(domain.Violation{
		Rule:   string(r.Rule),
		Index:  r.Index,
		Slot:   r.Slot,
		Label:  r.Label,
		Reason: r.Reason,
	})
}
