package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// lookupProxy finds a proxy by address or by ledger name. With an empty ref and a
// selector, the operator picks one of the recorded proxies.
func lookupProxy(ctx context.Context, ledger DeploymentLedger, selector ProxySelector, chainID uint64, ref string) (*models.ProxyState, error) {
	if ref == "" {
		if selector == nil {
			return nil, fmt.Errorf("no proxy given")
		}
		proxies, err := ledger.List(ctx, chainID)
		if err != nil {
			return nil, err
		}
		if len(proxies) == 0 {
			return nil, fmt.Errorf("no proxies recorded on chain %d: %w", chainID, domain.ErrNotFound)
		}
		return selector.SelectProxy(ctx, proxies)
	}

	if common.IsHexAddress(ref) {
		state, err := ledger.Snapshot(ctx, chainID, common.HexToAddress(ref))
		if err != nil {
			return nil, fmt.Errorf("proxy %s: %w", ref, err)
		}
		return state, nil
	}

	state, err := ledger.FindByName(ctx, chainID, ref)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", ref, err)
	}
	return state, nil
}

// verifyIdentity checks that the proxy recorded in the ledger is the contract on chain:
// code exists at its address and its implementation slot matches the ledger.
func verifyIdentity(ctx context.Context, chain ChainClient, state *models.ProxyState) error {
	code, err := chain.CodeAt(ctx, state.Address)
	if err != nil {
		return &domain.ChainError{Op: "read proxy code", Err: err}
	}
	if len(code) == 0 {
		return &domain.LedgerInconsistencyError{
			Proxy:  state.DisplayName(),
			Field:  "code",
			Ledger: "deployed",
			Chain:  "empty",
		}
	}

	impl, err := implementationOf(ctx, chain, state.Address)
	if err != nil {
		return &domain.ChainError{Op: "read implementation slot", Err: err}
	}
	if impl != state.CurrentImplementation {
		return &domain.LedgerInconsistencyError{
			Proxy:  state.DisplayName(),
			Field:  "implementation",
			Ledger: state.CurrentImplementation.Hex(),
			Chain:  impl.Hex(),
		}
	}
	return nil
}
