package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/domain/uups"
)

// UpgradeProxyParams contains parameters for upgrading a proxy
type UpgradeProxyParams struct {
	// Proxy is the proxy address or its ledger name
	Proxy      string
	ContractID string
	// MigrationMethod is run in the upgrade transaction. Empty with MigrationArgs picks migrate.
	MigrationMethod string
	MigrationArgs   []string
	AllowRenames    bool
}

// UpgradeProxyResult contains the result of an upgrade
type UpgradeProxyResult struct {
	Proxy    *models.ProxyState
	Record   *models.DeploymentRecord
	Previous common.Address
	Contract *models.LogicalContract
}

// UpgradeProxy repoints a proxy to a new implementation, optionally running a
// migration in the same transaction.
type UpgradeProxy struct {
	cfg       *config.RuntimeConfig
	chain     ChainClient
	signer    Signer
	resolver  ArtifactResolver
	ledger    DeploymentLedger
	encoder   CallEncoder
	locks     *ProxyLocks
	selector  ProxySelector
	confirmer Confirmer
	sink      ProgressSink
	log       *slog.Logger
}

// NewUpgradeProxy creates a new UpgradeProxy use case
func NewUpgradeProxy(
	cfg *config.RuntimeConfig,
	chain ChainClient,
	signer Signer,
	resolver ArtifactResolver,
	ledger DeploymentLedger,
	encoder CallEncoder,
	locks *ProxyLocks,
	selector ProxySelector,
	confirmer Confirmer,
	sink ProgressSink,
	log *slog.Logger,
) *UpgradeProxy {
	return &UpgradeProxy{
		cfg:       cfg,
		chain:     chain,
		signer:    signer,
		resolver:  resolver,
		ledger:    ledger,
		encoder:   encoder,
		locks:     locks,
		selector:  selector,
		confirmer: confirmer,
		sink:      sink,
		log:       log.With("usecase", "upgrade"),
	}
}

// Run executes the upgrade proxy use case
func (uc *UpgradeProxy) Run(ctx context.Context, params UpgradeProxyParams) (*UpgradeProxyResult, error) {
	chainID, err := checkChainID(ctx, uc.chain, uc.cfg)
	if err != nil {
		return nil, err
	}

	target, err := lookupProxy(ctx, uc.ledger, uc.selector, chainID, params.Proxy)
	if err != nil {
		return nil, err
	}

	release, err := uc.locks.Acquire(ctx, AddressKey(chainID, target.Address), NameKey(chainID, target.Name))
	if err != nil {
		return nil, err
	}
	defer release()

	// re-read under the lock: a concurrent upgrade may have just finished
	state, err := uc.ledger.Snapshot(ctx, chainID, target.Address)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", target.DisplayName(), err)
	}
	if !state.Initialized {
		return nil, fmt.Errorf("proxy %s was never initialized: %w", state.DisplayName(), domain.ErrNotFound)
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "verifying", Message: "Checking proxy on chain", Spinner: true})
	if err := verifyIdentity(ctx, uc.chain, state); err != nil {
		return nil, err
	}

	caller, err := uc.signer.Address()
	if err != nil {
		return nil, err
	}
	if err := uc.authorize(ctx, state, caller); err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "resolving", Message: "Resolving " + params.ContractID, Spinner: true})
	candidate, err := uc.resolver.Resolve(ctx, params.ContractID)
	if err != nil {
		return nil, err
	}

	current := state.Current()
	if current != nil && current.BytecodeHash == candidate.BytecodeHash {
		return nil, fmt.Errorf("proxy %s runs %s as version %d: %w",
			state.DisplayName(), candidate.Name, state.Version, domain.ErrAlreadyAtVersion)
	}

	opts := layout.Options{AllowRenames: params.AllowRenames || uc.cfg.UUPS.AllowRenames}
	if rejection := checkUpgrade(state, candidate, opts); rejection != nil {
		return nil, rejection
	}

	migrationData, call, err := uc.encodeMigration(candidate, params)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Upgrade %s from version %d to %s", state.DisplayName(), state.Version, candidate.Name)
	if call != nil {
		prompt += fmt.Sprintf(" and run %s", call.Method)
	}
	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "confirming"})
	ok, err := uc.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAborted
	}

	tx := &transactor{chain: uc.chain, sink: uc.sink, log: uc.log}

	impl, err := tx.deploy(ctx, "implementation deployment", candidate.Bytecode)
	if err != nil {
		return nil, err
	}
	uc.log.Info("implementation deployed", "contract", candidate.Name, "address", impl.Address.Hex())

	data, err := uups.PackUpgradeToAndCall(impl.Address, migrationData)
	if err != nil {
		return nil, err
	}
	proxyAddr := state.Address
	pending, outcome, err := tx.send(ctx, "upgrade", TxRequest{To: &proxyAddr, Data: data})
	if err != nil {
		return nil, err
	}

	rctx, cancel := detached(ctx)
	defer cancel()

	after, err := implementationOf(rctx, uc.chain, state.Address)
	if err != nil {
		return nil, &domain.ChainError{Op: "upgrade", TxHash: pending.Hash.Hex(), Status: outcome.Status,
			Err: fmt.Errorf("outcome unknown: %w", err)}
	}

	reconciled := impl.Reconciled
	switch outcome.Status {
	case domain.TxReverted:
		if after != state.CurrentImplementation {
			return nil, &domain.LedgerInconsistencyError{
				Proxy:  state.DisplayName(),
				Field:  "implementation after reverted upgrade",
				Ledger: state.CurrentImplementation.Hex(),
				Chain:  after.Hex(),
			}
		}
		uc.log.Warn("upgrade reverted, implementation unchanged", "proxy", state.Address.Hex(),
			"orphaned_implementation", impl.Address.Hex())
		return nil, &domain.ChainError{Op: "upgrade", TxHash: pending.Hash.Hex(), Status: domain.TxReverted}

	case domain.TxTimeout:
		switch after {
		case impl.Address:
			uc.log.Info("upgrade landed after timeout", "proxy", state.Address.Hex(), "tx", pending.Hash.Hex())
			reconciled = true
		case state.CurrentImplementation:
			return nil, &domain.ChainError{Op: "upgrade", TxHash: pending.Hash.Hex(), Status: domain.TxTimeout,
				Err: fmt.Errorf("implementation still %s, check the transaction before re-running", after.Hex())}
		default:
			return nil, &domain.LedgerInconsistencyError{
				Proxy:  state.DisplayName(),
				Field:  "implementation",
				Ledger: state.CurrentImplementation.Hex(),
				Chain:  after.Hex(),
			}
		}

	default:
		if after != impl.Address {
			return nil, &domain.ChainError{Op: "upgrade", TxHash: pending.Hash.Hex(), Status: domain.TxConfirmed,
				Err: fmt.Errorf("implementation slot holds %s, expected %s", after.Hex(), impl.Address.Hex())}
		}
	}

	record := &models.DeploymentRecord{
		ID:                     uuid.NewString(),
		Kind:                   models.RecordUpgrade,
		ChainID:                chainID,
		ProxyAddress:           state.Address,
		Version:                state.Version + 1,
		Implementation:         impl.Address,
		ContractID:             candidate.ID,
		BytecodeHash:           candidate.BytecodeHash,
		Call:                   call,
		ImplementationTx:       impl.Tx,
		Tx:                     models.TxRef{Hash: pending.Hash, BlockNumber: outcome.BlockNumber},
		Timestamp:              time.Now().UTC(),
		StorageLayout:          candidate.StorageLayout,
		Sender:                 caller,
		ReconciledAfterTimeout: reconciled,
	}
	if err := uc.ledger.RecordUpgrade(rctx, record); err != nil {
		return nil, fmt.Errorf("proxy %s upgraded but not recorded: %w", state.Address.Hex(), err)
	}

	updated, err := uc.ledger.Snapshot(rctx, chainID, state.Address)
	if err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: "Proxy upgraded"})
	uc.log.Info("proxy upgraded", "proxy", state.Address.Hex(), "version", record.Version,
		"implementation", impl.Address.Hex())

	return &UpgradeProxyResult{
		Proxy:    updated,
		Record:   record,
		Previous: state.CurrentImplementation,
		Contract: candidate,
	}, nil
}

// authorize compares the caller with the proxy's upgrader: owner() when the
// implementation answers it, the ledger admin when owner() reverts or returns
// nothing. Any other failure to read owner() is an error.
func (uc *UpgradeProxy) authorize(ctx context.Context, state *models.ProxyState, caller common.Address) error {
	upgrader := state.Admin
	ret, err := uc.chain.Call(ctx, state.Address, uups.PackOwner())
	switch {
	case errors.Is(err, domain.ErrCallReverted):
		uc.log.Debug("owner() reverted, using ledger admin", "proxy", state.Address.Hex(), "error", err)
	case err != nil:
		return &domain.ChainError{Op: "read owner", Err: err}
	case len(ret) == 0:
		uc.log.Debug("owner() returned nothing, using ledger admin", "proxy", state.Address.Hex())
	default:
		owner, err := uups.UnpackOwner(ret)
		if err != nil {
			return &domain.ChainError{Op: "read owner", Err: err}
		}
		upgrader = owner
	}

	if upgrader != caller {
		return &domain.AuthorizationError{
			Proxy:    state.DisplayName(),
			Caller:   caller.Hex(),
			Upgrader: upgrader.Hex(),
		}
	}
	return nil
}

func (uc *UpgradeProxy) encodeMigration(contract *models.LogicalContract, params UpgradeProxyParams) ([]byte, *models.CallRecord, error) {
	method := params.MigrationMethod
	if method == "" {
		if len(params.MigrationArgs) == 0 {
			return nil, nil, nil
		}
		m := contract.FindMigrationMethod()
		if m == nil {
			return nil, nil, &domain.ArgumentError{
				Method: "migration",
				Err:    fmt.Errorf("%s has no migrate method; name one explicitly", contract.Name),
			}
		}
		method = m.Sig
	}

	data, m, err := uc.encoder.EncodeCall(contract.ABI, method, params.MigrationArgs)
	if err != nil {
		return nil, nil, err
	}
	return data, &models.CallRecord{Method: m.Sig, Args: params.MigrationArgs}, nil
}
