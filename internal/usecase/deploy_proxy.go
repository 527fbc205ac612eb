package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/domain/uups"
)

// DeployProxyParams contains parameters for deploying a new proxy
type DeployProxyParams struct {
	ContractID string
	// Name is the proxy identity in the ledger. Defaults to the contract name.
	Name string
	// InitMethod names the initializer; empty picks initialize/init/initializer.
	InitMethod string
	InitArgs   []string
}

// DeployProxyResult contains the result of a proxy deployment
type DeployProxyResult struct {
	Proxy    *models.ProxyState
	Record   *models.DeploymentRecord
	Contract *models.LogicalContract
}

// DeployProxy deploys an implementation and an ERC1967 proxy in front of it,
// running the initializer inside the proxy's constructor.
type DeployProxy struct {
	cfg      *config.RuntimeConfig
	chain    ChainClient
	signer   Signer
	resolver ArtifactResolver
	ledger   DeploymentLedger
	encoder  CallEncoder
	locks    *ProxyLocks
	sink     ProgressSink
	log      *slog.Logger
}

// NewDeployProxy creates a new DeployProxy use case
func NewDeployProxy(
	cfg *config.RuntimeConfig,
	chain ChainClient,
	signer Signer,
	resolver ArtifactResolver,
	ledger DeploymentLedger,
	encoder CallEncoder,
	locks *ProxyLocks,
	sink ProgressSink,
	log *slog.Logger,
) *DeployProxy {
	return &DeployProxy{
		cfg:      cfg,
		chain:    chain,
		signer:   signer,
		resolver: resolver,
		ledger:   ledger,
		encoder:  encoder,
		locks:    locks,
		sink:     sink,
		log:      log.With("usecase", "deploy"),
	}
}

// Run executes the deploy proxy use case
func (uc *DeployProxy) Run(ctx context.Context, params DeployProxyParams) (*DeployProxyResult, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "resolving", Message: "Resolving " + params.ContractID, Spinner: true})
	contract, err := uc.resolver.Resolve(ctx, params.ContractID)
	if err != nil {
		return nil, err
	}
	name := params.Name
	if name == "" {
		name = contract.Name
	}

	proxyContract, err := uc.resolver.Resolve(ctx, uc.cfg.UUPS.ProxyArtifact)
	if err != nil {
		return nil, fmt.Errorf("proxy artifact: %w", err)
	}

	if missing := uups.MissingMethods(contract.ABI); len(missing) > 0 {
		return nil, &domain.ValidationError{
			Proxy:      name,
			ContractID: contract.ID,
			Violation: domain.Violation{
				Rule:   string(layout.RuleNotUpgradeable),
				Index:  -1,
				Reason: fmt.Sprintf("implementation does not expose %v; the proxy could never be upgraded", missing),
			},
		}
	}

	if contract.StorageLayout == nil {
		return nil, &domain.ValidationError{
			Proxy:      name,
			ContractID: contract.ID,
			Violation: domain.Violation{
				Rule:   string(layout.RuleLayoutUnknown),
				Index:  -1,
				Reason: "artifact has no storage layout, later upgrades could not be validated (add extra_output = [\"storageLayout\"])",
			},
		}
	}

	initData, call, err := uc.encodeInitializer(contract, params)
	if err != nil {
		return nil, err
	}

	sender, err := uc.signer.Address()
	if err != nil {
		return nil, err
	}

	chainID, err := checkChainID(ctx, uc.chain, uc.cfg)
	if err != nil {
		return nil, err
	}

	release, err := uc.locks.Acquire(ctx, NameKey(chainID, name))
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := uc.ledger.FindByName(ctx, chainID, name)
	switch {
	case err == nil:
		return nil, fmt.Errorf("proxy %s: %w at %s (version %d)", name, domain.ErrAlreadyInitialized,
			existing.Address.Hex(), existing.Version)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	tx := &transactor{chain: uc.chain, sink: uc.sink, log: uc.log}

	impl, err := tx.deploy(ctx, "implementation deployment", contract.Bytecode)
	if err != nil {
		return nil, err
	}
	uc.log.Info("implementation deployed", "contract", contract.Name, "address", impl.Address.Hex())

	code, err := uups.ProxyCreationCode(proxyContract.ABI, proxyContract.Bytecode, impl.Address, initData)
	if err != nil {
		return nil, err
	}
	proxy, err := tx.deploy(ctx, "proxy deployment", code)
	if err != nil {
		return nil, err
	}

	// the remaining reads and the ledger write must happen even if ctx was cancelled
	// while the proxy transaction was pending
	rctx, cancel := detached(ctx)
	defer cancel()

	current, err := implementationOf(rctx, uc.chain, proxy.Address)
	if err != nil {
		return nil, &domain.ChainError{Op: "proxy verification", TxHash: proxy.Tx.String(), Err: err}
	}
	if current != impl.Address {
		return nil, &domain.ChainError{
			Op:     "proxy verification",
			TxHash: proxy.Tx.String(),
			Status: domain.TxConfirmed,
			Err:    fmt.Errorf("implementation slot of %s holds %s, expected %s", proxy.Address.Hex(), current.Hex(), impl.Address.Hex()),
		}
	}

	record := &models.DeploymentRecord{
		ID:                     uuid.NewString(),
		Kind:                   models.RecordDeploy,
		ChainID:                chainID,
		ProxyAddress:           proxy.Address,
		Version:                1,
		Implementation:         impl.Address,
		ContractID:             contract.ID,
		BytecodeHash:           contract.BytecodeHash,
		Call:                   call,
		ImplementationTx:       impl.Tx,
		Tx:                     proxy.Tx,
		Timestamp:              time.Now().UTC(),
		StorageLayout:          contract.StorageLayout,
		Sender:                 sender,
		ReconciledAfterTimeout: impl.Reconciled || proxy.Reconciled,
	}
	if err := uc.ledger.RecordDeployment(rctx, name, record); err != nil {
		return nil, fmt.Errorf("proxy %s deployed but not recorded: %w", proxy.Address.Hex(), err)
	}

	state, err := uc.ledger.Snapshot(rctx, chainID, proxy.Address)
	if err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: "Proxy deployed"})
	uc.log.Info("proxy deployed", "name", name, "proxy", proxy.Address.Hex(), "implementation", impl.Address.Hex())

	return &DeployProxyResult{
		Proxy:    state,
		Record:   record,
		Contract: contract,
	}, nil
}

func (uc *DeployProxy) encodeInitializer(contract *models.LogicalContract, params DeployProxyParams) ([]byte, *models.CallRecord, error) {
	method := params.InitMethod
	if method == "" {
		m := contract.FindInitializeMethod()
		if m == nil {
			if len(params.InitArgs) > 0 {
				return nil, nil, &domain.ArgumentError{
					Method: "initializer",
					Err:    fmt.Errorf("%s has no initialize method", contract.Name),
				}
			}
			uc.log.Warn("deploying without initializer", "contract", contract.Name)
			return nil, nil, nil
		}
		method = m.Sig
	}

	data, m, err := uc.encoder.EncodeCall(contract.ABI, method, params.InitArgs)
	if err != nil {
		return nil, nil, err
	}
	return data, &models.CallRecord{Method: m.Sig, Args: params.InitArgs}, nil
}
