package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/domain/uups"
)

// reconcileTimeout bounds the chain reads made after a confirmation timed out.
const reconcileTimeout = 30 * time.Second

// detached returns a context that survives cancellation of ctx. It is used for the
// chain reads and ledger writes that must still happen once a transaction may have landed.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
}

// transactor sends transactions for the deploy and upgrade use cases.
type transactor struct {
	chain ChainClient
	sink  ProgressSink
	log   *slog.Logger
}

// send submits req and waits for it. Submission failures are returned as ChainError.
// A failure while waiting leaves the outcome unknown and is reported as a timeout so
// callers reconcile from chain state instead of retrying.
func (t *transactor) send(ctx context.Context, op string, req TxRequest) (*PendingTx, *TxOutcome, error) {
	pending, err := t.chain.Submit(ctx, req)
	if err != nil {
		return nil, nil, &domain.ChainError{Op: op, Err: err}
	}
	t.log.Debug("transaction submitted", "op", op, "tx", pending.Hash.Hex(), "nonce", pending.Nonce)
	t.sink.OnProgress(ctx, ProgressEvent{
		Stage:   op,
		Message: fmt.Sprintf("Waiting for %s (%s)", op, shortHash(pending.Hash)),
		Spinner: true,
	})

	outcome, err := t.chain.Wait(ctx, pending.Hash)
	if err != nil {
		t.log.Warn("confirmation failed, outcome unknown", "op", op, "tx", pending.Hash.Hex(), "error", err)
		outcome = &TxOutcome{Status: domain.TxTimeout}
	}
	return pending, outcome, nil
}

// deployed is a contract creation observed on chain
type deployed struct {
	Address    common.Address
	Tx         models.TxRef
	Reconciled bool
}

// deploy sends a contract creation and returns the created address. After a timeout
// the transaction only counts as mined if code exists at the predicted address.
func (t *transactor) deploy(ctx context.Context, op string, code []byte) (*deployed, error) {
	pending, outcome, err := t.send(ctx, op, TxRequest{Data: code})
	if err != nil {
		return nil, err
	}
	predicted := crypto.CreateAddress(pending.From, pending.Nonce)

	switch outcome.Status {
	case domain.TxConfirmed:
		addr := outcome.ContractAddress
		if addr == (common.Address{}) {
			addr = predicted
		}
		return &deployed{
			Address: addr,
			Tx:      models.TxRef{Hash: pending.Hash, BlockNumber: outcome.BlockNumber},
		}, nil

	case domain.TxReverted:
		return nil, &domain.ChainError{Op: op, TxHash: pending.Hash.Hex(), Status: domain.TxReverted}

	default:
		rctx, cancel := detached(ctx)
		defer cancel()
		onChain, err := t.chain.CodeAt(rctx, predicted)
		if err != nil {
			return nil, &domain.ChainError{Op: op, TxHash: pending.Hash.Hex(), Status: domain.TxTimeout,
				Err: fmt.Errorf("could not read chain state at %s: %w", predicted.Hex(), err)}
		}
		if len(onChain) == 0 {
			return nil, &domain.ChainError{Op: op, TxHash: pending.Hash.Hex(), Status: domain.TxTimeout,
				Err: fmt.Errorf("no code at %s yet, check the transaction before re-running", predicted.Hex())}
		}
		t.log.Info("transaction landed after timeout", "op", op, "tx", pending.Hash.Hex(), "address", predicted.Hex())
		return &deployed{
			Address:    predicted,
			Tx:         models.TxRef{Hash: pending.Hash},
			Reconciled: true,
		}, nil
	}
}

// implementationOf reads the ERC1967 implementation slot of a proxy
func implementationOf(ctx context.Context, chain ChainClient, proxy common.Address) (common.Address, error) {
	value, err := chain.StorageAt(ctx, proxy, uups.ImplementationSlot)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read implementation slot of %s: %w", proxy.Hex(), err)
	}
	return uups.ImplementationFromSlot(value), nil
}

// checkChainID makes sure the RPC endpoint serves the configured network
func checkChainID(ctx context.Context, chain ChainClient, cfg *config.RuntimeConfig) (uint64, error) {
	if cfg.Network == nil {
		return 0, domain.ErrNoNetwork
	}
	chainID, err := chain.ChainID(ctx)
	if err != nil {
		return 0, &domain.ChainError{Op: "chain id", Err: err}
	}
	if cfg.Network.ChainID != 0 && cfg.Network.ChainID != chainID {
		return 0, fmt.Errorf("network %s expects chain %d but the RPC endpoint reports %d",
			cfg.Network.Name, cfg.Network.ChainID, chainID)
	}
	return chainID, nil
}

func shortHash(h common.Hash) string {
	s := h.Hex()
	return s[:10] + "…"
}
