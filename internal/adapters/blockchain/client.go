package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// Backend is the subset of ethclient the adapter uses. The simulated backend
// satisfies it as well.
type Backend interface {
	ethereum.ChainIDReader
	ethereum.ChainReader
	ethereum.ChainStateReader
	ethereum.PendingStateReader
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.GasPricer1559
	ethereum.TransactionReader
	ethereum.TransactionSender
}

// Client implements usecase.ChainClient over JSON-RPC. The connection is opened on
// first use, so commands that never touch the chain do not need a network.
type Client struct {
	cfg    *config.RuntimeConfig
	signer *KeySigner
	log    *slog.Logger

	mu      sync.Mutex
	backend Backend
	closer  func()
	chainID *big.Int
}

// NewClient creates a client for the configured network
func NewClient(cfg *config.RuntimeConfig, signer *KeySigner, log *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		signer: signer,
		log:    log.With("component", "chain"),
	}
}

// NewClientWithBackend creates a client over an already connected backend
func NewClientWithBackend(cfg *config.RuntimeConfig, signer *KeySigner, backend Backend, log *slog.Logger) *Client {
	c := NewClient(cfg, signer, log)
	c.backend = backend
	return c
}

// Close releases the RPC connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closer != nil {
		c.closer()
		c.closer = nil
	}
	c.backend = nil
}

func (c *Client) conn(ctx context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return c.backend, nil
	}
	if c.cfg.Network == nil {
		return nil, domain.ErrNoNetwork
	}

	client, err := ethclient.DialContext(ctx, c.cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	c.log.Debug("connected", "network", c.cfg.Network.Name, "rpc", c.cfg.Network.RPCURL)
	c.backend = client
	c.closer = client.Close
	return client, nil
}

// ChainID returns the chain id reported by the endpoint
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.chainIDBig(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (c *Client) chainIDBig(ctx context.Context) (*big.Int, error) {
	backend, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	cached := c.chainID
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	id, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return id, nil
}

// Submit signs req as an EIP-1559 transaction and broadcasts it
func (c *Client) Submit(ctx context.Context, req usecase.TxRequest) (*usecase.PendingTx, error) {
	from, err := c.signer.Address()
	if err != nil {
		return nil, err
	}
	backend, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := c.chainIDBig(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    req.To,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed (the transaction would revert): %w", err)
	}
	gas = uint64(float64(gas) * c.cfg.UUPS.GasMultiplier)

	tipCap, feeCap, err := c.fees(ctx, backend)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        req.To,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := c.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.log.Debug("sent transaction", "tx", signed.Hash().Hex(), "nonce", nonce, "gas", gas)
	return &usecase.PendingTx{Hash: signed.Hash(), From: from, Nonce: nonce}, nil
}

// fees returns the tip and fee caps, allowing the base fee to double before the
// transaction stops being includable
func (c *Client) fees(ctx context.Context, backend Backend) (*big.Int, *big.Int, error) {
	tipCap, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	if head.BaseFee == nil {
		price, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		return price, price, nil
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return tipCap, feeCap, nil
}

// Wait polls for the receipt of hash until it is mined, the confirmation timeout
// elapses or ctx is done. The last two are reported as TxTimeout.
func (c *Client) Wait(ctx context.Context, hash common.Hash) (*usecase.TxOutcome, error) {
	backend, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.UUPS.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.UUPS.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return outcomeOf(receipt), nil
		}
		if !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			c.log.Debug("receipt lookup failed, retrying", "tx", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			c.log.Debug("stopped waiting for receipt", "tx", hash.Hex(), "reason", ctx.Err())
			return &usecase.TxOutcome{Status: domain.TxTimeout}, nil
		case <-ticker.C:
		}
	}
}

func outcomeOf(receipt *types.Receipt) *usecase.TxOutcome {
	outcome := &usecase.TxOutcome{
		Status:          domain.TxConfirmed,
		GasUsed:         receipt.GasUsed,
		ContractAddress: receipt.ContractAddress,
	}
	if receipt.BlockNumber != nil {
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		outcome.Status = domain.TxReverted
	}
	return outcome
}

// Call runs a read-only call against the latest block
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	backend, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	if from, err := c.signer.Address(); err == nil {
		msg.From = from
	}
	ret, err := backend.CallContract(ctx, msg, nil)
	if err != nil && isRevert(err) {
		return nil, fmt.Errorf("%w: %v", domain.ErrCallReverted, err)
	}
	return ret, err
}

// isRevert reports whether err came back from the EVM rather than the transport
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// CodeAt returns the runtime code at addr
func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	backend, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return backend.CodeAt(ctx, addr, nil)
}

// StorageAt returns one storage word of addr
func (c *Client) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	backend, err := c.conn(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	value, err := backend.StorageAt(ctx, addr, slot, nil)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(value), nil
}

var _ usecase.ChainClient = (*Client)(nil)
