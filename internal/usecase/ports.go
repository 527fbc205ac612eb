package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// TxRequest is an unsigned transaction. To is nil for contract creation.
type TxRequest struct {
	To    *common.Address
	Data  []byte
	Value *big.Int
}

// PendingTx identifies a submitted transaction
type PendingTx struct {
	Hash  common.Hash
	From  common.Address
	Nonce uint64
}

// TxOutcome is what Wait observed for a transaction
type TxOutcome struct {
	Status          domain.TxStatus
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress common.Address // set for confirmed contract creations
}

// ChainClient sends transactions and reads chain state
type ChainClient interface {
	ChainID(ctx context.Context) (uint64, error)
	// Submit signs and broadcasts req. It does not wait for inclusion.
	Submit(ctx context.Context, req TxRequest) (*PendingTx, error)
	// Wait blocks until the transaction is mined or the confirmation timeout elapses.
	// A timeout or a cancelled ctx is reported as TxTimeout, not as an error.
	Wait(ctx context.Context, hash common.Hash) (*TxOutcome, error)
	// Call runs a read-only call. A revert is reported as an error wrapping
	// domain.ErrCallReverted; any other error means the call could not be made.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)
}

// Signer supplies the identity transactions are sent from
type Signer interface {
	Address() (common.Address, error)
}

// ArtifactResolver turns a contract reference into a deployable logical contract
type ArtifactResolver interface {
	// Resolve returns a *domain.ResolutionError when id matches no artifact.
	Resolve(ctx context.Context, id string) (*models.LogicalContract, error)
}

// DeploymentLedger is the append-only record of proxies and their implementations
type DeploymentLedger interface {
	RecordDeployment(ctx context.Context, name string, record *models.DeploymentRecord) error
	RecordUpgrade(ctx context.Context, record *models.DeploymentRecord) error
	Snapshot(ctx context.Context, chainID uint64, proxy common.Address) (*models.ProxyState, error)
	FindByName(ctx context.Context, chainID uint64, name string) (*models.ProxyState, error)
	List(ctx context.Context, chainID uint64) ([]*models.ProxyState, error)
	Close() error
}

// ProcessLock excludes other processes from a key, such as another uups run on the
// same checkout. Lock blocks until the key is free or ctx is done.
type ProcessLock interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// CallEncoder converts user supplied string arguments into ABI calldata
type CallEncoder interface {
	// EncodeCall packs method (a name or a full signature) with args.
	// It returns a *domain.ArgumentError when args do not fit the method.
	EncodeCall(contract *abi.ABI, method string, args []string) ([]byte, *abi.Method, error)
	DecodeResult(method *abi.Method, data []byte) ([]string, error)
}

// NetworkResolver maps foundry.toml rpc endpoints to networks
type NetworkResolver interface {
	GetNetworks(ctx context.Context) []string
	ResolveNetwork(ctx context.Context, name string) (*config.Network, error)
}

// Confirmer asks the operator to approve an irreversible step
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ProxySelector picks a proxy when none was named
type ProxySelector interface {
	SelectProxy(ctx context.Context, proxies []*models.ProxyState) (*models.ProxyState, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Message  string
	Spinner  bool
	Metadata any
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// AlwaysConfirm approves every prompt, used with --yes and in non-interactive mode
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(context.Context, string) (bool, error) { return true, nil }

// LocalConfigStore persists the per-checkout namespace and network defaults
type LocalConfigStore interface {
	Exists() bool
	Load(ctx context.Context) (*config.LocalConfig, error)
	Save(ctx context.Context, cfg *config.LocalConfig) error
	GetPath() string
}
