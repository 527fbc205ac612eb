package adapters

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/trebuchet-org/uups-cli/internal/adapters/abi"
	"github.com/trebuchet-org/uups-cli/internal/adapters/blockchain"
	"github.com/trebuchet-org/uups-cli/internal/adapters/fs"
	"github.com/trebuchet-org/uups-cli/internal/adapters/interactive"
	"github.com/trebuchet-org/uups-cli/internal/adapters/progress"
	"github.com/trebuchet-org/uups-cli/internal/adapters/repository/contracts"
	"github.com/trebuchet-org/uups-cli/internal/adapters/repository/ledger"
	internalconfig "github.com/trebuchet-org/uups-cli/internal/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// ProvideLedger opens the file ledger in the data directory. The cleanup closes it.
func ProvideLedger(cfg *config.RuntimeConfig, log *slog.Logger) (*ledger.FileLedger, func(), error) {
	l, err := ledger.NewFileLedger(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Close(); err != nil {
			log.Warn("failed to close ledger", "path", l.Path(), "error", err)
		}
	}, nil
}

// ProvideChainClient creates the RPC client. It dials on first use; the cleanup
// closes the connection if one was made.
func ProvideChainClient(cfg *config.RuntimeConfig, signer *blockchain.KeySigner, log *slog.Logger) (*blockchain.Client, func()) {
	client := blockchain.NewClient(cfg, signer, log)
	return client, client.Close
}

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	ProvideLedger,
	wire.Bind(new(usecase.DeploymentLedger), new(*ledger.FileLedger)),

	contracts.NewRepository,
	wire.Bind(new(usecase.ArtifactResolver), new(*contracts.Repository)),

	fs.NewLocalConfigStoreAdapter,
	wire.Bind(new(usecase.LocalConfigStore), new(*fs.LocalConfigStoreAdapter)),

	fs.NewLockDir,
	wire.Bind(new(usecase.ProcessLock), new(*fs.LockDir)),
)

// BlockchainSet provides the signer and the RPC client
var BlockchainSet = wire.NewSet(
	blockchain.NewKeySigner,
	wire.Bind(new(usecase.Signer), new(*blockchain.KeySigner)),

	ProvideChainClient,
	wire.Bind(new(usecase.ChainClient), new(*blockchain.Client)),
)

// ABISet provides calldata encoding
var ABISet = wire.NewSet(
	abi.NewEncoder,
	wire.Bind(new(usecase.CallEncoder), new(*abi.Encoder)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.ProxySelector), new(*interactive.SelectorAdapter)),
	wire.Bind(new(usecase.Confirmer), new(*interactive.SelectorAdapter)),

	progress.NewProgressSink,
)

// ConfigSet provides configuration-based implementations
var ConfigSet = wire.NewSet(
	internalconfig.ProvideNetworkResolver,
	wire.Bind(new(usecase.NetworkResolver), new(*internalconfig.NetworkResolver)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	BlockchainSet,
	ABISet,
	InteractiveSet,
	ConfigSet,
)
