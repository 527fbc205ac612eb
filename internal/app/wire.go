//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/uups-cli/internal/adapters"
	"github.com/trebuchet-org/uups-cli/internal/config"
	"github.com/trebuchet-org/uups-cli/internal/logging"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// InitApp creates a fully wired App instance. The cleanup closes the ledger and
// the RPC connection.
func InitApp(v *viper.Viper) (*App, func(), error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewProxyLocks,
		usecase.NewDeployProxy,
		usecase.NewUpgradeProxy,
		usecase.NewShowStatus,
		usecase.NewListProxies,
		usecase.NewValidateUpgrade,
		usecase.NewInspectLayout,
		usecase.NewCallProxy,
		usecase.NewApplyPlan,
		usecase.NewListNetworks,
		usecase.NewShowConfig,
		usecase.NewSetConfig,
		usecase.NewRemoveConfig,

		// App
		NewApp,
	)
	return nil, nil, nil
}
