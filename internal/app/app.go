package app

import (
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig

	// Shared dependencies
	Sink usecase.ProgressSink

	// Use cases
	DeployProxy     *usecase.DeployProxy
	UpgradeProxy    *usecase.UpgradeProxy
	ShowStatus      *usecase.ShowStatus
	ListProxies     *usecase.ListProxies
	ValidateUpgrade *usecase.ValidateUpgrade
	InspectLayout   *usecase.InspectLayout
	CallProxy       *usecase.CallProxy
	ApplyPlan       *usecase.ApplyPlan
	ListNetworks    *usecase.ListNetworks
	ShowConfig      *usecase.ShowConfig
	SetConfig       *usecase.SetConfig
	RemoveConfig    *usecase.RemoveConfig
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	sink usecase.ProgressSink,
	deployProxy *usecase.DeployProxy,
	upgradeProxy *usecase.UpgradeProxy,
	showStatus *usecase.ShowStatus,
	listProxies *usecase.ListProxies,
	validateUpgrade *usecase.ValidateUpgrade,
	inspectLayout *usecase.InspectLayout,
	callProxy *usecase.CallProxy,
	applyPlan *usecase.ApplyPlan,
	listNetworks *usecase.ListNetworks,
	showConfig *usecase.ShowConfig,
	setConfig *usecase.SetConfig,
	removeConfig *usecase.RemoveConfig,
) (*App, error) {
	return &App{
		Config:          cfg,
		Sink:            sink,
		DeployProxy:     deployProxy,
		UpgradeProxy:    upgradeProxy,
		ShowStatus:      showStatus,
		ListProxies:     listProxies,
		ValidateUpgrade: validateUpgrade,
		InspectLayout:   inspectLayout,
		CallProxy:       callProxy,
		ApplyPlan:       applyPlan,
		ListNetworks:    listNetworks,
		ShowConfig:      showConfig,
		SetConfig:       setConfig,
		RemoveConfig:    removeConfig,
	}, nil
}
