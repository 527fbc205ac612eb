package usecase

import (
	"context"

	"github.com/trebuchet-org/uups-cli/internal/domain/config"
)

// ShowConfigResult pairs the saved checkout defaults with the foundry profile they
// select for this run
type ShowConfigResult struct {
	Local *config.LocalConfig
	Path  string
	Saved bool

	// Profile is the namespace in effect after flags and environment
	Profile       string
	UUPS          config.UUPSConfig
	StorageLayout bool
}

// ShowConfig reports the local defaults and the orchestrator settings they lead to
type ShowConfig struct {
	cfg   *config.RuntimeConfig
	store LocalConfigStore
}

// NewShowConfig creates a new ShowConfig use case
func NewShowConfig(cfg *config.RuntimeConfig, store LocalConfigStore) *ShowConfig {
	return &ShowConfig{cfg: cfg, store: store}
}

func (uc *ShowConfig) Run(ctx context.Context) (*ShowConfigResult, error) {
	local, err := uc.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &ShowConfigResult{
		Local:         local,
		Path:          uc.store.GetPath(),
		Saved:         uc.store.Exists(),
		Profile:       uc.cfg.Namespace,
		UUPS:          uc.cfg.UUPS,
		StorageLayout: uc.cfg.EmitsStorageLayout(),
	}, nil
}
