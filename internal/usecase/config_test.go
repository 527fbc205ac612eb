package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// memoryConfigStore keeps the local config in memory
type memoryConfigStore struct {
	cfg *config.LocalConfig
}

func (s *memoryConfigStore) Exists() bool { return s.cfg != nil }

func (s *memoryConfigStore) Load(context.Context) (*config.LocalConfig, error) {
	if s.cfg == nil {
		return config.DefaultLocalConfig(), nil
	}
	loaded := *s.cfg
	return &loaded, nil
}

func (s *memoryConfigStore) Save(_ context.Context, cfg *config.LocalConfig) error {
	saved := *cfg
	s.cfg = &saved
	return nil
}

func (s *memoryConfigStore) GetPath() string { return ".uups/config.local.json" }

func TestConfigUseCases(t *testing.T) {
	ctx := context.Background()

	networks := func() *MockNetworkResolver {
		resolver := new(MockNetworkResolver)
		resolver.On("GetNetworks", mock.Anything).Return([]string{"anvil", "sepolia"})
		return resolver
	}

	t.Run("show defaults without a config file", func(t *testing.T) {
		cfg := &config.RuntimeConfig{Namespace: "default", UUPS: config.UUPSConfig{}.WithDefaults()}
		res, err := usecase.NewShowConfig(cfg, &memoryConfigStore{}).Run(ctx)
		require.NoError(t, err)
		assert.False(t, res.Saved)
		assert.Equal(t, "default", res.Local.Namespace)
		assert.Empty(t, res.Local.Network)
		assert.Equal(t, config.DefaultProxyArtifact, res.UUPS.ProxyArtifact)
	})

	t.Run("show reports the profile in effect", func(t *testing.T) {
		store := &memoryConfigStore{cfg: &config.LocalConfig{Namespace: "staging", Network: "anvil"}}
		cfg := &config.RuntimeConfig{
			Namespace: "production",
			FoundryConfig: &config.FoundryConfig{Profile: map[string]config.ProfileConfig{
				"default":    {ExtraOutput: []string{"storageLayout"}},
				"production": {ExtraOutput: []string{"metadata"}},
			}},
		}
		res, err := usecase.NewShowConfig(cfg, store).Run(ctx)
		require.NoError(t, err)
		assert.True(t, res.Saved)
		assert.Equal(t, "staging", res.Local.Namespace)
		assert.Equal(t, "production", res.Profile)
		assert.False(t, res.StorageLayout)
	})

	t.Run("set namespace by its short key", func(t *testing.T) {
		store := &memoryConfigStore{}
		res, err := usecase.NewSetConfig(store, networks()).Run(ctx, usecase.SetConfigParams{Key: "ns", Value: "staging"})
		require.NoError(t, err)
		assert.Equal(t, config.ConfigKeyNamespace, res.Key)
		assert.Equal(t, "staging", store.cfg.Namespace)
		assert.Equal(t, store.GetPath(), res.ConfigPath)
	})

	t.Run("set a known network", func(t *testing.T) {
		store := &memoryConfigStore{}
		_, err := usecase.NewSetConfig(store, networks()).Run(ctx, usecase.SetConfigParams{Key: "NETWORK", Value: "sepolia"})
		require.NoError(t, err)
		assert.Equal(t, "sepolia", store.cfg.Network)
	})

	t.Run("unknown network is refused", func(t *testing.T) {
		store := &memoryConfigStore{}
		_, err := usecase.NewSetConfig(store, networks()).Run(ctx, usecase.SetConfigParams{Key: "network", Value: "mainnet"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rpc_endpoints")
		assert.False(t, store.Exists())
	})

	t.Run("unknown key lists the valid ones", func(t *testing.T) {
		_, err := usecase.NewSetConfig(&memoryConfigStore{}, networks()).Run(ctx, usecase.SetConfigParams{Key: "color", Value: "red"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "namespace (ns), network")
	})

	t.Run("remove restores the default", func(t *testing.T) {
		store := &memoryConfigStore{cfg: &config.LocalConfig{Namespace: "staging", Network: "anvil"}}

		res, err := usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "namespace"})
		require.NoError(t, err)
		assert.Equal(t, "staging", res.RemovedValue)
		assert.Equal(t, "default", store.cfg.Namespace)

		res, err = usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
		require.NoError(t, err)
		assert.Equal(t, "anvil", res.RemovedValue)
		assert.Empty(t, store.cfg.Network)
	})

	t.Run("remove without a config file", func(t *testing.T) {
		_, err := usecase.NewRemoveConfig(&memoryConfigStore{}).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no config file")
	})
}
