package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

func TestDeployProxy(t *testing.T) {
	ctx := context.Background()

	t.Run("deploys and initializes in one transaction", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{
			ContractID: "Box",
			InitArgs:   []string{"42"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, h.chain.submissions())
		assert.Equal(t, "Box", res.Proxy.Name)
		assert.Equal(t, uint64(1), res.Proxy.Version)
		assert.True(t, res.Proxy.Initialized)
		assert.Equal(t, deployer, res.Proxy.Admin)

		record := res.Record
		assert.Equal(t, models.RecordDeploy, record.Kind)
		assert.Equal(t, uint64(testChainID), record.ChainID)
		assert.Equal(t, h.fx.Box.ID, record.ContractID)
		assert.Equal(t, h.fx.Box.BytecodeHash, record.BytecodeHash)
		assert.False(t, record.ReconciledAfterTimeout)
		require.NotNil(t, record.Call)
		assert.Equal(t, "initialize(uint256)", record.Call.Method)
		assert.Equal(t, []string{"42"}, record.Call.Args)
		assert.NotEmpty(t, record.ID)

		assert.Equal(t, record.Implementation, h.chain.implementation(record.ProxyAddress))
		assert.Equal(t, "42", h.read(t, "Box", "retrieve"))
		assert.Equal(t, deployer.Hex(), h.read(t, "Box", "owner"))

		stored, err := h.ledger.FindByName(ctx, testChainID, "Box")
		require.NoError(t, err)
		assert.Equal(t, record.ProxyAddress, stored.Address)
	})

	t.Run("names identify independent proxies", func(t *testing.T) {
		h := newHarness(t)

		a := h.deployBox(t, "BoxA", "1")
		b := h.deployBox(t, "BoxB", "2")

		assert.NotEqual(t, a.Proxy.Address, b.Proxy.Address)
		assert.Equal(t, "1", h.read(t, "BoxA", "retrieve"))
		assert.Equal(t, "2", h.read(t, "BoxB", "retrieve"))
	})

	t.Run("second initialization of a name is rejected before sending", func(t *testing.T) {
		h := newHarness(t)
		h.deployBox(t, "Box", "42")
		sent := h.chain.submissions()

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{
			ContractID: "Box",
			InitArgs:   []string{"7"},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
		assert.Equal(t, sent, h.chain.submissions())
		assert.Equal(t, "42", h.read(t, "Box", "retrieve"))
	})

	t.Run("implementation without upgrade entry points is rejected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "NotUUPS", InitArgs: []string{"1"}})

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, string(layout.RuleNotUpgradeable), validationErr.Violation.Rule)
		assert.Zero(t, h.chain.submissions())
	})

	t.Run("artifact without storage layout is rejected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "NoLayout", InitArgs: []string{"1"}})

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, string(layout.RuleLayoutUnknown), validationErr.Violation.Rule)
		assert.Contains(t, validationErr.Violation.Reason, "storageLayout")
		assert.Zero(t, h.chain.submissions())
	})

	t.Run("unknown contract", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "Missing"})

		var resolutionErr *domain.ResolutionError
		require.ErrorAs(t, err, &resolutionErr)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Zero(t, h.chain.submissions())
	})

	t.Run("initializer arguments that do not fit", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "Box", InitArgs: []string{"forty-two"}})

		var argErr *domain.ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Zero(t, h.chain.submissions())
	})

	t.Run("no network configured", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Network = nil

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "Box", InitArgs: []string{"1"}})
		assert.ErrorIs(t, err, domain.ErrNoNetwork)
	})

	t.Run("rpc endpoint serving another chain", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Network.ChainID = 1

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "Box", InitArgs: []string{"1"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expects chain 1")
		assert.Zero(t, h.chain.submissions())
	})

	t.Run("proxy that lands after the confirmation timeout is recorded", func(t *testing.T) {
		h := newHarness(t)
		h.chain.failNext(faultNone, faultLandLate)

		res, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "Box", InitArgs: []string{"42"}})
		require.NoError(t, err)

		assert.True(t, res.Record.ReconciledAfterTimeout)
		assert.Equal(t, uint64(1), res.Proxy.Version)
		assert.Equal(t, "42", h.read(t, "Box", "retrieve"))
	})

	t.Run("proxy that never lands is not recorded", func(t *testing.T) {
		h := newHarness(t)
		h.chain.failNext(faultNone, faultNeverMined)

		_, err := h.deployUseCase().Run(ctx, usecase.DeployProxyParams{ContractID: "Box", InitArgs: []string{"42"}})

		var chainErr *domain.ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, domain.TxTimeout, chainErr.Status)
		assert.NotEmpty(t, chainErr.TxHash)

		_, err = h.ledger.FindByName(ctx, testChainID, "Box")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cancellation while the proxy is pending still records it", func(t *testing.T) {
		h := newHarness(t)
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var waits int
		h.chain.setOnWait(func(common.Hash) {
			waits++
			if waits == 2 {
				cancel()
			}
		})

		res, err := h.deployUseCase().Run(runCtx, usecase.DeployProxyParams{ContractID: "Box", InitArgs: []string{"42"}})
		require.NoError(t, err)
		assert.True(t, res.Record.ReconciledAfterTimeout)

		stored, err := h.ledger.FindByName(ctx, testChainID, "Box")
		require.NoError(t, err)
		assert.Equal(t, res.Record.ProxyAddress, stored.Address)
	})

	t.Run("concurrent deploys of one name initialize it once", func(t *testing.T) {
		h := newHarness(t)
		uc := h.deployUseCase()

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = uc.Run(ctx, usecase.DeployProxyParams{ContractID: "Box", InitArgs: []string{"42"}})
			}(i)
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 2, h.chain.submissions())
	})
}
