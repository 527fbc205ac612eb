package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

func init() {
	color.NoColor = true
}

var (
	proxyAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	implV1    = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	implV2    = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	deployer  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func boxState() *models.ProxyState {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.ProxyState{
		Name:                  "Box",
		ChainID:               31337,
		Address:               proxyAddr,
		Kind:                  models.ProxyKind,
		CurrentImplementation: implV2,
		Admin:                 deployer,
		Initialized:           true,
		Version:               2,
		History: []*models.DeploymentRecord{
			{
				Kind: models.RecordDeploy, Version: 1, Implementation: implV1, ContractID: "src/Box.sol:Box",
				Call: &models.CallRecord{Method: "initialize(uint256)", Args: []string{"42"}}, Timestamp: ts,
			},
			{
				Kind: models.RecordUpgrade, Version: 2, Implementation: implV2, ContractID: "src/BoxV2.sol:BoxV2",
				Timestamp: ts.Add(time.Hour), ReconciledAfterTimeout: true,
			},
		},
	}
}

func TestNewErrorReport(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    domain.ErrorKind
		subject string
	}{
		{
			name:    "resolution",
			err:     &domain.ResolutionError{ContractID: "Bx", Err: domain.ErrNotFound},
			kind:    domain.KindResolution,
			subject: "Bx",
		},
		{
			name: "wrapped validation",
			err: fmt.Errorf("step 2: %w", &domain.ValidationError{
				Proxy: "Box@0x5F", ContractID: "BadBox",
				Violation: domain.Violation{Rule: "type-incompatible", Index: 1},
			}),
			kind:    domain.KindValidation,
			subject: "Box@0x5F",
		},
		{
			name:    "chain",
			err:     &domain.ChainError{Op: "upgrade", TxHash: "0xabc", Status: domain.TxReverted},
			kind:    domain.KindChain,
			subject: "0xabc",
		},
		{
			name: "already initialized",
			err:  fmt.Errorf("proxy Box: %w", domain.ErrAlreadyInitialized),
			kind: domain.KindAlreadyInitialized,
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			kind: domain.KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewErrorReport(tt.err)
			assert.Equal(t, tt.kind, report.Kind)
			assert.Equal(t, tt.subject, report.Subject)
			assert.Equal(t, tt.err.Error(), report.Error)
		})
	}
}

func TestFormatError(t *testing.T) {
	t.Run("capitalizes and keeps the full chain", func(t *testing.T) {
		out := FormatError(fmt.Errorf("failed to load config: %w", errors.New("bad toml")))
		assert.Equal(t, "❌ Failed to load config: bad toml", out)
	})

	t.Run("timeouts point at status", func(t *testing.T) {
		out := FormatError(&domain.ChainError{Op: "upgrade", TxHash: "0xabc", Status: domain.TxTimeout})
		assert.Contains(t, out, "Upgrade failed (timeout) tx=0xabc")
		assert.Contains(t, out, "uups status --verify")
	})
}

func TestProxyRenderer(t *testing.T) {
	t.Run("status lists history", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewProxyRenderer(&buf, false).RenderStatus(&usecase.StatusResult{Proxy: boxState(), Verified: true}))

		out := buf.String()
		assert.Contains(t, out, "Box "+proxyAddr.Hex())
		assert.Contains(t, out, "matches ledger")
		assert.Contains(t, out, "src/Box.sol:Box")
		assert.Contains(t, out, "src/BoxV2.sol:BoxV2")
		assert.Contains(t, out, "initialize(uint256)")
		assert.Contains(t, out, "v2 *")
	})

	t.Run("status as json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewProxyRenderer(&buf, true).RenderStatus(&usecase.StatusResult{Proxy: boxState(), Verified: true}))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "Box", got["name"])
		assert.Equal(t, true, got["verified"])
		assert.Len(t, got["history"], 2)
	})

	t.Run("list summary", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewProxyRenderer(&buf, false).RenderList(&usecase.ProxyListResult{
			ChainID: 31337,
			Proxies: []*models.ProxyState{boxState()},
			Summary: usecase.ProxySummary{Total: 1, Upgraded: 1, ByContract: map[string]int{"BoxV2": 1}},
		}))
		assert.Contains(t, buf.String(), "1 proxies, 1 upgraded (BoxV2: 1)")
	})

	t.Run("empty list", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewProxyRenderer(&buf, false).RenderList(&usecase.ProxyListResult{ChainID: 1}))
		assert.Equal(t, "No proxies found\n", buf.String())
	})
}

func TestLayoutRenderer(t *testing.T) {
	storage := &layout.StorageLayout{
		Entries: []layout.Entry{
			{Label: "x", Slot: "0", Type: "t_uint256"},
			{Label: "y", Slot: "1", Type: "t_uint256"},
		},
		Types: map[string]layout.TypeDescriptor{
			"t_uint256": {Label: "uint256", Encoding: "inplace", NumberOfBytes: 32},
		},
	}
	candidate := &models.LogicalContract{ID: "BadBox", Name: "BadBox", SourcePath: "src/BadBox.sol", StorageLayout: storage}

	t.Run("layout table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewLayoutRenderer(&buf, false).RenderLayout(candidate))
		assert.Contains(t, buf.String(), "src/BadBox.sol:BadBox")
		assert.Contains(t, buf.String(), "uint256")
	})

	t.Run("missing layout", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewLayoutRenderer(&buf, false).RenderLayout(&models.LogicalContract{Name: "Box"}))
		assert.Contains(t, buf.String(), "No storage layout")
	})

	t.Run("rejection highlights the entry", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewLayoutRenderer(&buf, false).RenderValidation(&usecase.ValidateUpgradeResult{
			Proxy:     boxState(),
			Candidate: candidate,
			Rejection: &domain.ValidationError{
				Proxy: "Box", ContractID: "BadBox",
				Violation: domain.Violation{Rule: "type-incompatible", Index: 1, Slot: "1", Label: "y", Reason: "address became uint256"},
			},
		}))
		assert.Contains(t, buf.String(), "✗ Type Incompatible")
		assert.Contains(t, buf.String(), "y ◀")
	})
}

func TestPlanRenderer(t *testing.T) {
	result := &usecase.ApplyPlanResult{Steps: []usecase.StepResult{
		{Step: models.PlanStep{Deploy: "Box", Name: "Box"}, Status: usecase.StepSkipped,
			Err: domain.ErrAlreadyInitialized},
		{Step: models.PlanStep{Upgrade: "Box", To: "BoxV2"}, Status: usecase.StepFailed,
			Err: &domain.ChainError{Op: "upgrade", Status: domain.TxReverted}},
	}}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPlanRenderer(&buf, false).RenderPlan(result))
		assert.Contains(t, buf.String(), "Skipped")
		assert.Contains(t, buf.String(), "Failed")
		assert.NotContains(t, buf.String(), "Plan applied")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPlanRenderer(&buf, true).RenderPlan(result))

		var got struct {
			Steps []stepReport `json:"steps"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got.Steps, 2)
		assert.Equal(t, usecase.StepSkipped, got.Steps[0].Status)
		require.NotNil(t, got.Steps[1].Error)
		assert.Equal(t, domain.KindChain, got.Steps[1].Error.Kind)
	})
}

func TestRuleTitle(t *testing.T) {
	assert.Equal(t, "Slot Removed", ruleTitle("slot-removed"))
	assert.Equal(t, "Not Upgradeable", ruleTitle("not-upgradeable"))
}

func TestConfigRenderer(t *testing.T) {
	result := &usecase.ShowConfigResult{
		Local:   &config.LocalConfig{Namespace: "staging", Network: "sepolia"},
		Path:    "/tmp/project/.uups/config.local.json",
		Saved:   true,
		Profile: "staging",
		UUPS: config.UUPSConfig{
			ProxyArtifact:  "ERC1967Proxy",
			PrivateKey:     "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
			ConfirmTimeout: 2 * time.Minute,
			GasMultiplier:  1.2,
		},
		StorageLayout: true,
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConfigRenderer(&buf, false).RenderConfig(result))
		out := buf.String()
		assert.Contains(t, out, "Network:   sepolia")
		assert.Contains(t, out, "Profile staging")
		assert.Contains(t, out, "Confirm timeout: 2m0s")
		assert.Contains(t, out, "Sender key:      set")
		assert.Contains(t, out, "Storage layout:  emitted")
		assert.NotContains(t, out, result.UUPS.PrivateKey)
	})

	t.Run("json never carries the key", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConfigRenderer(&buf, true).RenderConfig(result))
		assert.NotContains(t, buf.String(), result.UUPS.PrivateKey)

		var got struct {
			Saved   bool          `json:"saved"`
			Profile profileReport `json:"profile"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.True(t, got.Saved)
		assert.True(t, got.Profile.SenderKey)
		assert.Equal(t, "2m0s", got.Profile.ConfirmTimeout)
	})

	t.Run("profile without storage layouts", func(t *testing.T) {
		var buf bytes.Buffer
		noLayout := *result
		noLayout.StorageLayout = false
		require.NoError(t, NewConfigRenderer(&buf, false).RenderConfig(&noLayout))
		assert.Contains(t, buf.String(), "Profile staging does not emit storage layouts")
	})
}
