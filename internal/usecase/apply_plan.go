package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// StepStatus is the outcome of one plan step
type StepStatus string

const (
	StepApplied StepStatus = "applied"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
	StepPending StepStatus = "pending"
)

// ApplyPlanParams contains parameters for applying a release plan
type ApplyPlanParams struct {
	Plan         *models.Plan
	AllowRenames bool
}

// StepResult is the outcome of one step
type StepResult struct {
	Step   models.PlanStep
	Status StepStatus
	Record *models.DeploymentRecord
	Err    error
}

// ApplyPlanResult contains the outcome of every step
type ApplyPlanResult struct {
	Steps []StepResult
}

// Failed returns the failed step, if any
func (r *ApplyPlanResult) Failed() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == StepFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// ApplyPlan runs deploy and upgrade steps in order and stops at the first failure.
// Steps whose effect the ledger already holds are skipped, so a plan can be re-run.
type ApplyPlan struct {
	cfg      *config.RuntimeConfig
	chain    ChainClient
	resolver ArtifactResolver
	ledger   DeploymentLedger
	deploy   *DeployProxy
	upgrade  *UpgradeProxy
	sink     ProgressSink
	log      *slog.Logger
}

// NewApplyPlan creates a new ApplyPlan use case
func NewApplyPlan(
	cfg *config.RuntimeConfig,
	chain ChainClient,
	resolver ArtifactResolver,
	ledger DeploymentLedger,
	deploy *DeployProxy,
	upgrade *UpgradeProxy,
	sink ProgressSink,
	log *slog.Logger,
) *ApplyPlan {
	return &ApplyPlan{
		cfg:      cfg,
		chain:    chain,
		resolver: resolver,
		ledger:   ledger,
		deploy:   deploy,
		upgrade:  upgrade,
		sink:     sink,
		log:      log.With("usecase", "apply"),
	}
}

// Run executes the apply plan use case. The returned error is the failed step's error.
func (uc *ApplyPlan) Run(ctx context.Context, params ApplyPlanParams) (*ApplyPlanResult, error) {
	result := &ApplyPlanResult{Steps: make([]StepResult, len(params.Plan.Steps))}
	for i, step := range params.Plan.Steps {
		result.Steps[i] = StepResult{Step: step, Status: StepPending}
	}

	for i, step := range params.Plan.Steps {
		uc.sink.Info(fmt.Sprintf("[%d/%d] %s", i+1, len(params.Plan.Steps), step.Describe()))

		record, err := uc.apply(ctx, step, params.AllowRenames)
		res := &result.Steps[i]
		res.Record = record

		switch {
		case err == nil:
			res.Status = StepApplied
		case errors.Is(err, domain.ErrAlreadyInitialized), errors.Is(err, domain.ErrAlreadyAtVersion):
			uc.log.Info("step already applied", "step", step.Describe(), "reason", err)
			res.Status = StepSkipped
			res.Err = err
		default:
			res.Status = StepFailed
			res.Err = err
			return result, fmt.Errorf("step %d (%s): %w", i+1, step.Describe(), err)
		}
	}
	return result, nil
}

func (uc *ApplyPlan) apply(ctx context.Context, step models.PlanStep, allowRenames bool) (*models.DeploymentRecord, error) {
	if step.IsDeploy() {
		res, err := uc.deploy.Run(ctx, DeployProxyParams{
			ContractID: step.Deploy,
			Name:       step.Name,
			InitMethod: step.Method,
			InitArgs:   step.Args,
		})
		if err != nil {
			return nil, err
		}
		return res.Record, nil
	}

	if record, err := uc.appliedUpgrade(ctx, step); err != nil || record != nil {
		if err != nil {
			return nil, err
		}
		return record, fmt.Errorf("%s already ran %s as version %d: %w",
			step.Upgrade, step.To, record.Version, domain.ErrAlreadyAtVersion)
	}

	res, err := uc.upgrade.Run(ctx, UpgradeProxyParams{
		Proxy:           step.Upgrade,
		ContractID:      step.To,
		MigrationMethod: step.Method,
		MigrationArgs:   step.Args,
		AllowRenames:    allowRenames,
	})
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// appliedUpgrade returns the history record of an earlier run of this upgrade step.
// Without it, re-running a plan after later steps moved the proxy on would roll it back.
func (uc *ApplyPlan) appliedUpgrade(ctx context.Context, step models.PlanStep) (*models.DeploymentRecord, error) {
	chainID, err := checkChainID(ctx, uc.chain, uc.cfg)
	if err != nil {
		return nil, err
	}
	state, err := lookupProxy(ctx, uc.ledger, nil, chainID, step.Upgrade)
	if err != nil {
		return nil, err
	}
	candidate, err := uc.resolver.Resolve(ctx, step.To)
	if err != nil {
		return nil, err
	}
	for _, record := range state.History {
		if record.Kind == models.RecordUpgrade && record.BytecodeHash == candidate.BytecodeHash {
			return record, nil
		}
	}
	return nil, nil
}
