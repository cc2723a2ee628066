package campaign

import (
	"context"
	"fmt"
	"time"

	"kernelcheck/internal/generator"
	"kernelcheck/internal/invoker"
	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"
	"kernelcheck/internal/oracle"
	"kernelcheck/internal/verification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invoker runs the kernel on one instance. *invoker.Invoker implements it.
type Invoker interface {
	Invoke(ctx context.Context, inst kernel.Instance) (*invoker.Outcome, error)
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithObserver registers fn to receive every completed trial.
func WithObserver(fn func(TrialEvent)) DriverOption {
	return func(d *Driver) { d.observer = fn }
}

// Driver runs one campaign. It owns its generator; a Driver must not be
// shared between goroutines.
type Driver struct {
	plan     Plan
	gen      *generator.Generator
	inv      Invoker
	observer func(TrialEvent)
	status   Status
	log      *zap.Logger
}

// NewDriver validates plan against the generator's value range. A plan that
// cannot be run fails here, before any kernel process is spawned.
func NewDriver(plan Plan, gen *generator.Generator, inv Invoker, opts ...DriverOption) (*Driver, error) {
	if err := plan.Validate(gen.Values()); err != nil {
		return nil, err
	}
	d := &Driver{
		plan:   plan,
		gen:    gen,
		inv:    inv,
		status: StatusInit,
		log:    logging.Get(logging.CategoryCampaign),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Plan returns the campaign plan.
func (d *Driver) Plan() Plan { return d.plan }

// Status returns the current campaign state.
func (d *Driver) Status() Status { return d.status }

// Run executes every trial in order, small phase first, and stops at the
// first failure. The summary is returned in both cases; on failure the
// error is a *TrialError, or the context's error if the run was canceled.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	id := fmt.Sprintf("/campaign_%s", uuid.New().String()[:8])
	summary := &Summary{
		ID:        id,
		Kind:      d.plan.Kind,
		Seed:      d.gen.Seed(),
		Status:    StatusInit,
		Trials:    d.plan.Trials,
		StartedAt: time.Now(),
	}
	log := d.log.With(zap.String("campaign", id), zap.String("kind", d.plan.Kind.String()))
	log.Info("campaign started",
		zap.Uint64("seed", summary.Seed),
		zap.Int("trials", d.plan.Trials),
		zap.Int("small_trials", d.plan.PhaseTrials(PhaseSmall)))

	finish := func(status Status) {
		d.status = status
		summary.Status = status
		summary.Duration = time.Since(summary.StartedAt)
	}

	trial := 0
	for _, phase := range []Phase{PhaseSmall, PhaseGeneral} {
		count := d.plan.PhaseTrials(phase)
		if count == 0 {
			continue
		}
		d.status = Status(phase)
		summary.Status = d.status
		log.Debug("phase started", zap.String("phase", string(phase)), zap.Int("trials", count))

		for i := 0; i < count; i++ {
			trial++
			if err := ctx.Err(); err != nil {
				finish(StatusAborted)
				log.Warn("campaign canceled", zap.Int("trial", trial), zap.Error(err))
				return summary, fmt.Errorf("campaign %s canceled before trial %d: %w", id, trial, err)
			}

			if err := d.runTrial(ctx, id, phase, trial); err != nil {
				finish(StatusAborted)
				if ctxErr := ctx.Err(); ctxErr != nil {
					log.Warn("campaign canceled", zap.Int("trial", trial), zap.Error(ctxErr))
					return summary, fmt.Errorf("campaign %s canceled during trial %d: %w", id, trial, ctxErr)
				}
				log.Error("campaign aborted",
					zap.Int("trial", trial),
					zap.String("phase", string(phase)),
					zap.String("class", kernel.Class(err)),
					zap.Int("passed", summary.Passed))
				return summary, err
			}

			summary.Passed++
			if phase == PhaseSmall {
				summary.SmallPassed++
			} else {
				summary.GeneralPassed++
			}
		}
	}

	finish(StatusDone)
	log.Info("campaign passed",
		zap.Int("passed", summary.Passed),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// runTrial is Generate, Oracle, Invoke, Verify for one case.
func (d *Driver) runTrial(ctx context.Context, id string, phase Phase, trial int) error {
	start := time.Now()
	fail := func(inst kernel.Instance, expected uint32, err error) error {
		d.notify(TrialEvent{
			CampaignID: id, Kind: d.plan.Kind, Phase: phase, Trial: trial,
			Instance: inst, Expected: expected, Duration: time.Since(start), Err: err,
		})
		return &TrialError{
			CampaignID: id, Kind: d.plan.Kind, Phase: phase, Trial: trial,
			Instance: inst, Expected: expected, Err: err,
		}
	}

	inst, err := d.gen.Generate(d.plan.Kind, d.plan.SizePolicy(phase))
	if err != nil {
		return fail(nil, 0, err)
	}
	expected := oracle.Expected(inst)

	outcome, err := d.inv.Invoke(ctx, inst)
	if err != nil {
		return fail(inst, expected, err)
	}
	if err := verification.Verify(inst, expected, outcome); err != nil {
		return fail(inst, expected, err)
	}

	d.log.Debug("trial passed",
		zap.String("campaign", id),
		zap.Int("trial", trial),
		zap.String("expected", kernel.Hex32(expected)),
		zap.String("request_id", outcome.RequestID))
	d.notify(TrialEvent{
		CampaignID: id, Kind: d.plan.Kind, Phase: phase, Trial: trial,
		Instance: inst, Expected: expected, Duration: time.Since(start),
	})
	return nil
}

func (d *Driver) notify(ev TrialEvent) {
	if d.observer != nil {
		d.observer(ev)
	}
}
