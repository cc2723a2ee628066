// Package campaign runs randomized differential-testing campaigns against
// one kernel. A campaign is a fixed number of sequential trials; each trial
// generates a fresh case, computes the oracle value, runs the kernel and
// verifies the result. The first failing trial aborts the campaign.
//
// For dot, trials are split into two phases: a small phase with a fixed
// short length, so early failures are easy to read, followed by a general
// phase with lengths drawn uniformly from [1, MaxN].
package campaign

import (
	"fmt"
	"time"

	"kernelcheck/internal/generator"
	"kernelcheck/internal/kernel"
)

// Status is the campaign state.
type Status string

const (
	StatusInit    Status = "/init"    // Plan validated, nothing run yet
	StatusSmall   Status = "/small"   // Running fixed-length trials
	StatusGeneral Status = "/general" // Running random-length trials
	StatusDone    Status = "/done"    // Every trial passed
	StatusAborted Status = "/aborted" // A trial failed or the run was canceled
)

// Phase identifies a group of trials sharing a size policy.
type Phase string

const (
	PhaseSmall   Phase = "/small"
	PhaseGeneral Phase = "/general"
)

const (
	// DefaultTrials is the number of trials per campaign.
	DefaultTrials = 50
	// DefaultSmallN is the dot length used in the small phase.
	DefaultSmallN = 5
)

// Plan describes one campaign.
type Plan struct {
	Kind kernel.Kind `yaml:"kind" json:"kind"`

	// Trials is the total number of trials, small phase included.
	Trials int `yaml:"trials" json:"trials"`

	// SmallTrials run first with n = SmallN. Ignored for umul.
	SmallTrials int `yaml:"small_trials" json:"small_trials"`
	SmallN      int `yaml:"small_n" json:"small_n"`

	// MaxN bounds the dot length in the general phase.
	MaxN int `yaml:"max_n" json:"max_n"`
}

// DefaultPlan returns the standard plan for kind: 50 umul trials, or 50 dot
// trials of which the first half use n = 5 and the rest n in [1, 1024].
func DefaultPlan(kind kernel.Kind) Plan {
	p := Plan{Kind: kind, Trials: DefaultTrials}
	if kind == kernel.KindDot {
		p.SmallTrials = DefaultTrials / 2
		p.SmallN = DefaultSmallN
		p.MaxN = kernel.DefaultMaxN
	}
	return p
}

// PhaseTrials returns how many trials the given phase runs.
func (p Plan) PhaseTrials(phase Phase) int {
	small := 0
	if p.Kind == kernel.KindDot {
		small = p.SmallTrials
	}
	if phase == PhaseSmall {
		return small
	}
	return p.Trials - small
}

// SizePolicy returns the generator size policy for phase.
func (p Plan) SizePolicy(phase Phase) generator.SizePolicy {
	if phase == PhaseSmall {
		return generator.SizePolicy{Fixed: p.SmallN}
	}
	return generator.SizePolicy{Max: p.MaxN}
}

// Validate rejects a plan that could fail for reasons other than the kernel.
// values is the generator's value range; every trial must be able to draw
// its distinct operands from it.
func (p Plan) Validate(values generator.Range) error {
	cfgErr := func(param, format string, args ...any) error {
		return &kernel.ConfigurationError{Param: param, Reason: fmt.Sprintf(format, args...)}
	}

	if _, err := kernel.ParseKind(string(p.Kind)); err != nil {
		return err
	}
	if err := values.Validate(); err != nil {
		return err
	}
	if p.Trials < 1 {
		return cfgErr("trials", "must be at least 1, got %d", p.Trials)
	}

	if p.Kind == kernel.KindUMul {
		if values.Size() < 2 {
			return cfgErr("values", "umul needs 2 distinct values, range holds %d", values.Size())
		}
		return nil
	}

	if p.SmallTrials < 0 || p.SmallTrials > p.Trials {
		return cfgErr("small_trials", "must be in [0, %d], got %d", p.Trials, p.SmallTrials)
	}
	largest := 0
	if p.SmallTrials > 0 {
		if p.SmallN < 1 {
			return cfgErr("small_n", "must be at least 1, got %d", p.SmallN)
		}
		largest = p.SmallN
	}
	if p.PhaseTrials(PhaseGeneral) > 0 {
		if p.MaxN < 1 {
			return cfgErr("max_n", "must be at least 1, got %d", p.MaxN)
		}
		if p.SmallTrials > 0 && p.SmallN > p.MaxN {
			return cfgErr("small_n", "%d exceeds max_n %d", p.SmallN, p.MaxN)
		}
		largest = max(largest, p.MaxN)
	}
	if need := 2 * uint64(largest); need > values.Size() {
		return cfgErr("values", "dot with n=%d needs %d distinct values, range [%d, %d] holds %d",
			largest, need, values.Min, values.Max, values.Size())
	}
	return nil
}

// Summary reports a finished or aborted campaign.
type Summary struct {
	// ID correlates every log line of one campaign.
	ID            string        `json:"id"`
	Kind          kernel.Kind   `json:"kind"`
	Seed          uint64        `json:"seed"`
	Status        Status        `json:"status"`
	Trials        int           `json:"trials"`
	Passed        int           `json:"passed"`
	SmallPassed   int           `json:"small_passed"`
	GeneralPassed int           `json:"general_passed"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// TrialEvent describes one completed trial, passed or failed.
type TrialEvent struct {
	CampaignID string
	Kind       kernel.Kind
	Phase      Phase
	// Trial is 1-based across the whole campaign.
	Trial    int
	Instance kernel.Instance
	Expected uint32
	Duration time.Duration
	Err      error
}

// TrialError is the failure that aborted a campaign. It unwraps to the
// taxonomy error from the kernel package.
type TrialError struct {
	CampaignID string
	Kind       kernel.Kind
	Phase      Phase
	Trial      int
	Instance   kernel.Instance
	Expected   uint32
	Err        error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("%s trial %d (%s): %v", e.Kind, e.Trial, e.Phase, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }

// Input renders the failing case in full, in the kernel's protocol form.
// It is empty when the failure happened before a case was generated.
func (e *TrialError) Input() string {
	if e.Instance == nil {
		return ""
	}
	s, err := kernel.EncodeString(e.Instance)
	if err != nil {
		return ""
	}
	return s
}
