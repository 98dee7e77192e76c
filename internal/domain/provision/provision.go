// Package provision defines the phases, outcomes and errors of the
// migration and provisioning sequence.
package provision

import (
	"errors"
	"fmt"
	"time"
)

// Phase identifies one step of the sequence. Phases run in numeric order.
type Phase int

const (
	PhaseSharedSchema Phase = iota + 1
	PhaseSuperTenant
	PhaseTenantSchema
	PhaseGuestTenant
	PhaseVerify
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseSharedSchema, PhaseSuperTenant, PhaseTenantSchema, PhaseGuestTenant, PhaseVerify}

func (p Phase) String() string {
	switch p {
	case PhaseSharedSchema:
		return "shared-schema"
	case PhaseSuperTenant:
		return "super-tenant"
	case PhaseTenantSchema:
		return "tenant-schema"
	case PhaseGuestTenant:
		return "guest-tenant"
	case PhaseVerify:
		return "verify"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Fatal reports whether a failure in p aborts the sequence.
func (p Phase) Fatal() bool {
	return p != PhaseSuperTenant && p != PhaseGuestTenant
}

// Outcome is the result of a single idempotent step.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already-exists"
	OutcomeApplied       Outcome = "applied"
	OutcomeUpToDate      Outcome = "up-to-date"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeFailed        Outcome = "failed"
)

// OK reports whether the outcome counts as success.
func (o Outcome) OK() bool { return o != OutcomeFailed }

// ExitCode maps an outcome to the status the admin commands terminate with.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeFailed:
		return 1
	case OutcomeAlreadyExists:
		return 3
	default:
		return 0
	}
}

var (
	// ErrMigrationPhaseFailed marks a fatal phase failure.
	ErrMigrationPhaseFailed = errors.New("migration phase failed")

	// ErrProvisioningDegraded marks a non-fatal provisioning failure.
	ErrProvisioningDegraded = errors.New("provisioning degraded")
)

// PhaseError records which phase failed and why.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %d (%s): %v", int(e.Phase), e.Phase, e.Err)
}

// Unwrap exposes both the phase class and the cause to errors.Is.
func (e *PhaseError) Unwrap() []error {
	if e.Phase.Fatal() {
		return []error{ErrMigrationPhaseFailed, e.Err}
	}
	return []error{ErrProvisioningDegraded, e.Err}
}

// PhaseResult is the recorded result of one phase.
type PhaseResult struct {
	Phase    Phase         `json:"phase"`
	Name     string        `json:"name"`
	Outcome  Outcome       `json:"outcome"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Err      error         `json:"-"`
}

// Report is the result of a full sequence run.
type Report struct {
	Results  []PhaseResult `json:"results"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Add appends r, turning non-fatal failures into warnings.
func (rep *Report) Add(r PhaseResult) {
	r.Name = r.Phase.String()
	rep.Results = append(rep.Results, r)
	if r.Outcome == OutcomeFailed && !r.Phase.Fatal() {
		rep.Warnings = append(rep.Warnings, (&PhaseError{Phase: r.Phase, Err: r.Err}).Error())
	}
}

// Result returns the result recorded for p.
func (rep *Report) Result(p Phase) (PhaseResult, bool) {
	for _, r := range rep.Results {
		if r.Phase == p {
			return r, true
		}
	}
	return PhaseResult{}, false
}

// Degraded reports whether any non-fatal phase failed.
func (rep *Report) Degraded() bool { return len(rep.Warnings) > 0 }

// Complete reports whether every phase ran and none failed fatally.
func (rep *Report) Complete() bool {
	if len(rep.Results) != len(Phases) {
		return false
	}
	for _, r := range rep.Results {
		if r.Outcome == OutcomeFailed && r.Phase.Fatal() {
			return false
		}
	}
	return true
}
