package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	cfotel "github.com/tradeloom/tradeloom/internal/adapter/otel"
	"github.com/tradeloom/tradeloom/internal/domain/provision"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/port/database"
	"github.com/tradeloom/tradeloom/internal/port/messagequeue"
)

// Provisioner creates the default tenants. TenantService implements it.
type Provisioner interface {
	EnsureSuperTenant(ctx context.Context) (*tenant.Tenant, provision.Outcome, error)
	EnsureGuestTenant(ctx context.Context) (*tenant.Tenant, provision.Outcome, error)
	SetSchemaVersion(v int64)
}

// Sequencer runs the five provisioning phases in order. Each phase is
// idempotent, so a full run may be repeated safely.
type Sequencer struct {
	migrator    database.Migrator
	tenants     database.TenantStore
	provisioner Provisioner
	events      *Events
	metrics     *cfotel.Metrics
	skipGuest   bool
}

// NewSequencer creates a sequencer.
func NewSequencer(m database.Migrator, tenants database.TenantStore, p Provisioner) *Sequencer {
	return &Sequencer{migrator: m, tenants: tenants, provisioner: p}
}

// SetEvents sets the event publisher.
func (s *Sequencer) SetEvents(e *Events) { s.events = e }

// SetMetrics sets the metrics recorder.
func (s *Sequencer) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// SetSkipGuest disables the guest-tenant phase for this sequencer.
func (s *Sequencer) SetSkipGuest(skip bool) { s.skipGuest = skip }

type stepFunc func(ctx context.Context) (provision.Outcome, string, error)

// Run executes every phase. A failure in a fatal phase stops the run and is
// returned as a *provision.PhaseError; failures in the provisioning phases
// are recorded as warnings and the run continues. The report is returned
// in both cases.
func (s *Sequencer) Run(ctx context.Context) (*provision.Report, error) {
	steps := map[provision.Phase]stepFunc{
		provision.PhaseSharedSchema: s.sharedSchema,
		provision.PhaseSuperTenant:  s.superTenant,
		provision.PhaseTenantSchema: s.tenantSchema,
		provision.PhaseGuestTenant:  s.guestTenant,
		provision.PhaseVerify:       s.verify,
	}

	rep := &provision.Report{}
	for _, phase := range provision.Phases {
		if err := ctx.Err(); err != nil {
			at := abortPhase(phase)
			slog.ErrorContext(ctx, "provisioning aborted", "phase", at.String(), "error", err)
			rep.Add(provision.PhaseResult{Phase: at, Outcome: provision.OutcomeFailed, Err: err})
			s.finish(ctx, rep)
			return rep, &provision.PhaseError{Phase: at, Err: err}
		}

		res := s.runPhase(ctx, phase, steps[phase])
		rep.Add(res)
		if res.Err == nil {
			continue
		}

		perr := &provision.PhaseError{Phase: phase, Err: res.Err}
		if phase.Fatal() {
			slog.ErrorContext(ctx, "provisioning aborted", "phase", phase.String(), "error", res.Err)
			s.finish(ctx, rep)
			return rep, perr
		}
		slog.WarnContext(ctx, "provisioning degraded", "phase", phase.String(), "error", res.Err)
	}

	s.finish(ctx, rep)
	return rep, nil
}

// abortPhase is the first fatal phase at or after p. A cancelled run fails
// there, since the sequence cannot complete without it.
func abortPhase(p provision.Phase) provision.Phase {
	for _, q := range provision.Phases {
		if q >= p && q.Fatal() {
			return q
		}
	}
	return provision.PhaseVerify
}

func (s *Sequencer) runPhase(ctx context.Context, phase provision.Phase, step stepFunc) provision.PhaseResult {
	ctx, span := cfotel.StartPhaseSpan(ctx, int(phase), phase.String())
	start := time.Now()

	outcome, detail, err := step(ctx)
	if err != nil {
		outcome = provision.OutcomeFailed
	}
	d := time.Since(start)

	cfotel.EndSpan(span, err)
	s.metrics.RecordPhase(ctx, phase.String(), string(outcome), d)
	if err == nil {
		slog.InfoContext(ctx, "provisioning phase done",
			"phase", int(phase), "name", phase.String(), "outcome", string(outcome), "detail", detail, "duration", d)
	}
	return provision.PhaseResult{Phase: phase, Outcome: outcome, Detail: detail, Duration: d, Err: err}
}

func (s *Sequencer) sharedSchema(ctx context.Context) (provision.Outcome, string, error) {
	return s.migrate(ctx, database.SetShared)
}

func (s *Sequencer) migrate(ctx context.Context, set database.MigrationSet) (provision.Outcome, string, error) {
	n, err := s.migrator.Up(ctx, set)
	if err != nil {
		return provision.OutcomeFailed, "", err
	}
	v, err := s.migrator.Version(ctx, set)
	if err != nil {
		return provision.OutcomeFailed, "", err
	}
	if n == 0 {
		return provision.OutcomeUpToDate, fmt.Sprintf("%s schema at version %d", set, v), nil
	}
	return provision.OutcomeApplied, fmt.Sprintf("applied %d %s migrations, now at version %d", n, set, v), nil
}

func (s *Sequencer) superTenant(ctx context.Context) (provision.Outcome, string, error) {
	t, outcome, err := s.provisioner.EnsureSuperTenant(ctx)
	if err != nil {
		return provision.OutcomeFailed, "", err
	}
	return outcome, "tenant " + t.Slug, nil
}

// tenantSchema migrates the tenant set and stamps every existing tenant
// with the resulting version.
func (s *Sequencer) tenantSchema(ctx context.Context) (provision.Outcome, string, error) {
	outcome, detail, err := s.migrate(ctx, database.SetTenant)
	if err != nil {
		return provision.OutcomeFailed, "", err
	}
	v, err := s.migrator.Version(ctx, database.SetTenant)
	if err != nil {
		return provision.OutcomeFailed, "", err
	}
	stamped, err := s.tenants.MarkAllTenantSchemas(ctx, v)
	if err != nil {
		return provision.OutcomeFailed, "", fmt.Errorf("stamp tenants: %w", err)
	}
	s.provisioner.SetSchemaVersion(v)

	if stamped > 0 {
		outcome = provision.OutcomeApplied
		detail = fmt.Sprintf("%s, stamped %d tenants", detail, stamped)
	}
	return outcome, detail, nil
}

func (s *Sequencer) guestTenant(ctx context.Context) (provision.Outcome, string, error) {
	if s.skipGuest {
		return provision.OutcomeSkipped, "guest provisioning skipped", nil
	}
	t, outcome, err := s.provisioner.EnsureGuestTenant(ctx)
	if err != nil {
		return provision.OutcomeFailed, "", err
	}
	if outcome == provision.OutcomeSkipped {
		return outcome, "guest access disabled", nil
	}
	return outcome, "tenant " + t.Slug, nil
}

// verify checks that no migrations are pending and every tenant carries
// the current tenant-schema version.
func (s *Sequencer) verify(ctx context.Context) (provision.Outcome, string, error) {
	for _, set := range []database.MigrationSet{database.SetShared, database.SetTenant} {
		pending, err := s.migrator.Pending(ctx, set)
		if err != nil {
			return provision.OutcomeFailed, "", err
		}
		if pending {
			return provision.OutcomeFailed, "", fmt.Errorf("%s schema has pending migrations", set)
		}
	}

	latest := s.migrator.Latest(database.SetTenant)
	unmarked, err := s.tenants.UnmarkedTenants(ctx, latest)
	if err != nil {
		return provision.OutcomeFailed, "", err
	}
	if len(unmarked) > 0 {
		return provision.OutcomeFailed, "", fmt.Errorf("%d tenants not at tenant schema version %d: %s",
			len(unmarked), latest, strings.Join(unmarked, ", "))
	}
	return provision.OutcomeUpToDate, fmt.Sprintf("all tenants at schema version %d", latest), nil
}

func (s *Sequencer) finish(ctx context.Context, rep *provision.Report) {
	payload := messagequeue.ProvisioningCompletedPayload{
		Complete: rep.Complete(),
		Degraded: rep.Degraded(),
		Warnings: rep.Warnings,
	}
	for _, r := range rep.Results {
		payload.Phases = append(payload.Phases, messagequeue.PhaseSummary{
			Phase:   int(r.Phase),
			Name:    r.Name,
			Outcome: string(r.Outcome),
			Detail:  r.Detail,
		})
	}
	s.events.Publish(context.WithoutCancel(ctx), messagequeue.SubjectProvisioningCompleted, payload)
}
