package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/gateway"
	"github.com/roach88/caseflow/internal/guard"
	cflog "github.com/roach88/caseflow/internal/log"
	"github.com/roach88/caseflow/internal/metrics"
	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/transition"
)

const tracerName = "github.com/roach88/caseflow/internal/engine"

// Engine validates and commits case transitions.
//
// Engine is safe for concurrent use. The transition table and guard
// registry are fixed at construction.
type Engine struct {
	gw      gateway.Gateway
	table   *transition.Table
	guards  *guard.Registry
	clock   Clock
	logger  zerolog.Logger
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for commit timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics records every request on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// New creates an Engine. A nil table means transition.Default() and a nil
// registry means guard.Default().
func New(gw gateway.Gateway, table *transition.Table, guards *guard.Registry, opts ...Option) *Engine {
	if table == nil {
		table = transition.Default()
	}
	if guards == nil {
		guards = guard.Default()
	}
	e := &Engine{
		gw:     gw,
		table:  table,
		guards: guards,
		clock:  SystemClock{},
		logger: zerolog.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the transition table the engine enforces.
func (e *Engine) Table() *transition.Table {
	return e.table
}

// Guards returns the guard registry the engine evaluates.
func (e *Engine) Guards() *guard.Registry {
	return e.guards
}

// RequestTransition moves case caseID to target if the table allows it, every
// guard passes on facts and reason is non-empty. On success the case row and
// one new audit record are committed together and the record is returned.
//
// Every failure is a *TransitionError. When it is returned, nothing was
// written.
func (e *Engine) RequestTransition(
	ctx context.Context,
	caseID string,
	target state.State,
	facts fact.Set,
	reason string,
) (model.AuditRecord, error) {
	started := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.RequestTransition", trace.WithAttributes(
		attribute.String("case.id", caseID),
		attribute.String("transition.to", label(target)),
	))
	defer span.End()

	from, rec, err := e.requestTransition(ctx, caseID, target, facts, reason)

	outcome := metrics.OutcomeCommitted
	if err != nil {
		outcome = string(CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(
		attribute.String("transition.from", label(from)),
		attribute.String("transition.outcome", outcome),
	)
	e.metrics.ObserveTransition(label(from), label(target), outcome, time.Since(started))
	e.logResult(caseID, from, target, rec, err)

	return rec, err
}

// CanTransition runs the checks of RequestTransition except the reason check
// and writes nothing. A nil error means the request would currently pass
// validation; it can still lose a race at commit time.
func (e *Engine) CanTransition(ctx context.Context, caseID string, target state.State, facts fact.Set) error {
	_, err := e.validate(ctx, caseID, target, facts)
	return err
}

func (e *Engine) requestTransition(
	ctx context.Context,
	caseID string,
	target state.State,
	facts fact.Set,
	reason string,
) (state.State, model.AuditRecord, error) {
	c, err := e.validate(ctx, caseID, target, facts)
	if err != nil {
		return c.CurrentState, model.AuditRecord{}, err
	}
	from := c.CurrentState

	reason = norm.NFC.String(strings.TrimSpace(reason))
	if reason == "" {
		return from, model.AuditRecord{}, newInvalidReason(caseID, from, target)
	}

	at := commitTime(e.clock.Now(), c.UpdatedAt)

	var rec model.AuditRecord
	err = e.gw.WithinTx(ctx, func(ctx context.Context, tx gateway.Tx) error {
		if err := tx.UpdateCaseState(ctx, gateway.StateChange{
			CaseID:          c.ID,
			From:            from,
			To:              target,
			ExpectedVersion: c.Version,
			At:              at,
		}); err != nil {
			return err
		}

		var err error
		rec, err = tx.AppendAudit(ctx, gateway.AuditEntry{
			CaseID: c.ID,
			From:   from,
			To:     target,
			Reason: reason,
			Facts:  facts,
			At:     at,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, gateway.ErrStaleCase) {
			return from, model.AuditRecord{}, newConcurrentModification(caseID, from, target, err)
		}
		return from, model.AuditRecord{}, newPersistenceFailure(caseID, from, target, err)
	}

	return from, rec, nil
}

// validate performs steps 1-4. The returned case is zero if loading failed.
func (e *Engine) validate(ctx context.Context, caseID string, target state.State, facts fact.Set) (model.Case, error) {
	if caseID == "" {
		return model.Case{}, newNotFound(caseID, target, nil)
	}

	c, err := e.gw.LoadCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, gateway.ErrCaseNotFound) {
			return model.Case{}, newNotFound(caseID, target, err)
		}
		return model.Case{}, newPersistenceFailure(caseID, 0, target, err)
	}

	if !target.IsValid() {
		return c, newInvalidState(caseID, c.CurrentState, target)
	}

	if !e.table.Allows(c.CurrentState, target) {
		return c, newIllegalTransition(caseID, c.CurrentState, target)
	}

	if failed, ok := e.guards.Evaluate(c.CurrentState, target, facts); !ok {
		return c, newGuardFailure(caseID, c.CurrentState, target, failed)
	}

	return c, nil
}

func (e *Engine) logResult(caseID string, from, to state.State, rec model.AuditRecord, err error) {
	if err == nil {
		e.logger.Debug().
			Str(cflog.FieldCaseID, caseID).
			Str(cflog.FieldFromState, label(from)).
			Str(cflog.FieldToState, label(to)).
			Int64(cflog.FieldSequence, rec.Sequence).
			Msg("transition committed")
		return
	}

	level := zerolog.InfoLevel
	if IsRetryable(err) {
		level = zerolog.WarnLevel
	}
	e.logger.WithLevel(level).
		Str(cflog.FieldCaseID, caseID).
		Str(cflog.FieldFromState, label(from)).
		Str(cflog.FieldToState, label(to)).
		Str(cflog.FieldCode, string(CodeOf(err))).
		Err(err).
		Msg("transition rejected")
}

// label renders a state for logs and metrics. Out-of-range values collapse to
// one label to keep metric cardinality fixed.
func label(s state.State) string {
	if !s.IsValid() {
		return "unknown"
	}
	return s.String()
}
