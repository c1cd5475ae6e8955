package engine

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/gateway"
	"github.com/roach88/caseflow/internal/guard"
	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/store"
	"github.com/roach88/caseflow/internal/testutil"
	"github.com/roach88/caseflow/internal/transition"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// createTestStore opens a file-backed store in a temp dir.
func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, _ := createTestStoreAt(t)
	return s
}

// createTestStoreAt is createTestStore that also returns the database path.
func createTestStoreAt(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// openRawDB opens a second connection to the database file, outside the
// store, for tests that damage the schema.
func openRawDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open(store.DriverCGO, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestEngine wires an engine to a fresh store with the default table and
// guards and a step clock.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s := createTestStore(t)
	opts = append([]Option{WithClock(testutil.NewStepClock(testutil.Epoch.Add(time.Hour), time.Second))}, opts...)
	return New(s, nil, nil, opts...), s
}

// createCase inserts a case in CREATED.
func createCase(t *testing.T, s *store.Store, id string) model.Case {
	t.Helper()
	c, err := s.CreateCase(context.Background(), store.NewCase{
		ID:        id,
		Title:     "case " + id,
		CreatedAt: testutil.Epoch,
	})
	require.NoError(t, err)
	return c
}

// advance drives a case along path using facts that satisfy the default
// guards.
func advance(t *testing.T, e *Engine, id string, path ...state.State) {
	t.Helper()
	for _, to := range path {
		_, err := e.RequestTransition(context.Background(), id, to, passingFacts, "advance to "+to.String())
		require.NoError(t, err, "advance to %s", to)
	}
}

// passingFacts satisfies every guard in guard.Default.
var passingFacts = fact.Of(
	fact.P("risk_rules_passed", fact.Bool(true)),
	fact.P("amount_within_threshold", fact.Bool(true)),
	fact.P("validation_failed", fact.Bool(true)),
	fact.P("high_amount", fact.Bool(true)),
	fact.P("missing_info_detected", fact.Bool(true)),
	fact.P("additional_info_provided", fact.Bool(true)),
	fact.P("no_pending_actions", fact.Bool(true)),
)

// pathTo lists a legal route from CREATED to each state.
var pathTo = map[state.State][]state.State{
	state.Created:     nil,
	state.UnderReview: {state.UnderReview},
	state.WaitingInfo: {state.UnderReview, state.WaitingInfo},
	state.Escalated:   {state.UnderReview, state.Escalated},
	state.Approved:    {state.UnderReview, state.Approved},
	state.Rejected:    {state.UnderReview, state.Rejected},
	state.Closed:      {state.UnderReview, state.Approved, state.Closed},
}

// snapshot captures everything a rejected request must leave untouched.
type snapshot struct {
	c     model.Case
	audit []model.AuditRecord
}

func takeSnapshot(t *testing.T, s *store.Store, id string) snapshot {
	t.Helper()
	ctx := context.Background()
	c, err := s.GetCase(ctx, id)
	require.NoError(t, err)
	audit, err := s.ListAudit(ctx, id)
	require.NoError(t, err)
	return snapshot{c: c, audit: audit}
}

// faultyGateway wraps a store and injects failures inside the transaction
// scope.
type faultyGateway struct {
	*store.Store

	// failUpdate replaces the state update.
	failUpdate error
	// failAfterAudit is returned after the audit row was inserted.
	failAfterAudit error
	// panicAfterAudit panics after the audit row was inserted.
	panicAfterAudit bool
}

func (g *faultyGateway) WithinTx(ctx context.Context, fn func(ctx context.Context, tx gateway.Tx) error) error {
	return g.Store.WithinTx(ctx, func(ctx context.Context, tx gateway.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, g: g})
	})
}

type faultyTx struct {
	gateway.Tx
	g *faultyGateway
}

func (tx *faultyTx) UpdateCaseState(ctx context.Context, change gateway.StateChange) error {
	if tx.g.failUpdate != nil {
		return tx.g.failUpdate
	}
	return tx.Tx.UpdateCaseState(ctx, change)
}

func (tx *faultyTx) AppendAudit(ctx context.Context, entry gateway.AuditEntry) (model.AuditRecord, error) {
	rec, err := tx.Tx.AppendAudit(ctx, entry)
	if err != nil {
		return rec, err
	}
	if tx.g.panicAfterAudit {
		panic("audit sink crashed")
	}
	if tx.g.failAfterAudit != nil {
		return model.AuditRecord{}, tx.g.failAfterAudit
	}
	return rec, nil
}

// racingGateway runs onLoad once, right after the first LoadCase returns its
// row, to simulate a competing writer landing between read and commit.
type racingGateway struct {
	*store.Store
	onLoad func()
}

func (g *racingGateway) LoadCase(ctx context.Context, id string) (model.Case, error) {
	c, err := g.Store.LoadCase(ctx, id)
	if g.onLoad != nil {
		hook := g.onLoad
		g.onLoad = nil
		hook()
	}
	return c, err
}

// thresholdOnly is a registry with a single guard on
// UNDER_REVIEW -> APPROVED.
func thresholdOnly(t *testing.T) *guard.Registry {
	t.Helper()
	r, err := guard.NewRegistry(transition.Default(), guard.Rule{
		From:   state.UnderReview,
		To:     state.Approved,
		Guards: []guard.Guard{guard.RequireTrue("amount_within_threshold")},
	})
	require.NoError(t, err)
	return r
}
