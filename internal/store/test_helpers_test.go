package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/gateway"
	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
)

var testEpoch = time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCase inserts a case with a fixed creation time.
func createTestCase(t *testing.T, s *Store, id string) model.Case {
	t.Helper()
	c, err := s.CreateCase(context.Background(), NewCase{
		ID:        id,
		Title:     "case " + id,
		Facts:     fact.Of(fact.P("amount", fact.Int(1200))),
		CreatedAt: testEpoch,
	})
	require.NoError(t, err)
	return c
}

// commitTestTransition moves c to `to` at `at` through WithinTx, the same way
// the engine does.
func commitTestTransition(t *testing.T, s *Store, c model.Case, to state.State, at time.Time) (model.Case, model.AuditRecord) {
	t.Helper()
	ctx := context.Background()

	var rec model.AuditRecord
	err := s.WithinTx(ctx, func(ctx context.Context, tx gateway.Tx) error {
		if err := tx.UpdateCaseState(ctx, gateway.StateChange{
			CaseID:          c.ID,
			From:            c.CurrentState,
			To:              to,
			ExpectedVersion: c.Version,
			At:              at,
		}); err != nil {
			return err
		}
		var err error
		rec, err = tx.AppendAudit(ctx, gateway.AuditEntry{
			CaseID: c.ID,
			From:   c.CurrentState,
			To:     to,
			Reason: fmt.Sprintf("move to %s", to),
			Facts:  fact.Of(fact.P("step", fact.Int(c.Version))),
			At:     at,
		})
		return err
	})
	require.NoError(t, err)

	updated, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	return updated, rec
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
