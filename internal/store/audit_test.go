package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/caseflow/internal/state"
)

func TestListAudit_OrderedBySequence(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, "history")
	c, _ = commitTestTransition(t, s, c, state.UnderReview, testEpoch.Add(1*time.Second))
	c, _ = commitTestTransition(t, s, c, state.WaitingInfo, testEpoch.Add(2*time.Second))
	c, _ = commitTestTransition(t, s, c, state.UnderReview, testEpoch.Add(3*time.Second))
	commitTestTransition(t, s, c, state.Approved, testEpoch.Add(4*time.Second))

	records, err := s.ListAudit(ctx, "history")
	require.NoError(t, err)
	require.Len(t, records, 4)

	want := []state.State{state.UnderReview, state.WaitingInfo, state.UnderReview, state.Approved}
	for i, rec := range records {
		assert.Equal(t, want[i], rec.ToState)
		if i > 0 {
			assert.Greater(t, rec.Sequence, records[i-1].Sequence)
			assert.Equal(t, records[i-1].ToState, rec.FromState)
		}
	}
}

func TestListAudit_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	records, err := s.ListAudit(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestListAuditSince(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestCase(t, s, "a")
	b := createTestCase(t, s, "b")
	commitTestTransition(t, s, a, state.UnderReview, testEpoch.Add(1*time.Second))
	commitTestTransition(t, s, b, state.UnderReview, testEpoch.Add(3*time.Second))
	b, _ = s.GetCase(ctx, "b")
	commitTestTransition(t, s, b, state.Rejected, testEpoch.Add(2*time.Second+500*time.Millisecond))

	records, err := s.ListAuditSince(ctx, testEpoch.Add(2*time.Second), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, state.Rejected, records[0].ToState, "ordered by created_at, not sequence")
	assert.Equal(t, state.UnderReview, records[1].ToState)

	limited, err := s.ListAuditSince(ctx, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "a", limited[0].CaseID)
}

func TestVerifyChain_Valid(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, "valid")
	require.NoError(t, s.VerifyChain(ctx, c.ID), "fresh case has an empty, valid chain")

	c, _ = commitTestTransition(t, s, c, state.UnderReview, testEpoch.Add(time.Second))
	c, _ = commitTestTransition(t, s, c, state.Approved, testEpoch.Add(2*time.Second))
	commitTestTransition(t, s, c, state.Closed, testEpoch.Add(3*time.Second))

	assert.NoError(t, s.VerifyChain(ctx, "valid"))
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper string
	}{
		{"state without audit", `UPDATE cases SET current_state = 'APPROVED' WHERE id = 'tampered'`},
		{"version drift", `UPDATE cases SET version = version + 1 WHERE id = 'tampered'`},
		{"updated_at drift", `UPDATE cases SET updated_at = '2030-01-01T00:00:00.000000000Z' WHERE id = 'tampered'`},
		{"gap in chain", `INSERT INTO audit_logs (case_id, from_state, to_state, reason, created_at)
			VALUES ('tampered', 'APPROVED', 'CLOSED', 'forged', '2030-01-01T00:00:00.000000000Z')`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			c := createTestCase(t, s, "tampered")
			commitTestTransition(t, s, c, state.UnderReview, testEpoch.Add(time.Second))

			_, err := s.db.Exec(tt.tamper)
			require.NoError(t, err)

			assert.ErrorIs(t, s.VerifyChain(context.Background(), "tampered"), ErrBrokenChain)
		})
	}
}

func TestVerifyChain_NotFound(t *testing.T) {
	s := createTestStore(t)
	assert.ErrorIs(t, s.VerifyChain(context.Background(), "missing"), ErrCaseNotFound)
}
