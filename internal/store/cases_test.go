package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/state"
)

func TestCreateCase_InitialState(t *testing.T) {
	s := createTestStore(t)
	c := createTestCase(t, s, "case-1")

	assert.Equal(t, "case-1", c.ID)
	assert.Equal(t, "case case-1", c.Title)
	assert.Equal(t, state.Initial, c.CurrentState)
	assert.Equal(t, int64(1), c.Version)
	assert.True(t, c.CreatedAt.Equal(testEpoch), "nanoseconds survive the round trip")
	assert.True(t, c.UpdatedAt.Equal(c.CreatedAt))
	assert.True(t, c.Facts.Equal(fact.Of(fact.P("amount", fact.Int(1200)))))
}

func TestCreateCase_GeneratesID(t *testing.T) {
	s := createTestStore(t)
	c, err := s.CreateCase(context.Background(), NewCase{Title: "anonymous"})
	require.NoError(t, err)

	id, err := uuid.Parse(c.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Zero(t, c.Facts.Len())
}

func TestCreateCase_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	createTestCase(t, s, "dup")

	_, err := s.CreateCase(context.Background(), NewCase{ID: "dup", Title: "other"})
	require.ErrorIs(t, err, ErrCaseExists)

	c, err := s.GetCase(context.Background(), "dup")
	require.NoError(t, err)
	assert.Equal(t, "case dup", c.Title, "existing row must be untouched")
}

func TestGetCase_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetCase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	_, err = s.LoadCase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestGetCase_RejectsUnknownStateText(t *testing.T) {
	s := createTestStore(t)
	createTestCase(t, s, "corrupt")

	_, err := s.db.Exec(`UPDATE cases SET current_state = 'ARCHIVED' WHERE id = 'corrupt'`)
	require.NoError(t, err)

	_, err = s.GetCase(context.Background(), "corrupt")
	assert.ErrorContains(t, err, "current_state")
}

func TestListCases_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListCases(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	createTestCase(t, s, "b")
	createTestCase(t, s, "a")
	_, err = s.CreateCase(ctx, NewCase{ID: "early", Title: "early", CreatedAt: testEpoch.Add(-1)})
	require.NoError(t, err)

	cases, err := s.ListCases(ctx)
	require.NoError(t, err)
	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"early", "a", "b"}, ids)
}

func TestUpdateCaseDetails_LeavesStateAlone(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := createTestCase(t, s, "details")
	moved, _ := commitTestTransition(t, s, c, state.UnderReview, testEpoch.Add(1e9))

	title := "renamed"
	facts := fact.Of(fact.P("risk_rules_passed", fact.Bool(true)))
	require.NoError(t, s.UpdateCaseDetails(ctx, c.ID, CaseDetails{Title: &title, Facts: &facts}))

	got, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.True(t, got.Facts.Equal(facts))
	assert.Equal(t, moved.CurrentState, got.CurrentState)
	assert.Equal(t, moved.Version, got.Version)
	assert.True(t, got.UpdatedAt.Equal(moved.UpdatedAt))
}

func TestUpdateCaseDetails_TitleOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := createTestCase(t, s, "title-only")

	title := "new title"
	require.NoError(t, s.UpdateCaseDetails(ctx, c.ID, CaseDetails{Title: &title}))

	got, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)
	assert.True(t, got.Facts.Equal(c.Facts))
}

func TestUpdateCaseDetails_NotFound(t *testing.T) {
	s := createTestStore(t)
	title := "x"
	err := s.UpdateCaseDetails(context.Background(), "missing", CaseDetails{Title: &title})
	assert.ErrorIs(t, err, ErrCaseNotFound)

	assert.NoError(t, s.UpdateCaseDetails(context.Background(), "missing", CaseDetails{}),
		"an empty update is a no-op")
}
