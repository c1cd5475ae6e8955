package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/gateway"
	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
)

var (
	// ErrCaseNotFound is gateway.ErrCaseNotFound.
	ErrCaseNotFound = gateway.ErrCaseNotFound

	// ErrStaleCase is gateway.ErrStaleCase.
	ErrStaleCase = gateway.ErrStaleCase

	// ErrCaseExists is returned by CreateCase when the id is taken.
	ErrCaseExists = errors.New("case already exists")
)

// NewCase describes a case to create. Cases always start in state.Initial.
type NewCase struct {
	// ID is generated (UUIDv7) when empty.
	ID    string
	Title string
	Facts fact.Set
	// CreatedAt defaults to the current time.
	CreatedAt time.Time
}

const caseColumns = `id, title, current_state, facts, version, created_at, updated_at`

// CreateCase inserts a case in state.Initial with version 1.
// Unlike the engine's writes this is not idempotent: a duplicate id returns
// ErrCaseExists and leaves the existing row untouched.
func (s *Store) CreateCase(ctx context.Context, nc NewCase) (model.Case, error) {
	if nc.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return model.Case{}, fmt.Errorf("create case: generate id: %w", err)
		}
		nc.ID = id.String()
	}
	if nc.CreatedAt.IsZero() {
		nc.CreatedAt = time.Now()
	}

	factsJSON, err := marshalFacts(nc.Facts)
	if err != nil {
		return model.Case{}, fmt.Errorf("create case: %w", err)
	}

	ts := formatTime(nc.CreatedAt)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, title, current_state, facts, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		nc.ID,
		nc.Title,
		state.Initial.String(),
		factsJSON,
		ts,
		ts,
	)
	if err != nil {
		return model.Case{}, fmt.Errorf("create case: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return model.Case{}, fmt.Errorf("create case: %w", err)
	}
	if n == 0 {
		return model.Case{}, fmt.Errorf("create case %s: %w", nc.ID, ErrCaseExists)
	}

	return s.GetCase(ctx, nc.ID)
}

// LoadCase implements gateway.Gateway.
func (s *Store) LoadCase(ctx context.Context, id string) (model.Case, error) {
	return s.GetCase(ctx, id)
}

// GetCase returns the case row. A missing row returns an error wrapping
// ErrCaseNotFound.
func (s *Store) GetCase(ctx context.Context, id string) (model.Case, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Case{}, fmt.Errorf("get case %s: %w", id, ErrCaseNotFound)
	}
	if err != nil {
		return model.Case{}, fmt.Errorf("get case %s: %w", id, err)
	}
	return c, nil
}

// ListCases returns every case ordered by created_at, then id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListCases(ctx context.Context) ([]model.Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+caseColumns+`
		FROM cases
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	cases := []model.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

// CaseDetails are the descriptive fields of a case. A nil field is left
// unchanged.
type CaseDetails struct {
	Title *string
	Facts *fact.Set
}

// UpdateCaseDetails rewrites the title and/or facts of a case.
// current_state, version and updated_at are never touched here; only the
// engine changes those.
func (s *Store) UpdateCaseDetails(ctx context.Context, id string, d CaseDetails) error {
	if d.Title == nil && d.Facts == nil {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if d.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *d.Title)
	}
	if d.Facts != nil {
		factsJSON, err := marshalFacts(*d.Facts)
		if err != nil {
			return fmt.Errorf("update case details: %w", err)
		}
		sets = append(sets, "facts = ?")
		args = append(args, factsJSON)
	}
	args = append(args, id)

	query := "UPDATE cases SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update case details: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case details: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update case details %s: %w", id, ErrCaseNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(r rowScanner) (model.Case, error) {
	var (
		c                            model.Case
		stateText, factsJSON         string
		createdAtText, updatedAtText string
	)
	if err := r.Scan(&c.ID, &c.Title, &stateText, &factsJSON, &c.Version, &createdAtText, &updatedAtText); err != nil {
		return model.Case{}, err
	}

	var err error
	if c.CurrentState, err = parseState("current_state", stateText); err != nil {
		return model.Case{}, fmt.Errorf("scan case %s: %w", c.ID, err)
	}
	if c.Facts, err = unmarshalFacts(factsJSON); err != nil {
		return model.Case{}, fmt.Errorf("scan case %s: %w", c.ID, err)
	}
	if c.CreatedAt, err = parseTime(createdAtText); err != nil {
		return model.Case{}, fmt.Errorf("scan case %s: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseTime(updatedAtText); err != nil {
		return model.Case{}, fmt.Errorf("scan case %s: %w", c.ID, err)
	}
	return c, nil
}
