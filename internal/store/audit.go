package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
)

// ErrBrokenChain is wrapped by every VerifyChain failure.
var ErrBrokenChain = errors.New("audit chain broken")

const auditColumns = `sequence, case_id, from_state, to_state, reason, facts_snapshot, created_at`

// ListAudit returns the audit records of one case ordered by sequence.
// Returns an empty slice (not nil) if the case has no records.
func (s *Store) ListAudit(ctx context.Context, caseID string) ([]model.AuditRecord, error) {
	return s.queryAudit(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs
		WHERE case_id = ?
		ORDER BY sequence ASC
	`, caseID)
}

// ListAuditSince returns records across all cases created at or after since,
// ordered by created_at then sequence. limit <= 0 means no limit.
func (s *Store) ListAuditSince(ctx context.Context, since time.Time, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT is unbounded
	}
	return s.queryAudit(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs
		WHERE created_at >= ?
		ORDER BY created_at ASC, sequence ASC
		LIMIT ?
	`, formatTime(since), limit)
}

func (s *Store) queryAudit(ctx context.Context, query string, args ...any) ([]model.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	records := []model.AuditRecord{}
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return records, nil
}

func scanAudit(r rowScanner) (model.AuditRecord, error) {
	var (
		rec                         model.AuditRecord
		fromText, toText, factsJSON string
		createdAtText               string
	)
	if err := r.Scan(&rec.Sequence, &rec.CaseID, &fromText, &toText, &rec.Reason, &factsJSON, &createdAtText); err != nil {
		return model.AuditRecord{}, fmt.Errorf("scan audit log: %w", err)
	}

	var err error
	if rec.FromState, err = parseState("from_state", fromText); err != nil {
		return model.AuditRecord{}, fmt.Errorf("scan audit log %d: %w", rec.Sequence, err)
	}
	if rec.ToState, err = parseState("to_state", toText); err != nil {
		return model.AuditRecord{}, fmt.Errorf("scan audit log %d: %w", rec.Sequence, err)
	}
	if rec.FactsSnapshot, err = unmarshalFacts(factsJSON); err != nil {
		return model.AuditRecord{}, fmt.Errorf("scan audit log %d: %w", rec.Sequence, err)
	}
	if rec.CreatedAt, err = parseTime(createdAtText); err != nil {
		return model.AuditRecord{}, fmt.Errorf("scan audit log %d: %w", rec.Sequence, err)
	}
	return rec, nil
}

// VerifyChain checks that the audit records of a case form an unbroken
// sequence from state.Initial to the case's current state:
//
//   - the first record leaves state.Initial;
//   - every record's from_state is the previous record's to_state;
//   - created_at never decreases;
//   - the last to_state is the case's current_state;
//   - the case version equals one plus the number of records;
//   - updated_at equals the last record's created_at.
//
// A case with no records must still be in state.Initial at version 1.
// Violations wrap ErrBrokenChain.
func (s *Store) VerifyChain(ctx context.Context, caseID string) error {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	records, err := s.ListAudit(ctx, caseID)
	if err != nil {
		return err
	}

	expect := state.Initial
	var last time.Time
	for i, rec := range records {
		if rec.FromState != expect {
			return fmt.Errorf("%w: record %d (sequence %d) leaves %s, expected %s",
				ErrBrokenChain, i, rec.Sequence, rec.FromState, expect)
		}
		if rec.CreatedAt.Before(last) {
			return fmt.Errorf("%w: record %d (sequence %d) predates its predecessor",
				ErrBrokenChain, i, rec.Sequence)
		}
		expect = rec.ToState
		last = rec.CreatedAt
	}

	if c.CurrentState != expect {
		return fmt.Errorf("%w: case is %s but audit trail ends at %s",
			ErrBrokenChain, c.CurrentState, expect)
	}
	if want := int64(len(records)) + 1; c.Version != want {
		return fmt.Errorf("%w: case version %d, expected %d for %d records",
			ErrBrokenChain, c.Version, want, len(records))
	}
	if len(records) > 0 && !c.UpdatedAt.Equal(last) {
		return fmt.Errorf("%w: updated_at %s differs from last record %s",
			ErrBrokenChain, formatTime(c.UpdatedAt), formatTime(last))
	}
	return nil
}
