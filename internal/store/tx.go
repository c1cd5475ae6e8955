package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/caseflow/internal/gateway"
	"github.com/roach88/caseflow/internal/model"
)

var _ gateway.Gateway = (*Store)(nil)

// WithinTx implements gateway.Gateway. fn must only use the Tx it is given;
// the store holds a single connection, so touching the Store from inside fn
// blocks until ctx is done.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx gateway.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &txWriter{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txWriter implements gateway.Tx on top of one database transaction.
type txWriter struct {
	tx *sql.Tx
}

// UpdateCaseState bumps version as part of the same statement that checks
// it, so two writers holding the same version cannot both succeed.
func (w *txWriter) UpdateCaseState(ctx context.Context, change gateway.StateChange) error {
	res, err := w.tx.ExecContext(ctx, `
		UPDATE cases
		SET current_state = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND current_state = ?
	`,
		change.To.String(),
		formatTime(change.At),
		change.CaseID,
		change.ExpectedVersion,
		change.From.String(),
	)
	if err != nil {
		return fmt.Errorf("update case state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case state: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update case %s at version %d: %w", change.CaseID, change.ExpectedVersion, ErrStaleCase)
	}
	return nil
}

// AppendAudit inserts one audit row. The facts are serialised at call time,
// so the stored snapshot cannot change afterwards.
func (w *txWriter) AppendAudit(ctx context.Context, entry gateway.AuditEntry) (model.AuditRecord, error) {
	factsJSON, err := marshalFacts(entry.Facts)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("append audit: %w", err)
	}

	res, err := w.tx.ExecContext(ctx, `
		INSERT INTO audit_logs (case_id, from_state, to_state, reason, facts_snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.CaseID,
		entry.From.String(),
		entry.To.String(),
		entry.Reason,
		factsJSON,
		formatTime(entry.At),
	)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("append audit: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("append audit: %w", err)
	}

	return model.AuditRecord{
		Sequence:      seq,
		CaseID:        entry.CaseID,
		FromState:     entry.From,
		ToState:       entry.To,
		Reason:        entry.Reason,
		FactsSnapshot: entry.Facts,
		CreatedAt:     entry.At.UTC(),
	}, nil
}
