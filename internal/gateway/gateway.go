// Package gateway defines the persistence contract the transition engine
// depends on.
//
// The contract has two halves. Gateway loads a case together with its
// version and opens transaction scopes. Tx is only reachable inside such a
// scope and is the only way to change a case's current state: the state
// update and the audit insert performed through one Tx commit together or not
// at all.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
)

var (
	// ErrCaseNotFound is returned when no case row has the requested id.
	ErrCaseNotFound = errors.New("case not found")

	// ErrStaleCase is returned by Tx.UpdateCaseState when the row no longer
	// has the expected version or state.
	ErrStaleCase = errors.New("case changed since it was read")
)

// Gateway is implemented by the store.
type Gateway interface {
	// LoadCase returns the case row, including its Version.
	LoadCase(ctx context.Context, id string) (model.Case, error)

	// WithinTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back when fn returns an error or panics.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write surface available inside a transaction scope.
type Tx interface {
	// UpdateCaseState moves the case from change.From to change.To and sets
	// updated_at, provided the row still has change.ExpectedVersion and
	// change.From. Otherwise it returns ErrStaleCase.
	UpdateCaseState(ctx context.Context, change StateChange) error

	// AppendAudit inserts one audit row and returns it with its sequence.
	AppendAudit(ctx context.Context, entry AuditEntry) (model.AuditRecord, error)
}

// StateChange is the conditional case update.
type StateChange struct {
	CaseID          string
	From            state.State
	To              state.State
	ExpectedVersion int64
	At              time.Time
}

// AuditEntry is the audit row to insert.
type AuditEntry struct {
	CaseID string
	From   state.State
	To     state.State
	Reason string
	Facts  fact.Set
	At     time.Time
}
