// Package model holds the case and audit record types shared by the engine
// and the persistence gateway.
package model

import (
	"time"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/state"
)

// Case is a long-lived workflow instance.
type Case struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	CurrentState state.State `json:"current_state"`
	Facts        fact.Set    `json:"facts"`
	CreatedAt    time.Time   `json:"created_at"`
	// UpdatedAt moves only when CurrentState changes.
	UpdatedAt time.Time `json:"updated_at"`
	// Version increments with every committed state change and backs the
	// optimistic concurrency check.
	Version int64 `json:"version"`
}

// AuditRecord is one committed transition. Records are never updated or
// deleted.
type AuditRecord struct {
	Sequence      int64       `json:"sequence"`
	CaseID        string      `json:"case_id"`
	FromState     state.State `json:"from_state"`
	ToState       state.State `json:"to_state"`
	Reason        string      `json:"reason"`
	FactsSnapshot fact.Set    `json:"facts_snapshot"`
	CreatedAt     time.Time   `json:"created_at"`
}
