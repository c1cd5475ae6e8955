// Package store is the SQLite persistence gateway for cases and their audit
// trail.
//
// Two tables:
//   - cases: one row per case, current_state is the source of truth
//   - audit_logs: append-only, one row per committed transition
//
// # Invariants
//
// Append-only audit: triggers abort every UPDATE or DELETE on audit_logs.
//
// Atomic transitions: the case update and the audit insert happen in one
// transaction obtained through WithinTx. There is no other write path for
// current_state.
//
// Optimistic concurrency: cases.version increments on every state change and
// the state update only matches the version the caller read.
//
// Ordering: history is ORDER BY sequence ASC. Timestamps are for humans and
// range queries, never for ordering within a case.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - one open connection: SQLite has a single writer
//
// Schema changes are goose migrations embedded from migrations/.
package store
