// Package engine implements the single authority allowed to change a case's
// state.
//
// REQUEST FLOW:
//
//  1. Load the case (NOT_FOUND).
//  2. Check the target is a known state (INVALID_STATE).
//  3. Check the transition table allows current -> target (ILLEGAL_TRANSITION).
//  4. Evaluate the guards for the pair, in order, stopping at the first
//     failure (GUARD_FAILURE).
//  5. Check the reason is non-empty (INVALID_REASON).
//  6. In one transaction scope: conditionally update the case row and insert
//     the audit row.
//
// Nothing is written before step 6, so a request rejected in steps 1-5 has no
// observable effect.
//
// CONCURRENCY:
//
// The engine holds no locks. The case row carries a version; the update in
// step 6 only matches the version read in step 1. A second writer that read
// the same version finds zero rows to update, its transaction rolls back and
// the caller gets CONCURRENT_MODIFICATION. Requests for different cases never
// interact. The engine does not retry on its own.
package engine
