package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/caseflow/internal/state"
)

// ErrorCode categorizes a rejected transition request.
type ErrorCode string

const (
	// CodeNotFound: the case does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidState: the target is not a member of the state set.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// CodeIllegalTransition: the table does not allow current -> target.
	// Includes every attempt to leave a terminal state.
	CodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION"

	// CodeGuardFailure: a guard rejected the supplied facts.
	CodeGuardFailure ErrorCode = "GUARD_FAILURE"

	// CodeInvalidReason: the reason is empty or whitespace.
	CodeInvalidReason ErrorCode = "INVALID_REASON"

	// CodeConcurrentModification: the case changed between read and commit.
	// Retrying the whole request is safe.
	CodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"

	// CodePersistenceFailure: the store could not commit. The case is
	// unchanged.
	CodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
)

// Sentinels for errors.Is. A *TransitionError matches the sentinel of its Code.
var (
	ErrNotFound               = errors.New("case not found")
	ErrInvalidState           = errors.New("invalid state")
	ErrIllegalTransition      = errors.New("illegal transition")
	ErrGuardFailure           = errors.New("guard failure")
	ErrInvalidReason          = errors.New("invalid reason")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrPersistenceFailure     = errors.New("persistence failure")
)

var sentinels = map[ErrorCode]error{
	CodeNotFound:               ErrNotFound,
	CodeInvalidState:           ErrInvalidState,
	CodeIllegalTransition:      ErrIllegalTransition,
	CodeGuardFailure:           ErrGuardFailure,
	CodeInvalidReason:          ErrInvalidReason,
	CodeConcurrentModification: ErrConcurrentModification,
	CodePersistenceFailure:     ErrPersistenceFailure,
}

// TransitionError is returned for every failed RequestTransition call.
// Exactly one code is reported per call.
type TransitionError struct {
	Code    ErrorCode
	Message string

	CaseID string
	From   state.State // zero when the case could not be loaded
	To     state.State

	// Guard names the first failing guard (CodeGuardFailure only).
	Guard string

	// Err is the underlying cause, if any.
	Err error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.CaseID != "" {
		msg += fmt.Sprintf(" (case=%s)", e.CaseID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Code.
func (e *TransitionError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// CodeOf returns the code of a *TransitionError anywhere in err's chain,
// or "" if there is none.
func CodeOf(err error) ErrorCode {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsRetryable reports whether resubmitting the same request can succeed
// without the caller changing anything.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeConcurrentModification, CodePersistenceFailure:
		return true
	default:
		return false
	}
}

func newNotFound(caseID string, to state.State, cause error) *TransitionError {
	return &TransitionError{
		Code:    CodeNotFound,
		Message: "case does not exist",
		CaseID:  caseID,
		To:      to,
		Err:     cause,
	}
}

func newInvalidState(caseID string, from, to state.State) *TransitionError {
	return &TransitionError{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("target %v is not a known state", to),
		CaseID:  caseID,
		From:    from,
		To:      to,
	}
}

func newIllegalTransition(caseID string, from, to state.State) *TransitionError {
	msg := fmt.Sprintf("%s -> %s is not allowed", from, to)
	if from.IsTerminal() {
		msg = fmt.Sprintf("%s is terminal", from)
	}
	return &TransitionError{
		Code:    CodeIllegalTransition,
		Message: msg,
		CaseID:  caseID,
		From:    from,
		To:      to,
	}
}

func newGuardFailure(caseID string, from, to state.State, guardName string) *TransitionError {
	return &TransitionError{
		Code:    CodeGuardFailure,
		Message: fmt.Sprintf("guard %q rejected %s -> %s", guardName, from, to),
		CaseID:  caseID,
		From:    from,
		To:      to,
		Guard:   guardName,
	}
}

func newInvalidReason(caseID string, from, to state.State) *TransitionError {
	return &TransitionError{
		Code:    CodeInvalidReason,
		Message: "reason must not be empty",
		CaseID:  caseID,
		From:    from,
		To:      to,
	}
}

func newConcurrentModification(caseID string, from, to state.State, cause error) *TransitionError {
	return &TransitionError{
		Code:    CodeConcurrentModification,
		Message: fmt.Sprintf("case left %s before %s -> %s committed", from, from, to),
		CaseID:  caseID,
		From:    from,
		To:      to,
		Err:     cause,
	}
}

func newPersistenceFailure(caseID string, from, to state.State, cause error) *TransitionError {
	return &TransitionError{
		Code:    CodePersistenceFailure,
		Message: "store could not commit the transition",
		CaseID:  caseID,
		From:    from,
		To:      to,
		Err:     cause,
	}
}
