package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldComponent = "component"
	FieldCaseID    = "case_id"
	FieldSequence  = "sequence"

	// State fields
	FieldFromState = "from"
	FieldToState   = "to"

	// Outcome fields
	FieldCode = "code"

	// Storage fields
	FieldDriver = "driver"
	FieldPath   = "path"
)
