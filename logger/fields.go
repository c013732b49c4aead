package logger

// Standard field names for consistent structured logging across zxplorer.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Components
	FieldComponent = "component"
	FieldOperator  = "operator"
	FieldStage     = "stage"

	// Generation
	FieldPrompt      = "prompt"
	FieldSeed        = "seed"
	FieldSteps       = "steps"
	FieldOutputCount = "output_count"
	FieldDimensions  = "dimensions"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError    = "error"
	FieldPosition = "position"

	// Counts and sizes
	FieldCount = "count"
	FieldSize  = "size"
)
