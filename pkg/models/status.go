package models

// Task statuses used throughout the codebase.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether s is one of the task statuses above.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Custom field types.
const (
	FieldTypeText   = "text"
	FieldTypeNumber = "number"
	FieldTypeDate   = "date"
	FieldTypeSelect = "select"
)

// Rule execution outcomes.
const (
	ExecutionSuccess = "SUCCESS"
	ExecutionFailed  = "FAILED"
	ExecutionSkipped = "SKIPPED"
)

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultTaskListLimit       = 1000
	DefaultExecutionListLimit  = 100
	DefaultSSEChannelBuffer    = 256
	DefaultDueSoonScanLimit    = 500
)
