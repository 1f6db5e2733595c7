// pkg/pipeline/error.go
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies run failures
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryMissingInput
	ErrorCategoryColumnResolution
	ErrorCategoryExport
	ErrorCategoryReport
	ErrorCategoryVerification
	ErrorCategoryPublish
)

// String returns a string representation of the error category
func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryMissingInput:
		return "MissingInput"
	case ErrorCategoryColumnResolution:
		return "ColumnResolution"
	case ErrorCategoryExport:
		return "Export"
	case ErrorCategoryReport:
		return "Report"
	case ErrorCategoryVerification:
		return "Verification"
	case ErrorCategoryPublish:
		return "Publish"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Sentinel errors matched with errors.Is
var (
	ErrMissingInput   = errors.New("missing input")
	ErrColumnNotFound = errors.New("column not found")
)

// Table roles
const (
	RoleRaw         = "raw"
	RoleDetail      = "detail"
	RoleSubscribers = "subscribers"
)

// Column roles
const (
	ColumnIdentity = "identity"
	ColumnDays     = "days"
	ColumnStatus   = "status"
)

// RunError is a fatal run failure with its context
type RunError struct {
	Category ErrorCategory
	Role     string // Table role (raw, detail, subscribers), if any
	Column   string // Column role (identity, days), if any
	Path     string // Artifact or source involved, if any
	Err      error
}

// NewRunError creates a run error of the given category
func NewRunError(category ErrorCategory, err error) *RunError {
	return &RunError{Category: category, Err: err}
}

// WithRole sets the table role
func (e *RunError) WithRole(role string) *RunError {
	e.Role = role
	return e
}

// WithColumn sets the column role
func (e *RunError) WithColumn(column string) *RunError {
	e.Column = column
	return e
}

// WithPath sets the artifact or source path
func (e *RunError) WithPath(path string) *RunError {
	e.Path = path
	return e
}

// Error implements the error interface
func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString(e.Category.String())
	if e.Role != "" {
		fmt.Fprintf(&b, " [table=%s]", e.Role)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " [column=%s]", e.Column)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " [path=%s]", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	return e.Err
}

// Is matches the category sentinels so callers can test
// errors.Is(err, ErrMissingInput) regardless of the cause
func (e *RunError) Is(target error) bool {
	switch target {
	case ErrMissingInput:
		return e.Category == ErrorCategoryMissingInput
	case ErrColumnNotFound:
		return e.Category == ErrorCategoryColumnResolution
	}
	return false
}

// CategoryOf returns the category of err, or ErrorCategoryNone when err is
// not a RunError
func CategoryOf(err error) ErrorCategory {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Category
	}
	return ErrorCategoryNone
}

func missingInput(role string, err error) *RunError {
	return NewRunError(ErrorCategoryMissingInput, fmt.Errorf("failed to load %s table: %w", role, err)).
		WithRole(role)
}

func columnNotFound(role, column, table string, candidates []string) *RunError {
	return NewRunError(ErrorCategoryColumnResolution,
		fmt.Errorf("no %s column in %s table %q (candidates: %s)",
			column, role, table, strings.Join(candidates, ", "))).
		WithRole(role).
		WithColumn(column)
}
