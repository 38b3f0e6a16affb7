// Package errors provides severity-aware error types for takeoff runs.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// TakeoffError is a structured error with context.
type TakeoffError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	ElementID   string   `json:"element_id,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *TakeoffError) Error() string {
	if e.ElementID != "" {
		return fmt.Sprintf("[%s] %s: %s (element: %s)", e.Severity, e.Code, e.Message, e.ElementID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
	ErrCodeSourceUnreadable   = "SOURCE_UNREADABLE"
	ErrCodeFieldMissing       = "FIELD_MISSING"
	ErrCodeDensityNotFound    = "DENSITY_NOT_FOUND"
	ErrCodeUnitMismatch       = "UNIT_MISMATCH"
	ErrCodeQuantityInvalid    = "QUANTITY_INVALID"
	ErrCodeExportFailed       = "EXPORT_FAILED"
	ErrCodeHistoryUnavailable = "HISTORY_UNAVAILABLE"
	ErrCodeRunFinalized       = "RUN_FINALIZED"
)

// NewConfigError creates a fatal error for invalid run configuration.
func NewConfigError(message string) *TakeoffError {
	return &TakeoffError{
		Code:        ErrCodeConfigInvalid,
		Message:     message,
		Severity:    SeverityFatal,
		Recoverable: false,
	}
}

// NewSourceError creates a fatal error for an unreadable element source.
func NewSourceError(message string) *TakeoffError {
	return &TakeoffError{
		Code:        ErrCodeSourceUnreadable,
		Message:     message,
		Severity:    SeverityFatal,
		Recoverable: false,
	}
}

// NewFieldMissingWarning records a field that could not be resolved on an element.
func NewFieldMissingWarning(field, elementID string) *TakeoffError {
	return &TakeoffError{
		Code:        ErrCodeFieldMissing,
		Message:     fmt.Sprintf("field could not be resolved: %s", field),
		Severity:    SeverityWarning,
		ElementID:   elementID,
		Recoverable: true,
	}
}

// NewQuantityWarning records a material association whose measured
// quantities are unusable; the association is skipped, not the run.
func NewQuantityWarning(material, elementID, detail string) *TakeoffError {
	return &TakeoffError{
		Code:        ErrCodeQuantityInvalid,
		Message:     fmt.Sprintf("unusable quantity for material %q: %s", material, detail),
		Severity:    SeverityWarning,
		ElementID:   elementID,
		Recoverable: true,
	}
}

// NewDensityWarning records a material with no catalog density.
func NewDensityWarning(material string) *TakeoffError {
	return &TakeoffError{
		Code:        ErrCodeDensityNotFound,
		Message:     fmt.Sprintf("no catalog density for material: %s", material),
		Severity:    SeverityWarning,
		Recoverable: true,
	}
}

// NewExportError creates a fatal error for a failed spreadsheet write.
func NewExportError(path string, cause error) *TakeoffError {
	return &TakeoffError{
		Code:        ErrCodeExportFailed,
		Message:     fmt.Sprintf("failed to write %s: %v", path, cause),
		Severity:    SeverityFatal,
		Recoverable: false,
	}
}
