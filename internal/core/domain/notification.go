package domain

import "time"

// Severity grades an alert pushed by the backend. Unknown or absent values
// default to info.
type Severity string

const (
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// NormalizeSeverity maps backend-supplied strings onto the known set.
func NormalizeSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityError, SeverityCritical, SeverityWarning, SeverityInfo:
		return Severity(s)
	default:
		return SeverityInfo
	}
}

// Notification is a user-facing transient message: either a backend alert or
// an ENTER/EXIT camera event surfaced to the operator.
type Notification struct {
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
