package shared

// Severity classifies a toast notification.
type Severity string

// Toast severities understood by the browser.
const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Toast is a transient notification shown once and dismissed by the browser.
type Toast struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Success builds a success toast.
func Success(msg string) Toast { return Toast{Severity: SeveritySuccess, Message: msg} }

// Failure builds an error toast.
func Failure(msg string) Toast { return Toast{Severity: SeverityError, Message: msg} }

// Warning builds a warning toast.
func Warning(msg string) Toast { return Toast{Severity: SeverityWarning, Message: msg} }
