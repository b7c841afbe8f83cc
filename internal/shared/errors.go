package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates user input failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail indicates an account with the email already exists.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates the request has no signed-in account.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnsupportedMedia indicates an upload that is not audio.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrNotCaptured indicates generation requested before any capture.
	ErrNotCaptured = errors.New("no audio captured")
	// ErrGenerationRunning indicates a generation run is already in flight.
	ErrGenerationRunning = errors.New("generation already running")
	// ErrAlreadySynthesized indicates the pipeline already completed.
	ErrAlreadySynthesized = errors.New("output already synthesized")
	// ErrSessionMissing indicates the request context carries no session.
	ErrSessionMissing = errors.New("session missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserMessage maps an error to text that is safe to show in a toast.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateEmail):
		return "An account with this email already exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrValidation):
		return "Please check the highlighted fields"
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in first"
	case errors.Is(err, ErrUnsupportedMedia):
		return "Please select a valid audio file"
	case errors.Is(err, ErrNotCaptured):
		return "Please record audio or upload a file first"
	case errors.Is(err, ErrGenerationRunning):
		return "Generation is already in progress"
	case errors.Is(err, ErrAlreadySynthesized):
		return "Process already completed, reset to start over"
	case errors.Is(err, ErrNotFound):
		return "Nothing to show yet"
	case errors.Is(err, ErrSessionMissing), errors.Is(err, ErrCSRFTokenMissing), errors.Is(err, ErrCSRFTokenMismatch):
		return "Your session expired, please reload the page"
	default:
		return "Something went wrong, please try again"
	}
}

// ToastFor builds the toast matching err. Precondition failures are warnings.
func ToastFor(err error) Toast {
	switch {
	case errors.Is(err, ErrNotCaptured), errors.Is(err, ErrGenerationRunning), errors.Is(err, ErrAlreadySynthesized):
		return Warning(UserMessage(err))
	default:
		return Failure(UserMessage(err))
	}
}
