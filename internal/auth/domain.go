package auth

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/voicebot/voicebot/internal/shared"
)

// Account represents a registered user account. Accounts are never mutated
// after creation.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Name            string `validate:"required"`
	Email           string `validate:"required"`
	Password        string `validate:"required,min=6,max=72"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// LoginInput carries the sign-in form.
type LoginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// ValidationError lists per-field problems. It unwraps to shared.ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return shared.ErrValidation }

// Messages shown for failed form fields.
const (
	msgFillAll       = "Please fill in all fields"
	msgMismatch      = "Passwords do not match"
	msgTooShort      = "Password must be at least 6 characters long"
	msgTooLong       = "Password is too long"
	msgLoginRequired = "Please enter both email and password"
)

// First returns the most relevant message for a single toast: missing
// fields, then mismatched confirmation, then password length.
func (e *ValidationError) First() string {
	for _, msg := range e.Fields {
		if msg == msgFillAll || msg == msgLoginRequired {
			return msg
		}
	}
	for _, field := range []string{"ConfirmPassword", "Password", "Name", "Email"} {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	return shared.UserMessage(shared.ErrValidation)
}
