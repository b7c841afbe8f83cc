package shared

import "fmt"

// Redis and session keys shared across packages.
const (
	// SessionAccountKey holds the JSON snapshot of the signed-in account.
	SessionAccountKey = "voicebot_user"
	// AccountsHashKey is the Redis hash of registered accounts keyed by email.
	AccountsHashKey = "voicebot_users"
	// SessionViewKey holds the active page view.
	SessionViewKey = "voicebot_view"
)

// CaptureStateKey builds the Redis key holding an account's capture state.
func CaptureStateKey(accountID string) string {
	return fmt.Sprintf("voicebot:capture:%s", accountID)
}
