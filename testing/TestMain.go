package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var testEnv = map[string]string{
	"VOICEBOT_TEST_MODE": "1",
	"SESSION_SECRET":     "test-session-secret",
	"CSRF_SECRET":        "test-csrf-secret",
	"ANALYSIS_DELAY":     "0s",
	"SYNTHESIS_LEAD":     "0s",
	"SYNTHESIS_DELAY":    "0s",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testEnv {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
