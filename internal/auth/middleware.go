package auth

import (
	"context"
	"net/http"

	"github.com/voicebot/voicebot/internal/platform/httpx"
	"github.com/voicebot/voicebot/internal/shared"
	"github.com/voicebot/voicebot/internal/view"
)

type accountContextKey struct{}

// AccountFromContext returns the account attached by the Require middlewares.
func AccountFromContext(ctx context.Context) *Account {
	acct, _ := ctx.Value(accountContextKey{}).(*Account)
	return acct
}

// ContextWithAccount attaches acct to ctx.
func ContextWithAccount(ctx context.Context, acct *Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, acct)
}

// RequirePage redirects anonymous visitors to the landing view.
func RequirePage(renderer *view.Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct := Current(shared.SessionFromContext(r.Context()))
			if acct == nil {
				renderer.Redirect(w, r, view.ViewLanding, shared.Warning(shared.UserMessage(shared.ErrUnauthenticated)))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), acct)))
		})
	}
}

// RequireAPI answers anonymous JSON requests with 401.
func RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct := Current(shared.SessionFromContext(r.Context()))
		if acct == nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), acct)))
	})
}
