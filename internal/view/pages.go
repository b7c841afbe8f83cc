package view

import "github.com/voicebot/voicebot/internal/shared"

// View is one of the mutually exclusive pages of the app.
type View int

// Views.
const (
	ViewLanding View = iota
	ViewSignIn
	ViewSignUp
	ViewDashboard
)

var viewNames = [...]string{"landing", "signin", "signup", "dashboard"}

var viewPaths = [...]string{"/welcome", "/auth/signin", "/auth/signup", "/dashboard"}

// String returns the view name used in templates and the session.
func (v View) String() string {
	if v < ViewLanding || v > ViewDashboard {
		return "unknown"
	}
	return viewNames[v]
}

// Path returns the canonical URL of the view.
func (v View) Path() string {
	if v < ViewLanding || v > ViewDashboard {
		return viewPaths[ViewLanding]
	}
	return viewPaths[v]
}

// ParseView resolves a view name.
func ParseView(name string) (View, bool) {
	for i, n := range viewNames {
		if n == name {
			return View(i), true
		}
	}
	return ViewLanding, false
}

// Views lists every view in declaration order.
func Views() []View {
	return []View{ViewLanding, ViewSignIn, ViewSignUp, ViewDashboard}
}

// Navigator tracks the single active view of a session.
type Navigator struct{}

// Navigate replaces the active view and returns its path.
func (Navigator) Navigate(sess *shared.Session, v View) string {
	if sess != nil {
		sess.Set(shared.SessionViewKey, v.String())
	}
	return v.Path()
}

// Active reports the session's active view, defaulting to Bootstrap.
func (n Navigator) Active(sess *shared.Session) View {
	if sess != nil {
		if v, ok := ParseView(sess.Get(shared.SessionViewKey)); ok {
			return v
		}
	}
	return n.Bootstrap(sess)
}

// Bootstrap picks the start view: Dashboard for a signed-in session, else
// Landing.
func (Navigator) Bootstrap(sess *shared.Session) View {
	if sess != nil && sess.User() != "" {
		return ViewDashboard
	}
	return ViewLanding
}
