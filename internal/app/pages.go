package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voicebot/voicebot/internal/auth"
	"github.com/voicebot/voicebot/internal/capture"
	"github.com/voicebot/voicebot/internal/platform/httpx"
	"github.com/voicebot/voicebot/internal/shared"
	"github.com/voicebot/voicebot/internal/view"
)

type pageHandler struct {
	logger    *slog.Logger
	renderer  *view.Renderer
	sequencer *capture.Sequencer
}

// Profile is the account summary shown on the dashboard.
type Profile struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	MemberSince time.Time `json:"memberSince"`
}

func profileOf(acct *auth.Account) Profile {
	return Profile{Name: acct.Name, Email: acct.Email, MemberSince: acct.CreatedAt}
}

type dashboardData struct {
	Profile Profile
	Capture capture.State
}

func (h *pageHandler) bootstrap(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	v := h.renderer.Navigator.Bootstrap(sess)
	// A session pointing at a stale account falls back to the landing view.
	if v == view.ViewDashboard && auth.Current(sess) == nil {
		v = view.ViewLanding
	}
	h.renderer.Redirect(w, r, v)
}

func (h *pageHandler) landing(w http.ResponseWriter, r *http.Request) {
	page := view.Page{
		Template: "pages/landing.html",
		Title:    "VoiceBot",
		View:     view.ViewLanding,
	}
	if acct := auth.Current(shared.SessionFromContext(r.Context())); acct != nil {
		page.Account = acct
	}
	h.renderer.Render(w, r, http.StatusOK, page)
}

func (h *pageHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	acct := auth.AccountFromContext(r.Context())
	st, err := h.sequencer.State(r.Context(), acct.ID)
	if err != nil {
		h.logger.Error("load capture state", slog.String("account_id", acct.ID), slog.Any("error", err))
		h.renderer.Render(w, r, http.StatusInternalServerError, view.Page{
			Template: "pages/dashboard.html",
			Title:    "Dashboard",
			View:     view.ViewDashboard,
			Account:  acct,
			Data:     dashboardData{Profile: profileOf(acct)},
		}, shared.ToastFor(err))
		return
	}
	h.renderer.Render(w, r, http.StatusOK, view.Page{
		Template: "pages/dashboard.html",
		Title:    "Dashboard",
		View:     view.ViewDashboard,
		Account:  acct,
		Data:     dashboardData{Profile: profileOf(acct), Capture: st},
	})
}

func (h *pageHandler) profile(w http.ResponseWriter, r *http.Request) {
	acct := auth.AccountFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, profileOf(acct))
}
