package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicebot/voicebot/internal/shared"
	"github.com/voicebot/voicebot/internal/view"
)

// Handler wires HTTP endpoints for sign-up, sign-in and logout.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	renderer       *view.Renderer
	sessionManager *shared.SessionManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, renderer *view.Renderer, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		renderer:       renderer,
		sessionManager: sessions,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/signin", h.showSignIn)
	r.Post("/signin", h.handleSignIn)
	r.Get("/signup", h.showSignUp)
	r.Post("/signup", h.handleSignUp)
	r.Post("/logout", h.handleLogout)
}

type signInPageData struct {
	Email  string
	Errors map[string]string
}

type signUpPageData struct {
	Name   string
	Email  string
	Errors map[string]string
}

func (h *Handler) showSignIn(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, view.Page{
		Template: "pages/signin.html",
		Title:    "Sign in",
		View:     view.ViewSignIn,
		Data:     signInPageData{},
	})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	in := LoginInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	acct, err := h.service.Login(r.Context(), sess, in)
	if err != nil {
		data := signInPageData{Email: in.Email, Errors: map[string]string{}}
		toast := h.failureToast(err, data.Errors)
		h.renderer.Render(w, r, statusFor(err), view.Page{
			Template: "pages/signin.html",
			Title:    "Sign in",
			View:     view.ViewSignIn,
			Data:     data,
		}, toast)
		return
	}
	h.renew(r, sess)
	h.logger.Info("account signed in", slog.String("account_id", acct.ID))
	h.renderer.Redirect(w, r, view.ViewDashboard, shared.Success("Welcome back, "+acct.Name+"!"))
}

func (h *Handler) showSignUp(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, view.Page{
		Template: "pages/signup.html",
		Title:    "Create account",
		View:     view.ViewSignUp,
		Data:     signUpPageData{},
	})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	in := RegisterInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	acct, err := h.service.Register(r.Context(), sess, in)
	if err != nil {
		data := signUpPageData{Name: in.Name, Email: in.Email, Errors: map[string]string{}}
		toast := h.failureToast(err, data.Errors)
		h.renderer.Render(w, r, statusFor(err), view.Page{
			Template: "pages/signup.html",
			Title:    "Create account",
			View:     view.ViewSignUp,
			Data:     data,
		}, toast)
		return
	}
	h.renew(r, sess)
	h.logger.Info("account registered", slog.String("account_id", acct.ID))
	h.renderer.Redirect(w, r, view.ViewDashboard, shared.Success("Account created successfully!"))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Logout(r.Context(), sess); err != nil {
		h.logger.Warn("logout hooks", slog.Any("error", err))
	}
	h.renew(r, sess)
	h.renderer.Redirect(w, r, view.ViewLanding, shared.Success("Logged out successfully"))
}

func (h *Handler) renew(r *http.Request, sess *shared.Session) {
	if h.sessionManager == nil || sess == nil {
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Warn("renew session", slog.Any("error", err))
	}
}

func (h *Handler) failureToast(err error, fields map[string]string) shared.Toast {
	var verr *ValidationError
	if errors.As(err, &verr) {
		for k, v := range verr.Fields {
			fields[k] = v
		}
		return shared.Failure(verr.First())
	}
	if !errors.Is(err, shared.ErrInvalidCredentials) && !errors.Is(err, shared.ErrDuplicateEmail) {
		h.logger.Error("auth request failed", slog.Any("error", err))
	}
	fields["general"] = shared.UserMessage(err)
	return shared.ToastFor(err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
