package view

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/voicebot/voicebot/internal/shared"
	"github.com/voicebot/voicebot/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title         string
	CSRFToken     string
	Toasts        []shared.Toast
	ToastTTLMilli int64
	CurrentPath   string
	View          string
	Account       any
	Data          any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// Page describes one rendered view.
type Page struct {
	Template string
	Title    string
	View     View
	Account  any
	Data     any
}

// Renderer renders pages with session derived data: CSRF token, pending
// toasts and the active view.
type Renderer struct {
	Engine    *Engine
	CSRF      *shared.CSRFManager
	Navigator Navigator
	Logger    *slog.Logger
	ToastTTL  time.Duration
}

// Render writes the page with status, marking its view active.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, p Page, extra ...shared.Toast) {
	sess := shared.SessionFromContext(req.Context())
	var csrfToken string
	if r.CSRF != nil {
		csrfToken, _ = r.CSRF.EnsureToken(req.Context(), sess)
	}
	var toasts []shared.Toast
	if sess != nil {
		r.Navigator.Navigate(sess, p.View)
		toasts = sess.PopToasts()
	}
	toasts = append(toasts, extra...)
	data := TemplateData{
		Title:         p.Title,
		CSRFToken:     csrfToken,
		Toasts:        toasts,
		ToastTTLMilli: r.ToastTTL.Milliseconds(),
		CurrentPath:   req.URL.Path,
		View:          p.View.String(),
		Account:       p.Account,
		Data:          p.Data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.Engine.Render(w, p.Template, data); err != nil {
		r.logger().Error("render page", slog.String("template", p.Template), slog.Any("error", err))
	}
}

// Redirect queues toasts in the session and redirects to the view.
func (r *Renderer) Redirect(w http.ResponseWriter, req *http.Request, v View, toasts ...shared.Toast) {
	sess := shared.SessionFromContext(req.Context())
	if sess != nil {
		for _, t := range toasts {
			sess.AddToast(t)
		}
	}
	http.Redirect(w, req, r.Navigator.Navigate(sess, v), http.StatusSeeOther)
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
