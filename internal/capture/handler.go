package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voicebot/voicebot/internal/platform/httpx"
	"github.com/voicebot/voicebot/internal/shared"
)

const (
	formAudio      = "audio"
	formTranscript = "transcript"
	downloadName   = "voicebot-output.wav"
)

// Handler exposes the capture wizard as JSON endpoints. Routes expect a
// signed-in session.
type Handler struct {
	logger    *slog.Logger
	sequencer *Sequencer
	outputs   *AudioStore
	maxBytes  int64
}

// NewHandler constructs a Handler. maxBytes caps upload bodies.
func NewHandler(logger *slog.Logger, sequencer *Sequencer, outputs *AudioStore, maxBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, sequencer: sequencer, outputs: outputs, maxBytes: maxBytes}
}

// MountRoutes registers capture routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Post("/recording", h.handleCapture(SourceMicrophone))
	r.Post("/upload", h.handleCapture(SourceFile))
	r.Post("/generate", h.handleGenerate)
	r.Post("/reset", h.handleReset)
	r.Get("/output", h.handleOutput)
}

type stateResponse struct {
	State State         `json:"state"`
	Toast *shared.Toast `json:"toast,omitempty"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := h.sequencer.State(r.Context(), shared.AccountID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stateResponse{State: st})
}

func (h *Handler) handleCapture(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := h.readAudio(w, r, src)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				toast := shared.Failure("Audio file is too large")
				httpx.JSON(w, http.StatusRequestEntityTooLarge, httpx.ProblemDetail{
					Title:  http.StatusText(http.StatusRequestEntityTooLarge),
					Status: http.StatusRequestEntityTooLarge,
					Toast:  &toast,
				})
				return
			}
			h.fail(w, err)
			return
		}
		st, err := h.sequencer.Capture(r.Context(), shared.AccountID(r.Context()), in)
		if err != nil {
			h.fail(w, err)
			return
		}
		toast := shared.Success("Audio file uploaded successfully")
		if src == SourceMicrophone {
			toast = shared.Success("Processing audio...")
			if strings.TrimSpace(in.Transcript) != "" {
				toast = shared.Success("Speech transcribed successfully")
			}
		}
		httpx.JSON(w, http.StatusOK, stateResponse{State: st, Toast: &toast})
	}
}

func (h *Handler) readAudio(w http.ResponseWriter, r *http.Request, src Source) (AudioInput, error) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return AudioInput{}, err
		}
		return AudioInput{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(formAudio)
	if err != nil {
		return AudioInput{}, fmt.Errorf("%w: missing audio", shared.ErrValidation)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return AudioInput{}, err
	}
	in := AudioInput{
		Source:      src,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	if src == SourceMicrophone {
		in.Transcript = r.FormValue(formTranscript)
	}
	return in, nil
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	st, err := h.sequencer.Generate(r.Context(), shared.AccountID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	toast := shared.Success("Generating AI analysis...")
	httpx.JSON(w, http.StatusAccepted, stateResponse{State: st, Toast: &toast})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	st, err := h.sequencer.Reset(r.Context(), shared.AccountID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	toast := shared.Success("Process reset successfully")
	httpx.JSON(w, http.StatusOK, stateResponse{State: st, Toast: &toast})
}

func (h *Handler) handleOutput(w http.ResponseWriter, r *http.Request) {
	st, err := h.sequencer.State(r.Context(), shared.AccountID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	if st.Stage != StageSynthesized || st.OutputID == "" {
		h.fail(w, shared.ErrNotFound)
		return
	}
	f, err := h.outputs.Open(st.OutputID)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	}
	http.ServeContent(w, r, downloadName, info.ModTime(), f)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("capture request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
