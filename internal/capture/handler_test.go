package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/voicebot/internal/shared"
)

type handlerFixture struct {
	router http.Handler
	exec   *InlineExecutor
}

func newHandlerFixture(t *testing.T, maxBytes int64) handlerFixture {
	t.Helper()
	seq, exec, p := newSequencer(t)
	h := NewHandler(nil, seq, p.Outputs, maxBytes)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "sid", "secret", time.Hour, false)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			sess.SetUser("acct")
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/capture", h.MountRoutes)
	return handlerFixture{router: r, exec: exec}
}

func multipartBody(t *testing.T, filename, contentType string, data []byte, transcript string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	if transcript != "" {
		require.NoError(t, mw.WriteField("transcript", transcript))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

type apiResponse struct {
	State  State         `json:"state"`
	Toast  *shared.Toast `json:"toast"`
	Status int           `json:"status"`
}

func (f handlerFixture) post(t *testing.T, path string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	var out apiResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	return res, out
}

func TestUploadRejectsNonAudio(t *testing.T) {
	f := newHandlerFixture(t, 1<<20)
	body, ct := multipartBody(t, "notes.txt", "text/plain", []byte("not audio"), "")

	res, out := f.post(t, "/capture/upload", body, ct)

	assert.Equal(t, http.StatusUnsupportedMediaType, res.Code)
	require.NotNil(t, out.Toast)
	assert.Equal(t, "Please select a valid audio file", out.Toast.Message)
	assert.Equal(t, shared.SeverityError, out.Toast.Severity)
}

func TestUploadTooLarge(t *testing.T) {
	f := newHandlerFixture(t, 512)
	body, ct := multipartBody(t, "clip.wav", "audio/wav", wavClip, "")

	res, out := f.post(t, "/capture/upload", body, ct)

	assert.Equal(t, http.StatusRequestEntityTooLarge, res.Code)
	require.NotNil(t, out.Toast)
}

func TestGenerateBeforeCaptureWarns(t *testing.T) {
	f := newHandlerFixture(t, 1<<20)

	res, out := f.post(t, "/capture/generate", nil, "")

	assert.Equal(t, http.StatusConflict, res.Code)
	require.NotNil(t, out.Toast)
	assert.Equal(t, shared.SeverityWarning, out.Toast.Severity)
	assert.Equal(t, "Please record audio or upload a file first", out.Toast.Message)
}

func TestRecordingGenerateAndDownload(t *testing.T) {
	f := newHandlerFixture(t, 1<<20)

	body, ct := multipartBody(t, "recording.webm", "audio/webm", []byte{0x1a, 0x45, 0xdf, 0xa3}, "hello bot")
	res, out := f.post(t, "/capture/recording", body, ct)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Speech transcribed successfully", out.Toast.Message)
	assert.Equal(t, StageTranscribed, out.State.Stage)

	res, out = f.post(t, "/capture/generate", nil, "")
	require.Equal(t, http.StatusAccepted, res.Code)
	assert.Equal(t, "Generating AI analysis...", out.Toast.Message)
	f.exec.Wait()

	req := httptest.NewRequest(http.MethodGet, "/capture/output?download=1", nil)
	dl := httptest.NewRecorder()
	f.router.ServeHTTP(dl, req)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "audio/wav", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "RIFF", dl.Body.String()[:4])

	res, out = f.post(t, "/capture/reset", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Process reset successfully", out.Toast.Message)
	assert.Equal(t, StageIdle, out.State.Stage)

	req = httptest.NewRequest(http.MethodGet, "/capture/output", nil)
	missing := httptest.NewRecorder()
	f.router.ServeHTTP(missing, req)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestStateEndpoint(t *testing.T) {
	f := newHandlerFixture(t, 1<<20)
	req := httptest.NewRequest(http.MethodGet, "/capture/state", nil).WithContext(context.Background())
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `"idle"`, string(mustField(t, res.Body.Bytes(), "state", "stage")))
}

func mustField(t *testing.T, raw []byte, outer, inner string) json.RawMessage {
	t.Helper()
	var top map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &top))
	return top[outer][inner]
}
