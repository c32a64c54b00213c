package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"recruitai/internal/config"
)

type testEnv struct {
	api   *API
	store *memStore
	h     http.Handler
}

type option func(*config.Config)

func withScoring(url string) option {
	return func(c *config.Config) { c.ScoringWebhookURL = url }
}

func withNotify(url string) option {
	return func(c *config.Config) {
		c.RejectWebhookURL = url
		c.InviteWebhookURL = url
		c.EmailWebhookURL = url
	}
}

func withWorkers(workers, queue int) option {
	return func(c *config.Config) {
		c.Tunables.Workers = workers
		c.Tunables.QueueSize = queue
	}
}

func newTestEnv(t *testing.T, opts ...option) *testEnv {
	t.Helper()
	tun := config.DefaultTunables()
	tun.RelayTimeout = 5 * time.Second
	tun.PollInterval = 10 * time.Millisecond
	tun.PollMaxAttempts = 300
	tun.Workers = 2
	tun.QueueSize = 4
	cfg := &config.Config{Tunables: tun}
	for _, o := range opts {
		o(cfg)
	}

	store := newMemStore()
	a := NewAPI(Options{Config: cfg, Store: store})
	t.Cleanup(a.Close)
	return &testEnv{api: a, store: store, h: NewRouter(a)}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, v interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	return e.do(t, method, path, body, header)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

type formFile struct {
	field, filename, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (io.Reader, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(part, f.content)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	h := http.Header{}
	h.Set("Content-Type", w.FormDataContentType())
	return &buf, h
}

// webhook is a stand-in for the external workflow. It counts calls and
// answers with the configured status and body.
type webhook struct {
	*httptest.Server
	calls  atomic.Int32
	status int
	body   string
	last   atomic.Value // []byte
}

func newWebhook(t *testing.T, status int, body string) *webhook {
	t.Helper()
	wh := &webhook{status: status, body: body}
	wh.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wh.calls.Add(1)
		raw, _ := io.ReadAll(r.Body)
		wh.last.Store(raw)
		w.WriteHeader(wh.status)
		io.WriteString(w, wh.body)
	}))
	t.Cleanup(wh.Close)
	return wh
}

func (wh *webhook) lastBody() string {
	raw, _ := wh.last.Load().([]byte)
	return string(raw)
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	if body.OK {
		t.Errorf("error response has ok=true: %s", rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/score", nil, nil)
	wantStatus(t, rec, http.StatusMethodNotAllowed)
}
