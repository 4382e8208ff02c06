package supervisor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Outburn-IL/fhir-validator/internal/api"
	"github.com/Outburn-IL/fhir-validator/internal/logger"
)

// recordedRequest is one request seen by fakeValidator.
type recordedRequest struct {
	Raw     []byte
	Request api.ValidateRequest
}

// fakeValidator mimics the /validate endpoint of the validation server. It
// hands out a new session id to requests without one and echoes every file
// back as an outcome with a single informational issue.
type fakeValidator struct {
	mu       sync.Mutex
	requests []recordedRequest
	sessions int

	// rotateNext makes the next response carry a fresh session id.
	rotateNext bool
	// noSessionID makes responses omit the session id.
	noSessionID bool
	// status, when non-zero, is returned instead of a response body.
	status int
}

func (f *fakeValidator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != api.ValidatePath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req api.ValidateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Raw: raw, Request: req})
	status := f.status
	id := req.SessionID
	if id == "" || f.rotateNext {
		f.sessions++
		id = fmt.Sprintf("session-%d", f.sessions)
		f.rotateNext = false
	}
	if f.noSessionID {
		id = ""
	}
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, "boom", status)
		return
	}

	outcomes := make([]map[string]any, 0, len(req.FilesToValidate))
	for _, file := range req.FilesToValidate {
		outcomes = append(outcomes, map[string]any{
			"fileInfo": map[string]any{"fileName": file.FileName, "fileType": file.FileType},
			"issues": []map[string]any{{
				"source":  "InstanceValidator",
				"message": "checked " + file.FileName,
				"type":    "INFORMATIONAL",
				"level":   "INFORMATION",
			}},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"sessionId": id, "outcomes": outcomes})
}

func (f *fakeValidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeValidator) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeValidator) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeValidator) rotate() {
	f.mu.Lock()
	f.rotateNext = true
	f.mu.Unlock()
}

func (f *fakeValidator) setStatus(code int) {
	f.mu.Lock()
	f.status = code
	f.mu.Unlock()
}

// issued reports whether id is one the fake handed out.
func (f *fakeValidator) issued(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n := 1; n <= f.sessions; n++ {
		if id == fmt.Sprintf("session-%d", n) {
			return true
		}
	}
	return false
}

// syncBuffer is a bytes.Buffer safe to read while a logger writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newFakeSupervisor returns a supervisor wired to a fresh fakeValidator.
func newFakeSupervisor(t testing.TB, opts Options) (*Supervisor, *fakeValidator) {
	t.Helper()
	fake := &fakeValidator{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.KeepAliveInterval == 0 {
		opts.KeepAliveInterval = time.Hour
	}
	s := New(opts)
	t.Cleanup(s.Shutdown)
	return s, fake
}

// submitted decodes the single file content of a recorded request.
func submitted(t testing.TB, rec recordedRequest) map[string]any {
	t.Helper()
	if len(rec.Request.FilesToValidate) != 1 {
		t.Fatalf("expected one file, got %d", len(rec.Request.FilesToValidate))
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(rec.Request.FilesToValidate[0].FileContent), &out); err != nil {
		t.Fatalf("file content is not JSON: %v", err)
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t testing.TB, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func discard() *logger.Logger {
	return logger.Discard()
}
