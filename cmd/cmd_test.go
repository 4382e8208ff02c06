package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(new(bytes.Buffer))
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// resetFlags restores every flag of c and its subcommands to its default, so
// values from one execution don't leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolate points the config and data directories at fresh temp dirs and
// resets cobra state.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp+"/config")
	t.Setenv("XDG_DATA_HOME", tmp+"/data")
	resetFlags(rootCmd)
	return tmp
}

// fakeServer answers /validate like the validation server. Resources without
// an id get an ERROR issue; everything else gets a single informational one.
type fakeServer struct {
	mu       sync.Mutex
	sessions int
	seen     []string // session ids received, "" for new-session requests
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID       string `json:"sessionId"`
		FilesToValidate []struct {
			FileName    string `json:"fileName"`
			FileContent string `json:"fileContent"`
		} `json:"filesToValidate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.seen = append(f.seen, req.SessionID)
	id := req.SessionID
	if id == "" {
		f.sessions++
		id = fmt.Sprintf("cmd-session-%d", f.sessions)
	}
	f.mu.Unlock()

	outcomes := []map[string]any{}
	for _, file := range req.FilesToValidate {
		var res map[string]any
		_ = json.Unmarshal([]byte(file.FileContent), &res)
		issue := map[string]any{"level": "INFORMATION", "type": "INFORMATIONAL", "message": "looks fine"}
		if _, ok := res["id"]; !ok && res["resourceType"] != "Basic" {
			issue = map[string]any{"level": "ERROR", "type": "STRUCTURE", "location": res["resourceType"], "message": "id: minimum required = 1, but only found 0"}
		}
		outcomes = append(outcomes, map[string]any{
			"fileInfo": map[string]any{"fileName": file.FileName, "fileType": "json"},
			"issues":   []any{issue},
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"sessionId": id, "outcomes": outcomes})
}

func (f *fakeServer) sessionIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

// startFakeServer serves fakeServer on every interface of a free port, so the
// CLI's port probe finds it already running.
func startFakeServer(t *testing.T) (*fakeServer, int) {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fake := &fakeServer{}
	srv := httptest.NewUnstartedServer(fake)
	_ = srv.Listener.Close()
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return fake, ln.Addr().(*net.TCPAddr).Port
}

func contains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
}
