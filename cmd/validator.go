package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/Outburn-IL/fhir-validator/internal/config"
	"github.com/Outburn-IL/fhir-validator/internal/report"
	"github.com/Outburn-IL/fhir-validator/internal/session"
	"github.com/Outburn-IL/fhir-validator/internal/supervisor"
)

// newSupervisor builds a supervisor from the merged configuration.
func newSupervisor(c config.Config) (*supervisor.Supervisor, error) {
	interval, err := c.KeepAliveInterval()
	if err != nil {
		return nil, err
	}
	return supervisor.New(supervisor.Options{
		Port:              c.Port,
		JavaPath:          c.JavaPath,
		JarPath:           c.JarPath,
		MinHeap:           c.MinHeap,
		MaxHeap:           c.MaxHeap,
		Context:           c.CLIContext(),
		KeepAliveInterval: interval,
		Logger:            log,
	}), nil
}

// ensureServer makes sure a validator server answers on the configured port,
// spawning one if needed.
func ensureServer(ctx context.Context, sup *supervisor.Supervisor) (supervisor.StartResult, error) {
	res, err := sup.StartValidator(ctx)
	if err != nil {
		return res, err
	}
	if !res.Reachable() {
		return res, fmt.Errorf("validator server on port %d is not available: %s", sup.Port(), res)
	}
	return res, nil
}

// connection is a supervisor with an open session and the on-disk record of
// that session.
type connection struct {
	sup    *supervisor.Supervisor
	store  session.SessionStore
	record *session.Session
}

// connect starts (or finds) the server and resumes the saved session for its
// port, opening a new one when none is saved or fresh is set.
func connect(ctx context.Context, c config.Config, fresh bool) (*connection, error) {
	sup, err := newSupervisor(c)
	if err != nil {
		return nil, err
	}
	if _, err := ensureServer(ctx, sup); err != nil {
		sup.Shutdown()
		return nil, err
	}

	conn, err := openSession(ctx, sup, fresh)
	if err != nil {
		sup.Shutdown()
		return nil, err
	}
	return conn, nil
}

func openSession(ctx context.Context, sup *supervisor.Supervisor, fresh bool) (*connection, error) {
	store, err := session.NewSessionStore(sup.Port())
	if err != nil {
		return nil, err
	}

	if !fresh {
		rec, err := store.Load()
		switch {
		case err == nil && rec.ID != "":
			sup.ResumeSession(rec.ID)
			return &connection{sup: sup, store: store, record: rec}, nil
		case err != nil && !errors.Is(err, session.ErrNoSession):
			log.Warn("Ignoring unreadable session file: %v", err)
		}
	}

	if err := sup.InitializeSession(ctx); err != nil {
		return nil, fmt.Errorf("initializing session: %w", err)
	}
	now := time.Now()
	rec := &session.Session{
		ID:        sup.SessionID(),
		Port:      sup.Port(),
		StartTime: now,
		LastUsed:  now,
	}
	if err := store.Save(rec); err != nil {
		return nil, err
	}
	return &connection{sup: sup, store: store, record: rec}, nil
}

// save records validated resources and the current (possibly rotated)
// session id.
func (c *connection) save(validated int) error {
	c.record.Touch(c.sup.SessionID(), validated, time.Now())
	return c.store.Save(c.record)
}

func (c *connection) close() {
	c.sup.Shutdown()
}

// validateFile validates one resource file. Problems with the file itself
// end up in the result; session and transport failures are returned.
func (c *connection) validateFile(ctx context.Context, path string, profiles []string) (report.Result, error) {
	res := report.Result{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}

	outcome, err := c.sup.Validate(ctx, decodeResource(data), profiles)
	switch {
	case err == nil:
		res.Outcome = outcome
	case supervisor.IsInputError(err):
		res.Error = err.Error()
	default:
		return res, fmt.Errorf("validating %s: %w", path, err)
	}
	return res, nil
}

// decodeResource decodes a resource file so that a file holding a list is
// validated with list semantics: a one-element list is its element, longer
// lists are rejected. Files that are not JSON are returned as-is and
// rejected by Validate as invalid JSON.
func decodeResource(data []byte) any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return data
	}
	if _, ok := v.([]any); ok {
		return v
	}
	return data
}

// isTerminal reports whether v is an *os.File attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// writeReport renders r into dir and returns the file path.
func writeReport(r *report.Report, format, dir string) (string, error) {
	renderer, err := report.RendererFor(format)
	if err != nil {
		return "", err
	}
	data, err := renderer.Render(r)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := "report-" + r.CreatedAt.Format("20060102-150405") + renderer.Ext()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
