package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Outburn-IL/fhir-validator/internal/config"
)

// ErrNoSession is returned by Load when no session file exists on disk.
var ErrNoSession = errors.New("no active session")

// SessionStore persists a Session to disk.
type SessionStore interface {
	Save(s *Session) error
	Load() (*Session, error) // returns ErrNoSession if none exists
	Delete() error
}

// diskStore is the concrete SessionStore that writes to the XDG data directory.
type diskStore struct {
	port int
	path string // <data dir>/session-<port>.json
}

// NewSessionStore returns a SessionStore for the server on port, backed by
// the XDG data directory.
// Path: $XDG_DATA_HOME/fhir-validator/session-<port>.json or
// ~/.local/share/fhir-validator/session-<port>.json
func NewSessionStore(port int) (SessionStore, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	name := "session-" + strconv.Itoa(port) + ".json"
	return &diskStore{port: port, path: filepath.Join(dir, name)}, nil
}

// Save writes s as the session for this store's port. The file is replaced
// atomically so a concurrent Load never sees a partial record.
func (d *diskStore) Save(s *Session) error {
	if s.Port == 0 {
		s.Port = d.port
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session for port %d: %w", d.port, err)
	}
	if err := writeAtomic(d.path, data); err != nil {
		return fmt.Errorf("saving session for port %d: %w", d.port, err)
	}
	return nil
}

// writeAtomic writes data to a temp file next to path and renames it over path.
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load returns the saved session, or ErrNoSession if there is none. A record
// written for another port is treated as absent.
func (d *diskStore) Load() (*Session, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session for port %d: %w", d.port, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", d.path, err)
	}
	if s.Port != 0 && s.Port != d.port {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Delete forgets the saved session. Deleting a missing session is not an error.
func (d *diskStore) Delete() error {
	err := os.Remove(d.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session for port %d: %w", d.port, err)
	}
	return nil
}
