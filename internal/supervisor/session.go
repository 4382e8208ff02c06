package supervisor

import (
	"context"

	"github.com/Outburn-IL/fhir-validator/internal/api"
)

// inertContent is a resource the server validates without side effects. It is
// used to open sessions and to keep them alive.
const inertContent = `{"resourceType": "Basic"}`

const (
	initFileName      = "initializeSession.json"
	keepAliveFileName = "keepalive.json"
)

func (s *Supervisor) inertRequest(fileName, sessionID string) *api.ValidateRequest {
	return &api.ValidateRequest{
		CLIContext: s.context,
		FilesToValidate: []api.FileToValidate{{
			FileName:    fileName,
			FileContent: inertContent,
			FileType:    api.FileTypeJSON,
		}},
		SessionID: sessionID,
	}
}

// InitializeSession opens a new session on the server, stores its id and
// (re)starts the keep-alive task. It must succeed before Validate is used.
// Transport errors are returned as-is.
func (s *Supervisor) InitializeSession(ctx context.Context) error {
	s.log.Info("Initializing FHIR validation session...")
	resp, err := s.client.Validate(ctx, s.inertRequest(initFileName, ""))
	if err != nil {
		return err
	}
	if resp.SessionID == "" {
		return ErrNoSessionID
	}

	id := resp.SessionID
	s.session.Store(&id)
	s.log.Info("Session initialized: %s", id)

	s.startKeepAlive()
	return nil
}

// ResumeSession adopts a session id obtained earlier, for example by a
// previous run of the same client, and starts the keep-alive task. No request
// is made; if the server has expired the session, the next response carries a
// replacement that is adopted automatically.
func (s *Supervisor) ResumeSession(id string) {
	if id == "" {
		return
	}
	s.session.Store(&id)
	s.log.Debug("Resuming session %s", id)
	s.startKeepAlive()
}

// SessionID returns the current session id, or "" before a session exists.
func (s *Supervisor) SessionID() string {
	if p := s.session.Load(); p != nil {
		return *p
	}
	return ""
}

// adoptSession replaces the session id that was sent with the one the server
// answered with, unless another response already replaced it.
func (s *Supervisor) adoptSession(sent *string, got string) {
	if got == "" || sent == nil || got == *sent {
		return
	}
	if s.session.CompareAndSwap(sent, &got) {
		s.log.Warn("Session mismatch detected! Updating sessionId to %s", got)
	}
}
