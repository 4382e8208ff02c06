package supervisor

import (
	"context"
	"time"
)

// startKeepAlive replaces any running keep-alive task with a new one.
func (s *Supervisor) startKeepAlive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopKeepAlive != nil {
		s.stopKeepAlive()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.stopKeepAlive = func() {
		cancel()
		<-done
	}

	interval := s.opts.KeepAliveInterval
	s.activeKeepAlives.Add(1)
	s.goSafe("keep-alive", func() {
		defer close(done)
		defer s.activeKeepAlives.Add(-1)
		s.keepAlive(ctx, interval)
	})
}

func (s *Supervisor) keepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ping(ctx)
		}
	}
}

// ping sends one inert request on the current session. Failures are logged only.
func (s *Supervisor) ping(ctx context.Context) {
	sent := s.session.Load()
	if sent == nil {
		return
	}
	resp, err := s.client.Validate(ctx, s.inertRequest(keepAliveFileName, *sent))
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("Keep-alive ping failed: %v", err)
		}
		return
	}
	s.adoptSession(sent, resp.SessionID)
	s.log.Debug("Keep-alive ping sent for session: %s", s.SessionID())
}
