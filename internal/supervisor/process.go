package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Outburn-IL/fhir-validator/internal/jdk"
)

// readinessPhrases are the server log fragments that mean it accepts requests.
var readinessPhrases = []string{"Responding at", "Started ServerConnector"}

// environmentMarker is added to the child's environment.
const environmentMarker = "ENVIRONMENT=prod"

// StartResult describes how StartValidator resolved.
type StartResult int

const (
	// StartAlreadyRunning: the port was bound before anything was spawned.
	StartAlreadyRunning StartResult = iota
	// StartSpawned: the local child reported readiness.
	StartSpawned
	// StartLostRace: another process bound the port first; the local child was terminated.
	StartLostRace
	// StartExited: the local child exited before becoming ready.
	StartExited
	// StartFailed: the child could not be spawned.
	StartFailed
)

func (r StartResult) String() string {
	switch r {
	case StartAlreadyRunning:
		return "already running"
	case StartSpawned:
		return "spawned"
	case StartLostRace:
		return "lost start race"
	case StartExited:
		return "exited"
	case StartFailed:
		return "spawn failed"
	}
	return fmt.Sprintf("StartResult(%d)", int(r))
}

// Reachable reports whether a server should be listening on the port.
func (r StartResult) Reachable() bool {
	return r == StartAlreadyRunning || r == StartSpawned || r == StartLostRace
}

// StartValidator makes sure a validation server is listening on the
// well-known port. If the port is free it spawns one as a detached child and
// waits, with no upper bound, until the child logs a readiness line or some
// other process binds the port first. In the latter case the local child is
// terminated and the other server is used.
//
// Process failures are logged and reported through the StartResult; the
// returned error is non-nil only when ctx is cancelled while waiting, in which
// case the child is left running.
func (s *Supervisor) StartValidator(ctx context.Context) (StartResult, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	port := s.opts.Port
	if PortInUse(port) {
		s.log.Info("FHIR Validator Server is already running on port %d.", port)
		return StartAlreadyRunning, nil
	}

	s.log.Info("Starting FHIR Validator Server on port %d...", port)
	s.log.Info("All logs from the validator process will be reported here.")

	c, err := s.spawn()
	if err != nil {
		s.log.Error("Failed to start FHIR Validator Server: %v", err)
		return StartFailed, nil
	}

	s.mu.Lock()
	s.child = c
	s.mu.Unlock()

	res, err := s.awaitStartup(ctx, c)
	if err != nil {
		return res, err
	}
	switch res {
	case StartSpawned:
		s.log.Info("FHIR Validator Server is ready.")
	case StartLostRace:
		s.log.Info("FHIR Validator Server is already running.")
	}
	return res, nil
}

// awaitStartup polls the port until the child is ready, loses the race, or exits.
func (s *Supervisor) awaitStartup(ctx context.Context, c *child) (StartResult, error) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	// The port must be seen bound on two consecutive polls without a
	// readiness line before the start counts as lost. A child that binds and
	// logs a moment later gets one interval to do so.
	boundWithoutReady := false

	for {
		select {
		case <-ctx.Done():
			return StartFailed, ctx.Err()

		case <-c.ready:
			return StartSpawned, nil

		case <-c.exited:
			if c.isReady() {
				return StartSpawned, nil
			}
			if PortInUse(s.opts.Port) {
				s.log.Warn("FHIR Validator process exited while another process holds port %d; using that server.", s.opts.Port)
				return StartLostRace, nil
			}
			s.log.Error("FHIR Validator process exited before it was ready: %v", c.exitErr)
			return StartExited, nil

		case <-ticker.C:
			if c.isReady() {
				return StartSpawned, nil
			}
			if !PortInUse(s.opts.Port) {
				boundWithoutReady = false
				continue
			}
			if !boundWithoutReady {
				boundWithoutReady = true
				continue
			}
			s.log.Warn("Another process bound port %d first. Switching to 'already running' mode and terminating this process.", s.opts.Port)
			if err := terminate(c.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.log.Error("Failed to terminate redundant FHIR Validator process: %v", err)
			}
			return StartLostRace, nil
		}
	}
}

// command returns the argv used to launch the server.
func (s *Supervisor) command() ([]string, error) {
	if len(s.opts.Command) > 0 {
		return s.opts.Command, nil
	}
	java, err := jdk.FindJava(s.opts.JavaPath)
	if err != nil {
		return nil, err
	}
	jar, err := jdk.ResolveJar(s.opts.JarPath)
	if err != nil {
		return nil, err
	}
	return []string{
		java,
		"-Xms" + s.opts.MinHeap,
		"-Xmx" + s.opts.MaxHeap,
		"-Dfile.encoding=UTF-8",
		"-jar", jar,
		"-startServer",
	}, nil
}

// spawn starts the server process with its output piped back to us.
func (s *Supervisor) spawn() (*child, error) {
	argv, err := s.command()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 -- argv comes from local configuration
	cmd.Env = append(append(os.Environ(), environmentMarker), s.opts.Env...)
	setDetached(cmd)

	// os.Pipe rather than StdoutPipe: the reaper calls Wait while the relays
	// are still reading, which StdoutPipe does not allow.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	startErr := cmd.Start()
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()
	if startErr != nil {
		outR.Close()
		errR.Close()
		return nil, fmt.Errorf("start %s: %w", argv[0], startErr)
	}

	c := &child{
		cmd:    cmd,
		stdout: outR,
		stderr: errR,
		ready:  make(chan struct{}),
		exited: make(chan struct{}),
	}
	s.log.Debug("Spawned FHIR Validator process pid %d: %s", cmd.Process.Pid, strings.Join(argv, " "))

	s.goSafe("validator stdout relay", func() { c.relay(c.stdout, s.log.Info, true) })
	s.goSafe("validator stderr relay", func() { c.relay(c.stderr, s.log.Error, false) })
	s.goSafe("validator reaper", func() {
		err := cmd.Wait()
		c.exitErr = err
		close(c.exited)
		if c.detached.Load() {
			return
		}
		if err != nil {
			s.log.Error("FHIR Validator process exited: %v", err)
		} else {
			s.log.Error("FHIR Validator process exited with code 0")
		}
	})
	return c, nil
}

// child is a spawned server process observed by one Supervisor.
type child struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File

	ready     chan struct{}
	readyOnce sync.Once
	exited    chan struct{}
	exitErr   error // written before exited is closed

	detached   atomic.Bool
	detachOnce sync.Once
}

func (c *child) pid() int {
	return c.cmd.Process.Pid
}

func (c *child) isReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

func (c *child) hasExited() bool {
	select {
	case <-c.exited:
		return true
	default:
		return false
	}
}

// relay forwards each line of r to logf until r is closed. stdout lines are
// also checked for readiness.
func (c *child) relay(r io.Reader, logf func(string, ...any), watchReady bool) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !c.detached.Load() {
			logf("[FHIR Validator] %s", line)
		}
		if watchReady && containsAny(line, readinessPhrases) {
			c.readyOnce.Do(func() { close(c.ready) })
		}
	}
}

// detach stops relaying the child's output and stops reporting its exit.
// The process itself is not signalled.
func (c *child) detach() {
	c.detachOnce.Do(func() {
		c.detached.Store(true)
		_ = c.stdout.Close()
		_ = c.stderr.Close()
	})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
