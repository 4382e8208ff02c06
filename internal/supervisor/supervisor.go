// Package supervisor keeps a client attached to a long-lived FHIR validation
// server: it starts the server when nothing is listening on the well-known
// port, resolves start races between concurrent clients, opens a session,
// forwards validation requests scoped to it and keeps it alive while idle.
//
// The server is shared. Shutdown detaches from it but never stops it.
package supervisor

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Outburn-IL/fhir-validator/internal/api"
	"github.com/Outburn-IL/fhir-validator/internal/logger"
)

// Defaults for Options.
const (
	DefaultPort              = 3500
	DefaultHost              = "localhost"
	DefaultMinHeap           = "4G"
	DefaultMaxHeap           = "100G"
	DefaultKeepAliveInterval = 55 * time.Minute
	DefaultPollInterval      = 500 * time.Millisecond
)

// Options configures a Supervisor. The zero value talks to a server on
// localhost:3500 and spawns it from the default jar location.
type Options struct {
	// Port is the well-known port shared by every client on the host.
	Port int
	// Host is used to build the server URL. Defaults to localhost.
	Host string
	// BaseURL overrides the server URL built from Host and Port.
	BaseURL string

	// JavaPath is the java executable. Empty means JAVA_HOME, then PATH.
	JavaPath string
	// JarPath is the validator jar. Empty means the default data directory.
	JarPath string
	MinHeap string
	MaxHeap string
	// Command replaces the java invocation entirely when set.
	Command []string
	// Env is appended to the child's environment.
	Env []string

	// Context is sent with every request. Normalized at construction.
	Context api.CLIContext

	KeepAliveInterval time.Duration
	PollInterval      time.Duration

	HTTPClient *http.Client
	Logger     *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.BaseURL == "" {
		o.BaseURL = "http://" + o.Host + ":" + strconv.Itoa(o.Port)
	}
	if o.MinHeap == "" {
		o.MinHeap = DefaultMinHeap
	}
	if o.MaxHeap == "" {
		o.MaxHeap = DefaultMaxHeap
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	return o
}

// Supervisor owns at most one spawned server process, the session id used to
// scope requests, and the keep-alive task for that session.
type Supervisor struct {
	opts    Options
	log     *logger.Logger
	client  *api.Client
	context api.CLIContext

	// session holds the current session id. Responses swap it with
	// CompareAndSwap against the pointer that was sent.
	session atomic.Pointer[string]

	startMu sync.Mutex

	mu            sync.Mutex
	child         *child
	stopKeepAlive func()

	activeKeepAlives atomic.Int32
}

// New returns a Supervisor. It performs no I/O.
func New(opts Options) *Supervisor {
	opts = opts.withDefaults()
	return &Supervisor{
		opts:    opts,
		log:     opts.Logger,
		client:  api.NewClient(opts.BaseURL, opts.HTTPClient),
		context: opts.Context.Normalize(),
	}
}

// Port returns the well-known port this supervisor probes.
func (s *Supervisor) Port() int {
	return s.opts.Port
}

// BaseURL returns the server URL requests are sent to.
func (s *Supervisor) BaseURL() string {
	return s.client.BaseURL()
}

// Context returns the validation options sent with every request.
func (s *Supervisor) Context() api.CLIContext {
	return s.context.Normalize()
}

// Shutdown stops the keep-alive task and detaches from the spawned server
// process, if any, without signalling it. The server-side session is left
// open. Calling Shutdown more than once is safe.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	stop := s.stopKeepAlive
	s.stopKeepAlive = nil
	c := s.child
	s.child = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
		s.log.Info("Keep-alive stopped.")
	}

	if c == nil {
		s.log.Debug("No validator process is managed by this instance.")
		return
	}
	if c.hasExited() {
		s.log.Debug("FHIR Validator process (pid %d) has already exited.", c.pid())
	} else {
		s.log.Info("Detaching from FHIR Validator process (pid %d). It will continue running in the background.", c.pid())
	}
	c.detach()
}

// goSafe runs fn in a goroutine, logging instead of crashing on panic.
func (s *Supervisor) goSafe(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in %s: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn()
	}()
}
