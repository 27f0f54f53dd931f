// Package pluginhost implements the Host Supervisor: the process that owns
// every plugin slot for one Song, pumps the native window message queue so
// embedded plugin GUIs stay responsive, and serves the control-plane
// protocol (pkg/control) in front of them.
package pluginhost

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ticktrack/core/internal/ids"
	"github.com/ticktrack/core/pkg/audiotransport"
	"github.com/ticktrack/core/pkg/control"
	"github.com/ticktrack/core/pkg/mainthread"
	"github.com/ticktrack/core/pkg/manifest"
	"github.com/ticktrack/core/pkg/nativeplugin"
)

const tickInterval = time.Second / 60 // §4.2: "per tick (~60 Hz target)"

// slotKey addresses a plugin instance by its position in the song graph.
type slotKey struct {
	Track, Module int
}

// Slot is one loaded plugin instance plus the bookkeeping the Supervisor
// needs to route control messages and block-processing calls to it.
type Slot struct {
	ID       uint64
	Track    int
	Module   int
	PluginID string
	Wrapper  *nativeplugin.Wrapper
	Endpoint *audiotransport.Endpoint

	quit chan struct{}
}

// Supervisor owns the slot registry, the control connection, and the
// pinned OS thread every plugin-ABI call must run on.
type Supervisor struct {
	log   *log.Logger
	conn  *control.Conn
	guard *mainthread.Guard
	ids   *ids.Generator

	windows     nativeplugin.WindowHost
	pluginPaths func(pluginID string) (path string, descriptorIndex uint32, err error)
	registry    *manifest.Registry

	slots   map[uint64]*Slot
	byTrack map[slotKey]*Slot

	callbackQueue chan func()
}

// Config bundles the Supervisor's collaborators. Exactly one of Registry or
// ResolvePath should be set: Registry is the normal production path (dlopen
// enumeration under Registry.Scan), ResolvePath is an escape hatch for
// tests and embedders with their own resolution scheme.
type Config struct {
	Conn        *control.Conn
	Logger      *log.Logger
	Windows     nativeplugin.WindowHost
	Registry    *manifest.Registry
	ResolvePath func(pluginID string) (path string, descriptorIndex uint32, err error)
}

// New constructs a Supervisor and starts its pinned main thread.
func New(cfg Config) *Supervisor {
	resolve := cfg.ResolvePath
	if resolve == nil && cfg.Registry != nil {
		resolve = cfg.Registry.Resolve
	}
	return &Supervisor{
		log:           cfg.Logger,
		conn:          cfg.Conn,
		guard:         mainthread.NewGuard(),
		ids:           ids.NewGenerator(),
		windows:       cfg.Windows,
		pluginPaths:   resolve,
		registry:      cfg.Registry,
		slots:         make(map[uint64]*Slot),
		byTrack:       make(map[slotKey]*Slot),
		callbackQueue: make(chan func(), 64),
	}
}

// Serve runs the §4.2 state machine until ctx is canceled or a Quit message
// is processed. It reads requests off the control connection from a
// background goroutine (net.Conn reads block) and executes every plugin-ABI
// touching step on the Supervisor's pinned OS thread via mainthread.Guard.
func (s *Supervisor) Serve(ctx context.Context) error {
	type inbound struct {
		msg control.Message
		fds []int
	}
	requests := make(chan inbound, 16)
	recvErr := make(chan error, 1)
	go func() {
		for {
			msg, fds, err := s.conn.RecvWithFDs()
			if err != nil {
				recvErr <- err
				return
			}
			requests <- inbound{msg: msg, fds: fds}
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	defer s.guard.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-recvErr:
			return fmt.Errorf("pluginhost: control connection: %w", err)

		case in := <-requests:
			// Step 1: execute strictly in arrival order, then respond.
			var resp control.Message
			var quit bool
			if err := s.guard.Do(ctx, func() { resp, quit = s.handleRequest(ctx, in.msg, in.fds) }); err != nil {
				return err
			}
			if err := s.conn.Send(resp); err != nil {
				return fmt.Errorf("pluginhost: send response: %w", err)
			}
			if quit {
				s.drainForQuit()
				return nil
			}

		case cb := <-s.callbackQueue:
			// Step 2: plugin-initiated on-main-thread callbacks.
			_ = s.guard.Do(ctx, cb)

		case <-ticker.C:
			// Step 3/4: pump native window messages, then sleep until next tick.
			_ = s.guard.Do(ctx, s.pumpWindowMessages)
		}
	}
}

// drainForQuit gives in-flight plugin callbacks a moment to finish before
// the process exits (§4.2 step 1: "sleep briefly to let workers drain").
func (s *Supervisor) drainForQuit() {
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case cb := <-s.callbackQueue:
			_ = s.guard.Do(context.Background(), cb)
		case <-deadline:
			_ = s.guard.Do(context.Background(), s.unloadAll)
			return
		}
	}
}

func (s *Supervisor) unloadAll() {
	for _, slot := range s.slots {
		close(slot.quit)
		slot.Wrapper.Destroy()
		slot.Endpoint.Close()
	}
	s.slots = make(map[uint64]*Slot)
	s.byTrack = make(map[slotKey]*Slot)
}

// QueueMainThreadCallback queues fn to run on the pinned main thread without
// blocking the plugin's calling thread. handleLoad's RequestRestart and
// RequestCallback host callbacks post through it; RequestCallback queues an
// empty function, since the plugin ABI has no on-main-thread entry point.
func (s *Supervisor) QueueMainThreadCallback(fn func()) {
	select {
	case s.callbackQueue <- fn:
	default:
		s.log.Warn("pluginhost: callback queue full, dropping callback")
	}
}

func (s *Supervisor) pumpWindowMessages() {
	pumper, ok := s.windows.(interface{ PumpMessages() })
	if !ok {
		return
	}
	pumper.PumpMessages()
}
