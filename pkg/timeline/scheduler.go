package timeline

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	gldebug "github.com/vanderheijden86/gramline/pkg/debug"
	"github.com/vanderheijden86/gramline/pkg/metrics"
)

// SchedulerState is the render scheduler's lifecycle state.
type SchedulerState int

const (
	// SchedulerIdle means no pass is executing.
	SchedulerIdle SchedulerState = iota
	// SchedulerRunning means a pass is executing.
	SchedulerRunning
	// SchedulerStopped means the scheduler accepts no further requests.
	SchedulerStopped
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerRunning:
		return "running"
	case SchedulerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RenderOptions parameterizes one render pass. Requests that coalesce keep
// only the latest options.
type RenderOptions struct {
	// Interactive passes run during an active gesture and should skip
	// expensive recomputation; the settled pass after the gesture does the
	// full work.
	Interactive bool
	// Reason tags the request for logs: "zoom", "brush", "commit",
	// "resize", "reload".
	Reason string
}

// RenderFunc performs one render pass. It runs on the scheduler's
// goroutine; implementations deliver their result back to the event loop
// themselves (the UI sends a frame message).
type RenderFunc func(RenderOptions)

// PassError records a panic recovered from a render pass.
type PassError struct {
	Reason string
	Cause  error
	Time   time.Time
}

func (e PassError) Error() string {
	return fmt.Sprintf("render pass (%s) failed: %v", e.Reason, e.Cause)
}

func (e PassError) Unwrap() error {
	return e.Cause
}

// Scheduler coalesces render requests into the minimum number of passes.
// A request while a pass is executing overwrites the single pending slot
// and returns immediately; when the pass completes, exactly one follow-up
// pass runs with the latest options. A burst of any size while busy costs
// one follow-up, never zero and never one per request.
type Scheduler struct {
	render RenderFunc

	mu      sync.Mutex
	state   SchedulerState
	pending *RenderOptions

	passes    atomic.Int64
	coalesced atomic.Int64
	lastErr   atomic.Pointer[PassError]
}

// NewScheduler returns an idle scheduler driving render.
func NewScheduler(render RenderFunc) *Scheduler {
	return &Scheduler{render: render}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Passes returns the number of completed render passes.
func (s *Scheduler) Passes() int64 {
	return s.passes.Load()
}

// Coalesced returns the number of requests absorbed into a pending slot.
func (s *Scheduler) Coalesced() int64 {
	return s.coalesced.Load()
}

// LastError returns the most recent recovered pass panic, if any.
func (s *Scheduler) LastError() *PassError {
	return s.lastErr.Load()
}

// Request asks for a render pass with opts. Safe from any goroutine.
func (s *Scheduler) Request(opts RenderOptions) {
	s.mu.Lock()
	if s.state == SchedulerStopped {
		s.mu.Unlock()
		return
	}
	if s.state == SchedulerRunning {
		// Coalesce: keep only the latest options.
		s.pending = &opts
		n := s.coalesced.Add(1)
		metrics.RenderCoalesced.Inc()
		gldebug.LogIf(n%50 == 0, "timeline: coalesced %d render requests", n)
		s.mu.Unlock()
		return
	}
	s.pending = &opts
	s.mu.Unlock()

	go s.run()
}

// Stop prevents further passes. An executing pass finishes; its pending
// follow-up, if any, is dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.state = SchedulerStopped
	s.pending = nil
	s.mu.Unlock()
}

// run consumes the pending slot and executes one pass, then spawns one
// follow-up if the slot was refilled while it ran.
func (s *Scheduler) run() {
	s.mu.Lock()
	if s.state != SchedulerIdle || s.pending == nil {
		// Another runner is active, or we were stopped; the pending slot,
		// if set, belongs to that runner's completion check.
		s.mu.Unlock()
		return
	}
	opts := *s.pending
	s.pending = nil
	s.state = SchedulerRunning
	s.mu.Unlock()

	s.pass(opts)

	s.mu.Lock()
	if s.state == SchedulerStopped {
		s.mu.Unlock()
		return
	}
	wasPending := s.pending != nil
	s.state = SchedulerIdle
	s.mu.Unlock()

	if wasPending {
		go s.run()
	}
}

func (s *Scheduler) pass(opts RenderOptions) {
	defer metrics.Timer(metrics.RenderPass)()
	defer func() {
		if r := recover(); r != nil {
			err := &PassError{
				Reason: opts.Reason,
				Cause:  fmt.Errorf("panic: %v", r),
				Time:   time.Now(),
			}
			s.lastErr.Store(err)
			gldebug.Log("timeline: %v\n%s", err, debug.Stack())
		}
	}()
	s.render(opts)
	s.passes.Add(1)
}
