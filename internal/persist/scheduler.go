package persist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// DefaultDelay is the debounce delay used when none is configured.
const DefaultDelay = 400 * time.Millisecond

// Write outcomes reported to a Recorder.
const (
	OutcomeSent       = "sent"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

// Recorder observes write outcomes.
type Recorder interface {
	ObserveWrite(outcome string)
}

// Scheduler debounces details writes per interface. Every Schedule call
// invalidates the pending write of that interface and restarts its timer;
// only the newest pending value is ever written.
type Scheduler struct {
	sink     core.DetailsSink
	clock    clock.Clock
	delay    time.Duration
	logger   *slog.Logger
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	wg      sync.WaitGroup
}

type entry struct {
	// base is the last snapshot the sink accepted.
	base core.Details
	// lastSent is the serialized form of the last patch the sink accepted.
	lastSent []byte

	pending    *core.Details
	generation uint64
	timer      *clock.Timer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock driving the debounce timers.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder reports write outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// NewScheduler creates a scheduler writing to sink. Writes run under a
// context that is cancelled by Close.
func NewScheduler(sink core.DetailsSink, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sink:    sink,
		clock:   clock.New(),
		delay:   DefaultDelay,
		logger:  slog.New(slog.DiscardHandler),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Track sets the snapshot an interface's stored details currently hold.
// Patches are computed against it until a write succeeds.
func (s *Scheduler) Track(interfaceID string, stored core.Details) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(interfaceID)
	e.base = stored
}

// Schedule records current as the pending value of an interface and restarts
// its debounce timer. It returns the generation of the pending write.
func (s *Scheduler) Schedule(interfaceID string, current core.Details) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(interfaceID)
	if e.timer != nil && e.timer.Stop() && e.pending != nil {
		s.observe(OutcomeSuperseded)
	}
	e.generation++
	snapshot := current
	e.pending = &snapshot

	gen := e.generation
	e.timer = s.clock.AfterFunc(s.delay, func() {
		s.fire(interfaceID, gen)
	})
	return gen
}

// Cancel discards the pending write of an interface, if any.
func (s *Scheduler) Cancel(interfaceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[interfaceID]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.generation++
		e.pending = nil
	}
}

// Pending reports whether an interface has a value not yet accepted by the
// sink, either waiting for its timer or left over from a failed write.
func (s *Scheduler) Pending(interfaceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[interfaceID]
	return ok && e.pending != nil
}

// Flush writes the pending value of an interface immediately.
func (s *Scheduler) Flush(ctx context.Context, interfaceID string) error {
	s.mu.Lock()
	e, ok := s.entries[interfaceID]
	if !ok || e.pending == nil {
		s.mu.Unlock()
		return nil
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.generation++
	gen := e.generation
	s.mu.Unlock()

	return s.write(ctx, interfaceID, gen)
}

// FlushAll writes every pending value immediately and returns the first error.
func (s *Scheduler) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if e.pending != nil {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	var first error
	for _, id := range ids {
		if err := s.Flush(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close stops every timer, waits for in-flight writes and cancels the write
// context. Pending writes are discarded; call FlushAll first to keep them.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.generation++
		e.pending = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.cancel()
}

func (s *Scheduler) entry(interfaceID string) *entry {
	e, ok := s.entries[interfaceID]
	if !ok {
		e = &entry{}
		s.entries[interfaceID] = e
	}
	return e
}

func (s *Scheduler) fire(interfaceID string, gen uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	if err := s.write(s.ctx, interfaceID, gen); err != nil {
		s.logger.Warn("details write failed", "interface", interfaceID, "error", err)
	}
}

// write sends the pending value of generation gen. A value superseded in the
// meantime is dropped without writing. When the sink fails, the value becomes
// pending again unless something newer replaced or cancelled it, so the next
// Flush or Schedule resends it.
func (s *Scheduler) write(ctx context.Context, interfaceID string, gen uint64) error {
	s.mu.Lock()
	e, ok := s.entries[interfaceID]
	if !ok || e.generation != gen || e.pending == nil {
		s.mu.Unlock()
		return nil
	}
	pending := *e.pending
	e.pending = nil
	base := e.base
	lastSent := e.lastSent
	s.mu.Unlock()

	patch := Diff(base, pending)
	if patch.Empty() {
		s.observe(OutcomeSuppressed)
		s.logger.Debug("details unchanged, write suppressed", "interface", interfaceID)
		return nil
	}
	data, err := Serialize(patch)
	if err != nil {
		return err
	}
	if bytes.Equal(data, lastSent) {
		s.observe(OutcomeSuppressed)
		s.logger.Debug("duplicate patch suppressed", "interface", interfaceID)
		return nil
	}

	if err := s.sink.OnDetailsChanged(ctx, interfaceID, patch); err != nil {
		s.mu.Lock()
		if e.generation == gen && e.pending == nil {
			e.pending = &pending
		}
		s.mu.Unlock()
		s.observe(OutcomeFailed)
		return fmt.Errorf("failed to write details for %s: %w", interfaceID, err)
	}

	s.mu.Lock()
	e.base = patch.Apply(base)
	e.lastSent = data
	s.mu.Unlock()

	s.observe(OutcomeSent)
	s.logger.Debug("details written", "interface", interfaceID, "bytes", len(data))
	return nil
}

func (s *Scheduler) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveWrite(outcome)
	}
}
