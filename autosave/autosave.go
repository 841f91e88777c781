// Package autosave debounces edits to a value and persists them through a
// caller-supplied mutation once the edits go quiet.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDelay is the quiet period before a buffered value is saved.
const DefaultDelay = time.Second

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("autosave: saver closed")

type State int

const (
	Idle State = iota
	Pending
	Saving
	Saved
	Reverted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case Reverted:
		return "reverted"
	}
	return "unknown"
}

// MutateFunc persists v and returns the stored form of it.
type MutateFunc[T any] func(ctx context.Context, v T) (T, error)

type Option[T any] func(*Saver[T])

func WithDelay[T any](d time.Duration) Option[T] {
	return func(s *Saver[T]) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithClock[T any](clk clock.Clock) Option[T] {
	return func(s *Saver[T]) {
		s.clock = clk
	}
}

// OnSuccess registers a callback receiving the mutation result.
func OnSuccess[T any](fn func(T)) Option[T] {
	return func(s *Saver[T]) {
		s.onSuccess = fn
	}
}

// OnError registers a callback receiving the mutation error and the value
// the saver reverted to.
func OnError[T any](fn func(error, T)) Option[T] {
	return func(s *Saver[T]) {
		s.onError = fn
	}
}

func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(s *Saver[T]) {
		s.logger = logger
	}
}

// Saver holds a locally edited value. Set buffers a change and restarts the
// quiet period; when it elapses the latest value is handed to the mutation.
//
// On failure the exposed value becomes the value that was passed to the
// failed mutation, any newer buffered edit is dropped and the state is
// Reverted. Failed saves are not retried.
type Saver[T any] struct {
	mutate    MutateFunc[T]
	delay     time.Duration
	clock     clock.Clock
	onSuccess func(T)
	onError   func(error, T)
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// saveMu serializes mutations.
	saveMu sync.Mutex

	mu        sync.Mutex
	value     T
	state     State
	lastSaved time.Time
	lastErr   error
	gen       uint64
	timer     *clock.Timer
	closed    bool
	inflight  sync.WaitGroup
}

func New[T any](initial T, mutate MutateFunc[T], opts ...Option[T]) *Saver[T] {
	s := &Saver[T]{
		mutate: mutate,
		delay:  DefaultDelay,
		clock:  clock.New(),
		logger: log.With().Str("component", "autosave").Logger(),
		value:  initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Set buffers v and restarts the quiet period.
func (s *Saver[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.value = v
	s.gen++
	s.state = Pending
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	// The timer callback must not block the clock that fires it.
	s.timer = s.clock.AfterFunc(s.delay, func() { go s.fire(gen) })
}

func (s *Saver[T]) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.state != Pending {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	_ = s.save(s.ctx)
}

// Flush saves the buffered value now instead of waiting for the timer. It
// is a no-op when nothing is pending.
func (s *Saver[T]) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != Pending {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	return s.save(ctx)
}

func (s *Saver[T]) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.state != Pending {
		// An earlier save already picked the value up.
		s.mu.Unlock()
		return nil
	}
	v := s.value
	gen := s.gen
	s.state = Saving
	s.mu.Unlock()

	result, err := s.mutate(ctx, v)

	s.mu.Lock()
	if err != nil {
		s.value = v
		s.state = Reverted
		s.lastErr = err
		s.gen++
		if s.timer != nil {
			s.timer.Stop()
		}
		onError := s.onError
		s.mu.Unlock()

		s.logger.Warn().Err(err).Msg("auto-save failed, value reverted")
		if onError != nil {
			onError(err, v)
		}
		return err
	}

	s.lastSaved = s.clock.Now()
	s.lastErr = nil
	if gen == s.gen {
		s.value = result
		s.state = Saved
	} else {
		// A newer edit arrived while saving; it stays pending.
		s.state = Pending
	}
	onSuccess := s.onSuccess
	s.mu.Unlock()

	s.logger.Debug().Msg("auto-save succeeded")
	if onSuccess != nil {
		onSuccess(result)
	}
	return nil
}

// Value returns the current local value.
func (s *Saver[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Saver[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsSaving reports whether a mutation is running.
func (s *Saver[T]) IsSaving() bool {
	return s.State() == Saving
}

// LastSaved is the time of the last successful save, zero if none.
func (s *Saver[T]) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Err is the error of the last save, nil after a success.
func (s *Saver[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close stops the timer, cancels a running mutation and waits for it to
// return. Buffered edits that were not saved are dropped.
func (s *Saver[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.inflight.Wait()
}
