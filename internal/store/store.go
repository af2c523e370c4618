// Package store owns the application state. All transitions go through
// Dispatch, which applies the reducer under a lock, so there is exactly one
// writer no matter how many goroutines produce actions.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmynk/justsplit/internal/metrics"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/reducer"
	"github.com/mmynk/justsplit/internal/remote"
)

// Store coordinates concurrent access to the state.
type Store struct {
	mu         sync.RWMutex
	state      models.State
	reducer    *reducer.Reducer
	generation uint64
	watchers   map[chan struct{}]struct{}
	logger     *slog.Logger
}

// New creates a Store holding initial. A nil reducer uses reducer.New(nil).
func New(initial models.State, r *reducer.Reducer) *Store {
	if r == nil {
		r = reducer.New(nil)
	}
	return &Store{
		state:    initial,
		reducer:  r,
		watchers: make(map[chan struct{}]struct{}),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the logger used for dropped replacements.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Dispatch applies a and returns the new state.
func (s *Store) Dispatch(a reducer.Action) models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(a)
}

func (s *Store) apply(a reducer.Action) models.State {
	s.state = s.reducer.Reduce(s.state, a)
	if a != nil {
		metrics.ActionsTotal.WithLabelValues(string(a.Type())).Inc()
	}
	s.notify()
	return s.state
}

// Reset replaces the whole state, for example when another user signs in.
func (s *Store) Reset(state models.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.notify()
}

// Snapshot returns the current state. The value shares memory with the
// store and must be treated as read-only.
func (s *Store) Snapshot() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Generation returns the subscription generation whose replacements are
// currently accepted.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// NextGeneration moves to a new subscription generation and returns it.
// Replacements from earlier generations are dropped from then on.
func (s *Store) NextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// SetGeneration sets the accepted subscription generation.
func (s *Store) SetGeneration(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = n
}

// Apply dispatches the action of r if it belongs to the current
// generation. It reports whether r was applied.
func (s *Store) Apply(r remote.Replacement) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Generation != s.generation {
		metrics.StaleReplacementsTotal.Inc()
		s.logger.Debug("Dropping stale replacement",
			"collection", r.Collection,
			"generation", r.Generation,
			"current", s.generation,
		)
		return false
	}
	s.apply(r.Action)
	return true
}

// Consume applies replacements from ch until it is closed or ctx is done.
func (s *Store) Consume(ctx context.Context, ch <-chan remote.Replacement) {
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return
			}
			s.Apply(r)
		case <-ctx.Done():
			return
		}
	}
}

// Watch returns a channel that receives a signal after state changes.
// Signals coalesce: a slow reader sees one pending signal, not one per
// change. The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()
		close(ch)
	}()

	return ch
}

// notify must be called with s.mu held.
func (s *Store) notify() {
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
