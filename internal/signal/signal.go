// Package signal broadcasts shutdown and pause notifications to any number
// of subscribers and adapts them into a context for cancellable loops.
package signal

import (
	"context"
	"sync"
)

// Type is the kind of notification broadcast to subscribers.
type Type string

const (
	Shutdown Type = "SHUTDOWN"
	Pause    Type = "PAUSE"
	Resume   Type = "RESUME"
)

// subscriberBuffer bounds how many undelivered notifications a slow
// subscriber may hold before newer ones are dropped for it.
const subscriberBuffer = 4

// Signal is a broadcast primitive. The zero value is not usable; call New.
// Separate Signals are fully independent.
type Signal struct {
	mu     sync.Mutex
	subs   map[int]chan Type
	nextID int
	paused bool
	done   chan struct{}
	once   sync.Once
}

// New creates a Signal with no subscribers.
func New() *Signal {
	return &Signal{
		subs: make(map[int]chan Type),
		done: make(chan struct{}),
	}
}

// Subscribe registers a receiver for notifications sent after this call.
// The returned function unsubscribes and closes the channel.
func (s *Signal) Subscribe() (<-chan Type, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Type, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Shutdown broadcasts a shutdown request. Only the first call broadcasts;
// later calls are no-ops.
func (s *Signal) Shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		s.broadcastLocked(Shutdown)
		s.mu.Unlock()
		close(s.done)
	})
}

// Pause broadcasts a pause request.
func (s *Signal) Pause() {
	s.setPaused(true, Pause)
}

// Resume broadcasts a resume request.
func (s *Signal) Resume() {
	s.setPaused(false, Resume)
}

// setPaused updates the state and notifies subscribers under one lock, so
// the last notification delivered always agrees with Paused.
func (s *Signal) setPaused(paused bool, t Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	s.broadcastLocked(t)
}

// Paused reports whether the most recent pause request is still in effect.
func (s *Signal) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Done is closed once Shutdown has been called.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Context returns a context derived from parent that is cancelled on
// Shutdown. The CancelFunc releases the watching goroutine.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// broadcastLocked must be called with s.mu held.
func (s *Signal) broadcastLocked(t Type) {
	for _, ch := range s.subs {
		select {
		case ch <- t:
		default:
			// Subscriber is lagging; drop rather than block the sender.
		}
	}
}
