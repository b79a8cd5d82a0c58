package persist

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultDebounce is how long the saver waits after the last mutation
// before writing. Bursts of edits within the window coalesce into one
// write; the last scheduled snapshot wins.
const DefaultDebounce = 450 * time.Millisecond

// Saver debounces snapshot writes. Persistence is best-effort: write
// failures are logged and swallowed, never surfaced to the interactive
// path. One Saver is live per running dashboard; Stop releases its timer.
type Saver struct {
	store SnapshotStore
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *pendingWrite
	stopped bool
}

type pendingWrite struct {
	year int
	snap Snapshot
}

// NewSaver creates a saver over store. A non-positive delay falls back to
// DefaultDebounce.
func NewSaver(store SnapshotStore, delay time.Duration) *Saver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Saver{store: store, delay: delay}
}

// Schedule queues snap for writing after the debounce window. A schedule
// arriving while a write is pending replaces it and restarts the window.
func (s *Saver) Schedule(year int, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.pending = &pendingWrite{year: year, snap: snap}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Flush writes any pending snapshot immediately and cancels the timer.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.write(pending)
}

// Stop flushes any pending write and prevents further scheduling. Must be
// called on teardown so no timer outlives the dashboard instance.
func (s *Saver) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.write(pending)
}

func (s *Saver) fire() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	s.write(pending)
}

func (s *Saver) write(pending *pendingWrite) {
	if pending == nil {
		return
	}
	doc, err := Encode(pending.snap)
	if err != nil {
		log.Printf("[Saver] Failed to encode snapshot for %d: %v", pending.year, err)
		return
	}
	if err := s.store.SaveSnapshot(context.Background(), pending.year, doc); err != nil {
		log.Printf("[Saver] Failed to save snapshot for %d: %v", pending.year, err)
	}
}
