/*
scheduler.go - Daily cutoff-hour rollover scheduler

PURPOSE:

	Guarantees that, absent user input, every day strictly before today
	ends up marked safe, and that today itself flips to safe once the
	cutoff hour (16:00 local) passes. The promotion itself is the pure
	board.ApplyAutoSafe; this file only owns the timer lifecycle.

DESIGN:
  - A single-shot timer is armed for the next cutoff occurrence (today
    if the hour hasn't passed yet, otherwise tomorrow)
  - On fire, the promotion runs and the timer is re-armed for the
    following day
  - A minimum delay floor avoids zero/negative scheduling around the
    cutoff boundary
  - At most one timer is live per scheduler; Stop cancels the pending
    timer so nothing fires after teardown

USAGE:

	scheduler := NewRolloverScheduler(handler)
	scheduler.Start()
	// ... later
	scheduler.Stop()

SEE ALSO:
  - board/rollover.go: the promotion rules
  - handlers.go: TriggerRollover endpoint (manual promotion)
*/
package api

import (
	"log"
	"sync"
	"time"

	"github.com/shopfloor/safety-board/board"
)

// minDelay is the scheduling floor: a fire landing exactly on (or just
// past) the cutoff re-arms at least this far out.
const minDelay = time.Second

// RolloverScheduler arms a recurring single-shot timer for the daily
// cutoff-hour promotion.
type RolloverScheduler struct {
	Handler *Handler

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	// now is a seam for tests; production uses time.Now.
	now func() time.Time
}

// NewRolloverScheduler creates a scheduler bound to the handler's state.
func NewRolloverScheduler(h *Handler) *RolloverScheduler {
	return &RolloverScheduler{Handler: h, now: time.Now}
}

// Start arms the timer for the next cutoff occurrence. Calling Start on a
// stopped or already-started scheduler is a no-op; only one timer is ever
// live.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.stopped || rs.timer != nil {
		return
	}
	rs.armLocked()
	log.Printf("[Scheduler] Started, next rollover at %s", nextCutoff(rs.now()).Format(time.RFC3339))
}

// Stop cancels the pending timer. The scheduler cannot be restarted.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.stopped = true
	if rs.timer != nil {
		rs.timer.Stop()
		rs.timer = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RolloverScheduler) armLocked() {
	delay := time.Until(nextCutoff(rs.now()))
	if delay < minDelay {
		delay = minDelay
	}
	rs.timer = time.AfterFunc(delay, rs.fire)
}

func (rs *RolloverScheduler) fire() {
	now := rs.now()
	if rs.Handler.RunRollover(now) {
		log.Printf("[Scheduler] Auto-safe promotion applied at %s", now.Format(time.RFC3339))
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.stopped {
		return
	}
	rs.armLocked()
}

// nextCutoff returns the next occurrence of the cutoff hour in now's
// location: today at 16:00 if that hasn't passed, otherwise tomorrow.
func nextCutoff(now time.Time) time.Time {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), board.CutoffHour, 0, 0, 0, now.Location())
	if !now.Before(cutoff) {
		cutoff = cutoff.AddDate(0, 0, 1)
	}
	return cutoff
}
