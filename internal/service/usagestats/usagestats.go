// Package usagestats tracks best-effort request counters for the AI client.
//
// The counters are advisory telemetry only and are never consulted for
// throttling decisions. They reset on process restart; the per-day counter
// additionally resets when the calendar day changes.
package usagestats

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	TotalRequests int `json:"totalRequests"`
	TodayRequests int `json:"todayRequests"`
	LastResetDay  int `json:"lastResetDay"`
}

// Tracker counts outbound AI requests. Safe for concurrent use.
type Tracker struct {
	mu            sync.Mutex
	totalRequests int
	todayRequests int
	lastResetDay  int
	now           func() time.Time
}

// New constructs a Tracker using the wall clock.
func New() *Tracker {
	return NewWithClock(time.Now)
}

// NewWithClock constructs a Tracker with an injectable clock.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{lastResetDay: now().Day(), now: now}
}

// Increment records one request, rolling the daily counter over when the
// calendar day has changed since the last reset.
func (t *Tracker) Increment() {
	t.mu.Lock()
	defer t.mu.Unlock()
	today := t.now().Day()
	if today != t.lastResetDay {
		t.todayRequests = 0
		t.lastResetDay = today
	}
	t.totalRequests++
	t.todayRequests++
}

// Snapshot returns the current counter values.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		TotalRequests: t.totalRequests,
		TodayRequests: t.todayRequests,
		LastResetDay:  t.lastResetDay,
	}
}
