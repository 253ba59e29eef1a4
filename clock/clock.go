// Package clock holds the simulated "now" shared by every component of a
// backtest session.
package clock

import "time"

// Timer reports the current simulated time.
type Timer interface {
	Now() time.Time
}

// SettableTimer is a Timer advanced explicitly by the time flow controller.
// It is owned by a single session and is not safe for concurrent use.
type SettableTimer struct {
	now time.Time
}

func NewSettableTimer(start time.Time) *SettableTimer {
	return &SettableTimer{now: start}
}

func (t *SettableTimer) Now() time.Time { return t.now }

func (t *SettableTimer) Set(now time.Time) { t.now = now }
