package market

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// searchDays bounds how far the calendar walks looking for a trading day.
const searchDays = 30

// Calendar describes when the market trades: a daily session between Open and
// Close (offsets from local midnight) on weekdays that are not holidays.
type Calendar struct {
	Location *time.Location
	Open     time.Duration
	Close    time.Duration
	Holidays map[time.Time]struct{} // keyed by DateKey
}

// DefaultCalendar is the US equity session expressed in UTC
// (09:30-16:00 New York without daylight saving).
func DefaultCalendar() Calendar {
	return Calendar{
		Location: time.UTC,
		Open:     13*time.Hour + 30*time.Minute,
		Close:    20 * time.Hour,
	}
}

// NewCalendar builds a calendar from "15:04" session bounds, an IANA zone
// name and "2006-01-02" holiday dates.
func NewCalendar(open, close, zone string, holidays []string) (Calendar, error) {
	loc := time.UTC
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return Calendar{}, fmt.Errorf("load location %q: %w", zone, err)
		}
		loc = l
	}

	o, err := parseClock(open)
	if err != nil {
		return Calendar{}, fmt.Errorf("market open: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return Calendar{}, fmt.Errorf("market close: %w", err)
	}
	if c <= o {
		return Calendar{}, fmt.Errorf("market close %s must be after open %s", close, open)
	}

	cal := Calendar{Location: loc, Open: o, Close: c}
	for _, h := range holidays {
		d, err := time.Parse("2006-01-02", h)
		if err != nil {
			return Calendar{}, fmt.Errorf("holiday %q: %w", h, err)
		}
		if cal.Holidays == nil {
			cal.Holidays = make(map[time.Time]struct{})
		}
		cal.Holidays[DateKey(d)] = struct{}{}
	}
	return cal, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// IsTradingDay reports whether the calendar date of day (in its own
// location) has a session.
func (c Calendar) IsTradingDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.Holidays[DateKey(day)]
	return !holiday
}

// Local converts t into the calendar's location.
func (c Calendar) Local(t time.Time) time.Time {
	return t.In(c.loc())
}

// At returns the instant offset from midnight of day's calendar date.
// Building the wall clock with time.Date keeps it stable across DST changes.
func (c Calendar) At(day time.Time, offset time.Duration) time.Time {
	y, m, d := day.Date()
	h := int(offset / time.Hour)
	mi := int((offset % time.Hour) / time.Minute)
	s := int((offset % time.Minute) / time.Second)
	return time.Date(y, m, d, h, mi, s, 0, c.loc())
}

// OpenOn returns the session open of day's calendar date.
func (c Calendar) OpenOn(day time.Time) time.Time { return c.At(day, c.Open) }

// CloseOn returns the session close of day's calendar date.
func (c Calendar) CloseOn(day time.Time) time.Time { return c.At(day, c.Close) }

// NextAfter returns the first instant strictly after now produced by at for a
// trading day. Zero time is returned when nothing is found within the search
// horizon.
func (c Calendar) NextAfter(now time.Time, at func(day time.Time) time.Time) time.Time {
	today := c.Local(now)
	for i := -1; i <= searchDays; i++ {
		day := today.AddDate(0, 0, i)
		if !c.IsTradingDay(day) {
			continue
		}
		if t := at(day); t.After(now) {
			return t
		}
	}
	return time.Time{}
}

// LatestClose returns the most recent session close at or before now.
func (c Calendar) LatestClose(now time.Time) (time.Time, bool) {
	today := c.Local(now)
	for i := 0; i <= searchDays; i++ {
		day := today.AddDate(0, 0, -i)
		if !c.IsTradingDay(day) {
			continue
		}
		if t := c.CloseOn(day); !t.After(now) {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsOpen reports whether now falls inside a session [open, close).
func (c Calendar) IsOpen(now time.Time) bool {
	day := c.Local(now)
	if !c.IsTradingDay(day) {
		return false
	}
	return !now.Before(c.OpenOn(day)) && now.Before(c.CloseOn(day))
}

// IsOpenInstant reports whether now is exactly a session open.
func (c Calendar) IsOpenInstant(now time.Time) bool {
	day := c.Local(now)
	return c.IsTradingDay(day) && now.Equal(c.OpenOn(day))
}

// IsCloseInstant reports whether now is exactly a session close.
func (c Calendar) IsCloseInstant(now time.Time) bool {
	day := c.Local(now)
	return c.IsTradingDay(day) && now.Equal(c.CloseOn(day))
}
