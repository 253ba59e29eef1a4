package data

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Aggregate rolls time ordered fine bars up to the coarser frequency to. Buckets are
// aligned to the session open so they match the periodic time events;
// bars outside a session and invalid bars are ignored. A bucket needs at
// least minValid source bars to be emitted.
func Aggregate(bars market.Bars, from, to market.Frequency, cal market.Calendar, minValid int) (market.Bars, error) {
	if from == to {
		return bars, nil
	}
	if !from.Intraday() || to.Duration() < from.Duration() || to.Duration()%from.Duration() != 0 {
		return nil, fmt.Errorf("cannot aggregate %s bars to %s", from, to)
	}
	if minValid < 1 {
		minValid = 1
	}

	var out market.Bars
	var cur market.Bar
	var key time.Time
	count := 0
	flush := func() {
		if count >= minValid {
			out = append(out, cur)
		}
		count = 0
	}

	for _, b := range bars {
		if !b.Valid() {
			continue
		}
		k, ok := bucket(b.Time, to, cal)
		if !ok {
			continue
		}
		if count == 0 || !k.Equal(key) {
			if count > 0 {
				flush()
			}
			key = k
			cur = market.Bar{Time: k, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
			cur.Volume = volume(b)
			count = 1
			continue
		}
		cur.High = math.Max(cur.High, b.High)
		cur.Low = math.Min(cur.Low, b.Low)
		cur.Close = b.Close
		cur.Volume += volume(b)
		count++
	}
	if count > 0 {
		flush()
	}
	return out, nil
}

func volume(b market.Bar) float64 {
	if math.IsNaN(b.Volume) {
		return 0
	}
	return b.Volume
}

// bucket returns the key of the to-bar containing t, or false outside a
// session.
func bucket(t time.Time, to market.Frequency, cal market.Calendar) (time.Time, bool) {
	day := cal.Local(t)
	if !cal.IsTradingDay(day) {
		return time.Time{}, false
	}
	start, end := cal.OpenOn(day), cal.CloseOn(day)
	if t.Before(start) || !t.Before(end) {
		return time.Time{}, false
	}
	if !to.Intraday() {
		return market.DateKey(day), true
	}
	step := to.Duration()
	return start.Add(t.Sub(start) / step * step).UTC(), true
}

// Gap is a run of consecutive expected bars the data does not have.
type Gap struct {
	Start        time.Time
	Len          int
	WholeSession bool // covers at least one full trading day
}

// GapStats compares a series against the bars the calendar expects
// between its first and last bar.
type GapStats struct {
	Expected int
	Present  int
	Missing  int
	Gaps     []Gap
	Longest  int
}

// GapReport finds the in-session bars that are missing from the time
// ordered bars.
func GapReport(bars market.Bars, freq market.Frequency, cal market.Calendar) GapStats {
	var s GapStats
	first, ok := firstValid(bars)
	if !ok {
		return s
	}
	last, _ := bars.Last()

	have := make(map[int64]bool, len(bars))
	for _, b := range bars {
		if b.Valid() {
			have[b.Time.UnixNano()] = true
		}
	}

	var run *Gap
	endRun := func() {
		if run == nil {
			return
		}
		s.Gaps = append(s.Gaps, *run)
		if run.Len > s.Longest {
			s.Longest = run.Len
		}
		run = nil
	}

	firstDay, lastDay := first.Time, last.Time
	if freq.Intraday() {
		firstDay = market.DateKey(cal.Local(first.Time))
		lastDay = market.DateKey(cal.Local(last.Time))
	}
	for d := firstDay; !d.After(lastDay); d = d.AddDate(0, 0, 1) {
		local := cal.At(d, 0)
		if !cal.IsTradingDay(local) {
			continue
		}
		keys := expected(local, freq, cal)
		missingToday := 0
		for _, k := range keys {
			if k.Before(first.Time) || k.After(last.Time) {
				continue
			}
			s.Expected++
			if have[k.UnixNano()] {
				s.Present++
				endRun()
				continue
			}
			s.Missing++
			missingToday++
			if run == nil {
				run = &Gap{Start: k}
			}
			run.Len++
		}
		if run != nil && missingToday == len(keys) && run.Len >= len(keys) {
			run.WholeSession = true
		}
	}
	endRun()
	return s
}

func firstValid(bars market.Bars) (market.Bar, bool) {
	for _, b := range bars {
		if b.Valid() {
			return b, true
		}
	}
	return market.Bar{}, false
}

// expected lists the bar keys of one session.
func expected(day time.Time, freq market.Frequency, cal market.Calendar) []time.Time {
	if !freq.Intraday() {
		return []time.Time{market.DateKey(day)}
	}
	var out []time.Time
	end := cal.CloseOn(day)
	for t := cal.OpenOn(day); t.Before(end); t = t.Add(freq.Duration()) {
		out = append(out, t.UTC())
	}
	return out
}
