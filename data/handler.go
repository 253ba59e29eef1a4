package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/market"
)

// DefaultMaxStaleness bounds how old a forward-filled close may be.
const DefaultMaxStaleness = 7 * 24 * time.Hour

// Handler wraps a PriceSource so that no query can see a bar that has not
// fully elapsed at the timer's "now".
//
// A daily bar is keyed by its trading date and becomes visible at that
// date's market close. An intraday bar is keyed by its start and becomes
// visible at start+frequency.
type Handler struct {
	src   PriceSource
	timer clock.Timer
	cal   market.Calendar
	freq  market.Frequency

	MaxStaleness time.Duration
}

func NewHandler(src PriceSource, timer clock.Timer, cal market.Calendar, freq market.Frequency) *Handler {
	return &Handler{
		src:          src,
		timer:        timer,
		cal:          cal,
		freq:         freq,
		MaxStaleness: DefaultMaxStaleness,
	}
}

// Frequency is the session bar frequency.
func (h *Handler) Frequency() market.Frequency { return h.freq }

// Calendar is the trading calendar used for availability.
func (h *Handler) Calendar() market.Calendar { return h.cal }

// Now returns the current simulated time.
func (h *Handler) Now() time.Time { return h.timer.Now() }

// LatestAvailable returns the key of the most recent bar at freq that has
// fully elapsed at now.
func (h *Handler) LatestAvailable(freq market.Frequency) (time.Time, bool) {
	now := h.timer.Now()
	if freq.Intraday() {
		return h.latestIntraday(now, freq), true
	}
	c, ok := h.cal.LatestClose(now)
	if !ok {
		return time.Time{}, false
	}
	return market.DateKey(h.cal.Local(c)), true
}

// latestIntraday is the start of the newest intraday bar that has ended at
// now. Bars are aligned to the session open, so when the session length is
// not a multiple of freq the last bar is cut short and ends at the close.
func (h *Handler) latestIntraday(now time.Time, freq market.Frequency) time.Time {
	step := freq.Duration()
	latest := now.Add(-step)
	c, ok := h.cal.LatestClose(now)
	if !ok {
		return latest
	}
	open := h.cal.OpenOn(h.cal.Local(c))
	if last := open.Add((c.Sub(open) - 1) / step * step); last.After(latest) {
		latest = last
	}
	return latest
}

// GetPrice returns bars for every instrument with start <= Time <= end,
// where end is clamped to the latest fully elapsed bar. Instruments the
// source does not know are left out of the table.
func (h *Handler) GetPrice(insts []market.Instrument, start, end time.Time, freq market.Frequency) (Table, error) {
	latest, ok := h.LatestAvailable(freq)
	if !ok {
		return Table{}, nil
	}
	if end.After(latest) {
		end = latest
	}

	out := make(Table, len(insts))
	for _, inst := range insts {
		bars, err := h.src.Bars(inst, freq, start, end)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get price %s: %w", inst, err)
		}
		out[inst] = bars
	}
	return out, nil
}

// HistoricalBars returns the last n available bars for inst.
func (h *Handler) HistoricalBars(inst market.Instrument, n int, freq market.Frequency) (market.Bars, error) {
	latest, ok := h.LatestAvailable(freq)
	if !ok {
		return nil, &InsufficientHistoryError{Instrument: inst, Requested: n}
	}
	bars, err := h.src.Bars(inst, freq, time.Time{}, latest)
	if err != nil && !errors.Is(err, ErrNoData) {
		return nil, fmt.Errorf("historical bars %s: %w", inst, err)
	}
	if len(bars) < n {
		return nil, &InsufficientHistoryError{Instrument: inst, Requested: n, Available: len(bars)}
	}
	return bars[len(bars)-n:], nil
}

// CurrentPrice returns the quote at exactly now: the bar open at a session
// or bar open instant, the close at the session close. It never forward
// fills.
func (h *Handler) CurrentPrice(inst market.Instrument) (float64, bool) {
	now := h.timer.Now()
	if h.freq.Intraday() {
		if b, ok := h.barAt(inst, now); ok {
			return b.Open, true
		}
		if h.cal.IsCloseInstant(now) {
			if b, ok := h.barAt(inst, h.latestIntraday(now, h.freq)); ok {
				return b.Close, true
			}
		}
		return 0, false
	}

	day := market.DateKey(h.cal.Local(now))
	switch {
	case h.cal.IsOpenInstant(now):
		if b, ok := h.barAt(inst, day); ok {
			return b.Open, true
		}
	case h.cal.IsCloseInstant(now):
		if b, ok := h.barAt(inst, day); ok {
			return b.Close, true
		}
	}
	return 0, false
}

// LastAvailablePrice returns the current price when there is one,
// otherwise the most recent known price no older than MaxStaleness.
func (h *Handler) LastAvailablePrice(inst market.Instrument) (float64, bool) {
	if p, ok := h.CurrentPrice(inst); ok {
		return p, true
	}
	now := h.timer.Now()

	// During a daily session the day's open is already known.
	if !h.freq.Intraday() && h.cal.IsOpen(now) {
		if b, ok := h.barAt(inst, market.DateKey(h.cal.Local(now))); ok {
			return b.Open, true
		}
	}

	latest, ok := h.LatestAvailable(h.freq)
	if !ok {
		return 0, false
	}
	b, ok := h.src.LastBar(inst, h.freq, latest)
	if !ok {
		return 0, false
	}
	if h.MaxStaleness > 0 && now.Sub(h.barEnd(b)) > h.MaxStaleness {
		return 0, false
	}
	return b.Close, true
}

// LastAvailablePrices is LastAvailablePrice for several instruments.
// Unpriced instruments are left out.
func (h *Handler) LastAvailablePrices(insts []market.Instrument) map[market.Instrument]float64 {
	out := make(map[market.Instrument]float64, len(insts))
	for _, inst := range insts {
		if p, ok := h.LastAvailablePrice(inst); ok {
			out[inst] = p
		}
	}
	return out
}

// ElapsedBar returns the bar that has just completed at now: today's bar at
// a daily close, the bar ending now for intraday data (at the close that is
// the session's last bar, however short).
func (h *Handler) ElapsedBar(inst market.Instrument) (market.Bar, bool) {
	latest, ok := h.LatestAvailable(h.freq)
	if !ok {
		return market.Bar{}, false
	}
	if !h.freq.Intraday() && !h.barEnd(market.Bar{Time: latest}).Equal(h.timer.Now()) {
		return market.Bar{}, false
	}
	return h.barAt(inst, latest)
}

// LatestBar returns the most recent fully elapsed valid bar.
func (h *Handler) LatestBar(inst market.Instrument) (market.Bar, bool) {
	latest, ok := h.LatestAvailable(h.freq)
	if !ok {
		return market.Bar{}, false
	}
	return h.src.LastBar(inst, h.freq, latest)
}

// LatestVolume returns the traded volume of the latest elapsed bar.
func (h *Handler) LatestVolume(inst market.Instrument) (float64, bool) {
	b, ok := h.LatestBar(inst)
	if !ok || !(b.Volume > 0) {
		return 0, false
	}
	return b.Volume, true
}

func (h *Handler) barAt(inst market.Instrument, t time.Time) (market.Bar, bool) {
	bars, err := h.src.Bars(inst, h.freq, t, t)
	if err != nil || len(bars) == 0 || !bars[0].Valid() {
		return market.Bar{}, false
	}
	return bars[0], true
}

func (h *Handler) barEnd(b market.Bar) time.Time {
	if h.freq.Intraday() {
		end := b.Time.Add(h.freq.Duration())
		if c := h.cal.CloseOn(h.cal.Local(b.Time)); b.Time.Before(c) && end.After(c) {
			end = c
		}
		return end
	}
	return h.cal.CloseOn(b.Time)
}
