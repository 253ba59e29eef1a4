package market

import (
	"math"
	"sort"
	"time"
)

// PriceField selects one column of a bar.
type PriceField int

const (
	Open PriceField = iota
	High
	Low
	Close
	Volume
)

func (f PriceField) String() string {
	switch f {
	case Open:
		return "open"
	case High:
		return "high"
	case Low:
		return "low"
	case Close:
		return "close"
	case Volume:
		return "volume"
	}
	return "unknown"
}

// Bar represents OHLCV data for one period.
//
// Daily bars are keyed by their trading date at midnight UTC. Intraday bars
// are keyed by the start of the period they cover.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Field returns the value of a single column.
func (b Bar) Field(f PriceField) float64 {
	switch f {
	case Open:
		return b.Open
	case High:
		return b.High
	case Low:
		return b.Low
	case Close:
		return b.Close
	case Volume:
		return b.Volume
	}
	return math.NaN()
}

// Valid reports whether the bar carries a usable quote.
func (b Bar) Valid() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || v <= 0 {
			return false
		}
	}
	return true
}

// Bars is a time-ascending series of bars for one instrument.
type Bars []Bar

// Search returns the index of the first bar with Time >= t.
func (bs Bars) Search(t time.Time) int {
	return sort.Search(len(bs), func(i int) bool {
		return !bs[i].Time.Before(t)
	})
}

// Between returns the bars with start <= Time <= end. The result shares
// the backing array with bs but is capped at its length, so appending to it
// never writes into bs.
func (bs Bars) Between(start, end time.Time) Bars {
	if end.Before(start) {
		return nil
	}
	lo := bs.Search(start)
	hi := sort.Search(len(bs), func(i int) bool {
		return bs[i].Time.After(end)
	})
	if lo >= hi {
		return nil
	}
	return bs[lo:hi:hi]
}

// At returns the bar stamped exactly at t.
func (bs Bars) At(t time.Time) (Bar, bool) {
	i := bs.Search(t)
	if i < len(bs) && bs[i].Time.Equal(t) {
		return bs[i], true
	}
	return Bar{}, false
}

// Last returns the most recent bar.
func (bs Bars) Last() (Bar, bool) {
	if len(bs) == 0 {
		return Bar{}, false
	}
	return bs[len(bs)-1], true
}

// Closes returns the close column.
func (bs Bars) Closes() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.Close
	}
	return out
}

// DateKey normalizes t to midnight UTC of its calendar date, the key used
// for daily bars.
func DateKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
