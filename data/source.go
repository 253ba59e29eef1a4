// Package data provides price sources and the Handler that guards them
// against look-ahead.
package data

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

var (
	// ErrNoData is returned when a source has no bars for an instrument.
	ErrNoData = errors.New("no data")

	// ErrInsufficientHistory is the sentinel behind InsufficientHistoryError.
	ErrInsufficientHistory = errors.New("insufficient history")
)

// InsufficientHistoryError reports a request for more bars than are
// available before "now".
type InsufficientHistoryError struct {
	Instrument market.Instrument
	Requested  int
	Available  int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: requested %d bars, %d available", e.Instrument, e.Requested, e.Available)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }

// Table is a time-indexed set of bars per instrument.
type Table map[market.Instrument]market.Bars

// PriceSource is the raw, unguarded bar store a Handler wraps.
type PriceSource interface {
	// Bars returns the bars with start <= Time <= end in ascending order.
	Bars(inst market.Instrument, freq market.Frequency, start, end time.Time) (market.Bars, error)
	// LastBar returns the latest valid bar with Time <= at.
	LastBar(inst market.Instrument, freq market.Frequency, at time.Time) (market.Bar, bool)
}

type seriesKey struct {
	inst market.Instrument
	freq market.Frequency
}

// MemorySource keeps preloaded bars in memory.
type MemorySource struct {
	series map[seriesKey]market.Bars
}

func NewMemorySource() *MemorySource {
	return &MemorySource{series: make(map[seriesKey]market.Bars)}
}

// Add merges bars into the series for inst at freq. Bars are sorted by time
// and the first bar wins when two share a timestamp. Daily bars are keyed
// to midnight UTC of their date.
func (s *MemorySource) Add(inst market.Instrument, freq market.Frequency, bars market.Bars) {
	k := seriesKey{inst, freq}
	merged := make(market.Bars, 0, len(s.series[k])+len(bars))
	merged = append(merged, s.series[k]...)
	for _, b := range bars {
		if !freq.Intraday() {
			b.Time = market.DateKey(b.Time)
		}
		merged = append(merged, b)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time.Before(merged[j].Time)
	})

	out := merged[:0]
	for _, b := range merged {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			continue
		}
		out = append(out, b)
	}
	s.series[k] = out
}

// Instruments lists the instruments that have bars at freq, sorted by ticker.
func (s *MemorySource) Instruments(freq market.Frequency) []market.Instrument {
	var out []market.Instrument
	for k := range s.series {
		if k.freq == freq {
			out = append(out, k.inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

func (s *MemorySource) Bars(inst market.Instrument, freq market.Frequency, start, end time.Time) (market.Bars, error) {
	bars, ok := s.series[seriesKey{inst, freq}]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", inst, freq, ErrNoData)
	}
	return bars.Between(start, end), nil
}

func (s *MemorySource) LastBar(inst market.Instrument, freq market.Frequency, at time.Time) (market.Bar, bool) {
	bars := s.series[seriesKey{inst, freq}]
	i := sort.Search(len(bars), func(i int) bool {
		return bars[i].Time.After(at)
	})
	for i--; i >= 0; i-- {
		if bars[i].Valid() {
			return bars[i], true
		}
	}
	return market.Bar{}, false
}
