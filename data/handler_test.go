package data

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/clock"
	"github.com/rustyeddy/tradesim/market"
)

var spy = market.NewInstrument("SPY", market.Stock)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func at(d, h, m int) time.Time {
	return time.Date(2024, 1, d, h, m, 0, 0, time.UTC)
}

// dailySource holds SPY bars for Jan 2-5 2024 (Tue-Fri) and Jan 8.
func dailySource() *MemorySource {
	src := NewMemorySource()
	src.Add(spy, market.Daily, market.Bars{
		{Time: day(2), Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000},
		{Time: day(3), Open: 101, High: 103, Low: 100, Close: 102, Volume: 1100},
		{Time: day(4), Open: 102, High: 104, Low: 101, Close: 103, Volume: 1200},
		{Time: day(5), Open: 103, High: 105, Low: 102, Close: 104, Volume: 1300},
		{Time: day(8), Open: 104, High: 106, Low: 103, Close: 105, Volume: 1400},
	})
	return src
}

func dailyHandler(now time.Time) (*Handler, *clock.SettableTimer) {
	tm := clock.NewSettableTimer(now)
	return NewHandler(dailySource(), tm, market.DefaultCalendar(), market.Daily), tm
}

func TestGetPriceNeverReturnsUnelapsedBars(t *testing.T) {
	t.Parallel()

	h, tm := dailyHandler(at(2, 0, 0))
	cal := market.DefaultCalendar()
	end := day(9)

	for now := at(2, 0, 0); now.Before(end); now = now.Add(30 * time.Minute) {
		tm.Set(now)
		tbl, err := h.GetPrice([]market.Instrument{spy}, day(1), end, market.Daily)
		require.NoError(t, err)

		last, ok := cal.LatestClose(now)
		for _, b := range tbl[spy] {
			require.True(t, ok, "bar returned before any close at %s", now)
			assert.False(t, cal.CloseOn(b.Time).After(last), "bar %s visible at %s", b.Time, now)
		}
	}
}

func TestGetPriceClampsToLatestClose(t *testing.T) {
	t.Parallel()

	h, tm := dailyHandler(at(4, 15, 0))
	tbl, err := h.GetPrice([]market.Instrument{spy}, day(1), day(31), market.Daily)
	require.NoError(t, err)
	require.Len(t, tbl[spy], 2)
	assert.Equal(t, day(3), tbl[spy][1].Time)

	tm.Set(at(4, 20, 0))
	tbl, err = h.GetPrice([]market.Instrument{spy}, day(1), day(31), market.Daily)
	require.NoError(t, err)
	require.Len(t, tbl[spy], 3)

	missing := market.NewInstrument("QQQ", market.Stock)
	tbl, err = h.GetPrice([]market.Instrument{missing}, day(1), day(31), market.Daily)
	require.NoError(t, err)
	assert.NotContains(t, tbl, missing)
}

func TestHistoricalBars(t *testing.T) {
	t.Parallel()

	h, _ := dailyHandler(at(5, 9, 0))
	bars, err := h.HistoricalBars(spy, 2, market.Daily)
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 103}, bars.Closes())

	_, err = h.HistoricalBars(spy, 4, market.Daily)
	var ih *InsufficientHistoryError
	require.ErrorAs(t, err, &ih)
	assert.Equal(t, 4, ih.Requested)
	assert.Equal(t, 3, ih.Available)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
}

func TestCurrentPrice(t *testing.T) {
	t.Parallel()

	h, tm := dailyHandler(at(3, 13, 30))
	p, ok := h.CurrentPrice(spy)
	assert.True(t, ok)
	assert.Equal(t, 101.0, p)

	tm.Set(at(3, 20, 0))
	p, ok = h.CurrentPrice(spy)
	assert.True(t, ok)
	assert.Equal(t, 102.0, p)

	tm.Set(at(3, 15, 0))
	_, ok = h.CurrentPrice(spy)
	assert.False(t, ok)
}

func TestLastAvailablePrice(t *testing.T) {
	t.Parallel()

	h, tm := dailyHandler(at(3, 9, 0))
	p, ok := h.LastAvailablePrice(spy)
	assert.True(t, ok)
	assert.Equal(t, 101.0, p, "previous close before the open")

	tm.Set(at(3, 15, 0))
	p, ok = h.LastAvailablePrice(spy)
	assert.True(t, ok)
	assert.Equal(t, 101.0, p, "today's open during the session")

	// Saturday: forward filled from Friday's close.
	tm.Set(at(6, 12, 0))
	p, ok = h.LastAvailablePrice(spy)
	assert.True(t, ok)
	assert.Equal(t, 104.0, p)

	tm.Set(at(30, 12, 0))
	_, ok = h.LastAvailablePrice(spy)
	assert.False(t, ok, "stale beyond MaxStaleness")

	tm.Set(at(2, 9, 0))
	_, ok = h.LastAvailablePrice(spy)
	assert.False(t, ok, "nothing before the first close")
}

func TestLastAvailablePriceSkipsInvalidBars(t *testing.T) {
	t.Parallel()

	src := dailySource()
	src.Add(market.NewInstrument("DEAD", market.Stock), market.Daily, market.Bars{
		{Time: day(2), Open: 10, High: 10, Low: 10, Close: 10},
		{Time: day(3), Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: math.NaN()},
	})
	h := NewHandler(src, clock.NewSettableTimer(at(4, 9, 0)), market.DefaultCalendar(), market.Daily)

	p, ok := h.LastAvailablePrice(market.NewInstrument("DEAD", market.Stock))
	assert.True(t, ok)
	assert.Equal(t, 10.0, p)
}

func TestElapsedBarAndVolume(t *testing.T) {
	t.Parallel()

	h, tm := dailyHandler(at(4, 20, 0))
	b, ok := h.ElapsedBar(spy)
	require.True(t, ok)
	assert.Equal(t, day(4), b.Time)

	tm.Set(at(4, 21, 0))
	_, ok = h.ElapsedBar(spy)
	assert.False(t, ok)

	tm.Set(at(5, 13, 30))
	v, ok := h.LatestVolume(spy)
	assert.True(t, ok)
	assert.Equal(t, 1200.0, v)
}

func TestIntradayAvailability(t *testing.T) {
	t.Parallel()

	src := NewMemorySource()
	src.Add(spy, market.Minute30, market.Bars{
		{Time: at(2, 13, 30), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10},
		{Time: at(2, 14, 0), Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 20},
		{Time: at(2, 19, 30), Open: 103, High: 104, Low: 102, Close: 103.5, Volume: 30},
	})
	tm := clock.NewSettableTimer(at(2, 14, 0))
	h := NewHandler(src, tm, market.DefaultCalendar(), market.Minute30)

	p, ok := h.CurrentPrice(spy)
	assert.True(t, ok)
	assert.Equal(t, 100.5, p)

	b, ok := h.ElapsedBar(spy)
	require.True(t, ok)
	assert.Equal(t, at(2, 13, 30), b.Time)

	tbl, err := h.GetPrice([]market.Instrument{spy}, at(2, 0, 0), at(2, 23, 0), market.Minute30)
	require.NoError(t, err)
	assert.Len(t, tbl[spy], 1)

	tm.Set(at(2, 20, 0))
	p, ok = h.CurrentPrice(spy)
	assert.True(t, ok)
	assert.Equal(t, 103.5, p)
}

// hourlySession holds SPY hourly bars for Jan 2 on the default calendar.
// The session is 6.5h long, so the 19:30 bar only lasts until the close.
func hourlySession() *MemorySource {
	src := NewMemorySource()
	var bars market.Bars
	for i := 0; i < 7; i++ {
		p := 100 + float64(i)
		bars = append(bars, market.Bar{
			Time: at(2, 13, 30).Add(time.Duration(i) * time.Hour),
			Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 100,
		})
	}
	src.Add(spy, market.Hour1, bars)
	return src
}

func TestIntradayShortLastBar(t *testing.T) {
	t.Parallel()

	tm := clock.NewSettableTimer(at(2, 19, 30))
	h := NewHandler(hourlySession(), tm, market.DefaultCalendar(), market.Hour1)

	b, ok := h.ElapsedBar(spy)
	require.True(t, ok)
	assert.Equal(t, at(2, 18, 30), b.Time)

	tm.Set(at(2, 20, 0))
	b, ok = h.ElapsedBar(spy)
	require.True(t, ok)
	assert.Equal(t, at(2, 19, 30), b.Time)

	p, ok := h.CurrentPrice(spy)
	require.True(t, ok)
	assert.Equal(t, 106.5, p)

	latest, ok := h.LatestAvailable(market.Hour1)
	require.True(t, ok)
	assert.Equal(t, at(2, 19, 30), latest)

	tbl, err := h.GetPrice([]market.Instrument{spy}, day(1), day(9), market.Hour1)
	require.NoError(t, err)
	assert.Len(t, tbl[spy], 7)

	// After the close the short bar stays the newest one.
	tm.Set(at(2, 20, 15))
	latest, _ = h.LatestAvailable(market.Hour1)
	assert.Equal(t, at(2, 19, 30), latest)

	tm.Set(at(2, 19, 59))
	tbl, err = h.GetPrice([]market.Instrument{spy}, day(1), day(9), market.Hour1)
	require.NoError(t, err)
	assert.Len(t, tbl[spy], 6, "the last bar is still forming")
}

func TestHistoricalBarsCannotReachUnelapsedBars(t *testing.T) {
	t.Parallel()

	h, tm := dailyHandler(at(2, 21, 0))
	bars, err := h.HistoricalBars(spy, 1, market.Daily)
	require.NoError(t, err)
	assert.Equal(t, len(bars), cap(bars))

	_ = append(bars, market.Bar{Time: day(3), Open: 1, High: 1, Low: 1, Close: 1})

	tm.Set(at(3, 20, 0))
	b, ok := h.ElapsedBar(spy)
	require.True(t, ok)
	assert.Equal(t, 101.0, b.Open)
	assert.Equal(t, 102.0, b.Close)
}
