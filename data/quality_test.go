package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/market"
)

func utcCalendar(t *testing.T, from, to string) market.Calendar {
	t.Helper()
	cal, err := market.NewCalendar(from, to, "UTC", nil)
	require.NoError(t, err)
	return cal
}

func TestAggregateIntraday(t *testing.T) {
	t.Parallel()

	cal := utcCalendar(t, "09:30", "16:00")
	bars := market.Bars{
		{Time: at(2, 8, 0), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}, // pre-market
		{Time: at(2, 9, 30), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Time: at(2, 10, 0), Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 200},
		{Time: at(2, 10, 30), Open: 11, High: 11.5, Low: 10.8, Close: 11.2, Volume: 50},
		{Time: at(2, 11, 0), Open: math.NaN(), High: 13, Low: 10, Close: 12, Volume: 50},
	}

	got, err := Aggregate(bars, market.Minute30, market.Hour1, cal, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, market.Bar{Time: at(2, 9, 30), Open: 10, High: 12, Low: 9, Close: 11, Volume: 300}, got[0])
	assert.Equal(t, at(2, 10, 30), got[1].Time)
	assert.Equal(t, 11.2, got[1].Close, "invalid bar is skipped")

	got, err = Aggregate(bars, market.Minute30, market.Hour1, cal, 2)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAggregateDaily(t *testing.T) {
	t.Parallel()

	cal := utcCalendar(t, "09:00", "12:00")
	bars := market.Bars{
		{Time: at(2, 9, 0), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10},
		{Time: at(2, 11, 0), Open: 100.5, High: 103, Low: 100, Close: 102, Volume: 20},
		{Time: at(3, 9, 0), Open: 102, High: 102, Low: 98, Close: 99, Volume: 5},
	}
	got, err := Aggregate(bars, market.Hour1, market.Daily, cal, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, market.Bar{Time: day(2), Open: 100, High: 103, Low: 99, Close: 102, Volume: 30}, got[0])
	assert.Equal(t, day(3), got[1].Time)

	same, err := Aggregate(bars, market.Hour1, market.Hour1, cal, 1)
	require.NoError(t, err)
	assert.Equal(t, bars, same)

	_, err = Aggregate(bars, market.Daily, market.Hour1, cal, 1)
	assert.Error(t, err)
	_, err = Aggregate(bars, market.Hour4, market.Hour1, cal, 1)
	assert.Error(t, err)
}

func TestGapReportDaily(t *testing.T) {
	t.Parallel()

	bar := func(d int) market.Bar {
		return market.Bar{Time: day(d), Open: 1, High: 1, Low: 1, Close: 1}
	}
	// Jan 4 and Jan 8 are missing, Jan 6-7 is a weekend
	s := GapReport(market.Bars{bar(2), bar(3), bar(5), bar(9)}, market.Daily, market.DefaultCalendar())

	assert.Equal(t, 6, s.Expected)
	assert.Equal(t, 4, s.Present)
	assert.Equal(t, 2, s.Missing)
	assert.Equal(t, []Gap{
		{Start: day(4), Len: 1, WholeSession: true},
		{Start: day(8), Len: 1, WholeSession: true},
	}, s.Gaps)
	assert.Equal(t, 1, s.Longest)
}

func TestGapReportIntraday(t *testing.T) {
	t.Parallel()

	cal := utcCalendar(t, "09:00", "12:00")
	bar := func(d, h int) market.Bar {
		return market.Bar{Time: at(d, h, 0), Open: 1, High: 1, Low: 1, Close: 1}
	}
	s := GapReport(market.Bars{bar(2, 9), bar(2, 10), bar(2, 11), bar(3, 9), bar(3, 11)}, market.Hour1, cal)

	assert.Equal(t, 6, s.Expected)
	assert.Equal(t, 5, s.Present)
	require.Len(t, s.Gaps, 1)
	assert.Equal(t, Gap{Start: at(3, 10, 0), Len: 1}, s.Gaps[0])

	assert.Equal(t, GapStats{}, GapReport(nil, market.Hour1, cal))
}

func TestGapReportIgnoresTimezoneForDailyKeys(t *testing.T) {
	t.Parallel()

	cal, err := market.NewCalendar("09:30", "16:00", "America/New_York", nil)
	require.NoError(t, err)
	bars := market.Bars{
		{Time: day(2), Open: 1, High: 1, Low: 1, Close: 1},
		{Time: day(3), Open: 1, High: 1, Low: 1, Close: 1},
	}
	s := GapReport(bars, market.Daily, cal)
	assert.Equal(t, 2, s.Expected)
	assert.Zero(t, s.Missing)
}
