package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestBarsBetween(t *testing.T) {
	t.Parallel()

	bs := Bars{
		{Time: day(2), Close: 1},
		{Time: day(3), Close: 2},
		{Time: day(4), Close: 3},
		{Time: day(5), Close: 4},
	}

	assert.Equal(t, []float64{2, 3}, bs.Between(day(3), day(4)).Closes())
	assert.Equal(t, []float64{1, 2, 3, 4}, bs.Between(day(1), day(9)).Closes())
	assert.Empty(t, bs.Between(day(6), day(9)))
	assert.Empty(t, bs.Between(day(4), day(3)))

	b, ok := bs.At(day(4))
	assert.True(t, ok)
	assert.Equal(t, 3.0, b.Close)

	_, ok = bs.At(day(6))
	assert.False(t, ok)

	last, ok := bs.Last()
	assert.True(t, ok)
	assert.Equal(t, 4.0, last.Close)
}

func TestBarsBetweenDoesNotAliasTail(t *testing.T) {
	t.Parallel()

	bs := Bars{
		{Time: day(2), Close: 1},
		{Time: day(3), Close: 2},
		{Time: day(4), Close: 3},
	}

	head := bs.Between(day(2), day(2))
	assert.Equal(t, 1, cap(head))

	_ = append(head, Bar{Time: day(9), Close: 99})
	assert.Equal(t, []float64{1, 2, 3}, bs.Closes())
}

func TestBarField(t *testing.T) {
	t.Parallel()

	b := Bar{Open: 1, High: 4, Low: 0.5, Close: 2, Volume: 100}
	assert.Equal(t, 1.0, b.Field(Open))
	assert.Equal(t, 4.0, b.Field(High))
	assert.Equal(t, 0.5, b.Field(Low))
	assert.Equal(t, 2.0, b.Field(Close))
	assert.Equal(t, 100.0, b.Field(Volume))
	assert.True(t, math.IsNaN(b.Field(PriceField(42))))
}

func TestBarValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Bar{Open: 1, High: 1, Low: 1, Close: 1}.Valid())
	assert.False(t, Bar{Open: math.NaN(), High: 1, Low: 1, Close: 1}.Valid())
	assert.False(t, Bar{}.Valid())
}

func TestDateKey(t *testing.T) {
	t.Parallel()

	est := time.FixedZone("EST", -5*60*60)
	got := DateKey(time.Date(2024, 1, 2, 23, 0, 0, 0, est))
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)
}
