package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettableTimer(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	tm := NewSettableTimer(t0)
	assert.Equal(t, t0, tm.Now())

	t1 := t0.Add(time.Hour)
	tm.Set(t1)
	assert.Equal(t, t1, tm.Now())

	var _ Timer = tm
}
