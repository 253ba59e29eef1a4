package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradesim/market"
)

// SimpleMA is a streaming Simple Moving Average of closes kept in a ring
// of the last period values.
type SimpleMA struct {
	period int
	ring   []float64
	next   int
	filled int
	sum    float64
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	if period < 0 {
		period = 0
	}
	return &SimpleMA{period: period, ring: make([]float64, period)}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("MA(%d)", m.period) }

func (m *SimpleMA) Warmup() int { return m.period }

func (m *SimpleMA) Reset() {
	clear(m.ring)
	m.next, m.filled, m.sum = 0, 0, 0
}

func (m *SimpleMA) Update(b market.Bar) {
	if m.period == 0 {
		return
	}
	m.sum += b.Close - m.ring[m.next]
	m.ring[m.next] = b.Close
	m.next = (m.next + 1) % m.period
	if m.filled < m.period {
		m.filled++
	}
}

func (m *SimpleMA) Ready() bool { return m.period > 0 && m.filled == m.period }

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(m.period)
}

// ExponentialMA is a streaming Exponential Moving Average of closes. The
// first value is the simple average of the first period closes; after that
// each close moves it by alpha = 2/(period+1).
type ExponentialMA struct {
	period int
	alpha  float64
	value  float64
	seen   int
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{period: period, alpha: 2.0 / float64(period+1)}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *ExponentialMA) Warmup() int { return e.period }

func (e *ExponentialMA) Reset() { e.value, e.seen = 0, 0 }

func (e *ExponentialMA) Update(b market.Bar) {
	if e.period <= 0 {
		return
	}
	e.seen++
	switch {
	case e.seen < e.period:
		e.value += b.Close
	case e.seen == e.period:
		e.value = (e.value + b.Close) / float64(e.period)
	default:
		e.value += e.alpha * (b.Close - e.value)
	}
}

func (e *ExponentialMA) Ready() bool { return e.period > 0 && e.seen >= e.period }

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}
