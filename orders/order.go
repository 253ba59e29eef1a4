// Package orders defines what a strategy submits: orders, their execution
// style and time in force.
package orders

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/tradesim/market"
)

// TimeInForce controls how long an unfilled order stays live.
type TimeInForce int

const (
	DAY TimeInForce = iota
	GTC
	OPG
)

var tifNames = map[TimeInForce]string{DAY: "DAY", GTC: "GTC", OPG: "OPG"}

func (t TimeInForce) String() string {
	if s, ok := tifNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TimeInForce(%d)", int(t))
}

// TimesInForce lists every value in grouping order.
var TimesInForce = []TimeInForce{DAY, GTC, OPG}

// StyleKind is the tag of an ExecutionStyle.
type StyleKind int

const (
	Market StyleKind = iota
	Stop
	MarketOnOpen
	MarketOnClose
)

var styleNames = map[StyleKind]string{
	Market:        "market",
	Stop:          "stop",
	MarketOnOpen:  "market-on-open",
	MarketOnClose: "market-on-close",
}

func (k StyleKind) String() string {
	if s, ok := styleNames[k]; ok {
		return s
	}
	return fmt.Sprintf("StyleKind(%d)", int(k))
}

// ExecutionStyle decides when and at which reference price an order may
// fill. StopPrice is only meaningful for Stop.
type ExecutionStyle struct {
	Kind      StyleKind
	StopPrice float64
}

func MarketStyle() ExecutionStyle        { return ExecutionStyle{Kind: Market} }
func StopStyle(p float64) ExecutionStyle { return ExecutionStyle{Kind: Stop, StopPrice: p} }
func MarketOnOpenStyle() ExecutionStyle  { return ExecutionStyle{Kind: MarketOnOpen} }
func MarketOnCloseStyle() ExecutionStyle { return ExecutionStyle{Kind: MarketOnClose} }

func (s ExecutionStyle) String() string {
	if s.Kind == Stop {
		return fmt.Sprintf("stop(%g)", s.StopPrice)
	}
	return s.Kind.String()
}

// Status is the lifecycle state of an order.
type Status int

const (
	Pending Status = iota
	Awaiting
	Filled
	Expired
	Cancelled
)

var statusNames = map[Status]string{
	Pending:   "pending",
	Awaiting:  "awaiting",
	Filled:    "filled",
	Expired:   "expired",
	Cancelled: "cancelled",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether the order can no longer change.
func (s Status) Terminal() bool {
	return s == Filled || s == Expired || s == Cancelled
}

// ErrInvalidOrder is the sentinel behind InvalidOrderError.
var ErrInvalidOrder = errors.New("invalid order")

// InvalidOrderError rejects an order at submission or acceptance.
type InvalidOrderError struct {
	ID     int64
	Reason string
}

func (e *InvalidOrderError) Error() string {
	if e.ID == 0 {
		return "invalid order: " + e.Reason
	}
	return fmt.Sprintf("invalid order %d: %s", e.ID, e.Reason)
}

func (e *InvalidOrderError) Unwrap() error { return ErrInvalidOrder }

// Order is an instruction to trade a signed quantity: positive buys,
// negative sells. ID is zero until the order is routed.
type Order struct {
	ID          int64
	Instrument  market.Instrument
	Quantity    float64
	Style       ExecutionStyle
	TimeInForce TimeInForce
	Status      Status
	Filled      float64
}

// New returns a pending order.
func New(inst market.Instrument, qty float64, style ExecutionStyle, tif TimeInForce) *Order {
	return &Order{
		Instrument:  inst,
		Quantity:    qty,
		Style:       style,
		TimeInForce: tif,
	}
}

// Remaining is the signed quantity still to fill.
func (o *Order) Remaining() float64 {
	return o.Quantity - o.Filled
}

// IsBuy reports whether the order increases the position.
func (o *Order) IsBuy() bool { return o.Quantity > 0 }

func (o *Order) String() string {
	return fmt.Sprintf("order %d %s %+g %s %s", o.ID, o.Instrument, o.Quantity, o.Style, o.TimeInForce)
}

// Validate checks the parts of an order that do not depend on the market.
func (o *Order) Validate() error {
	invalid := func(format string, args ...any) error {
		return &InvalidOrderError{ID: o.ID, Reason: fmt.Sprintf(format, args...)}
	}

	if o.Instrument.Ticker == "" {
		return invalid("missing instrument")
	}
	if o.Quantity == 0 || math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) {
		return invalid("quantity %v", o.Quantity)
	}
	if _, ok := tifNames[o.TimeInForce]; !ok {
		return invalid("unknown time in force %d", int(o.TimeInForce))
	}

	switch o.Style.Kind {
	case Market:
	case Stop:
		if !(o.Style.StopPrice > 0) || math.IsInf(o.Style.StopPrice, 0) {
			return invalid("stop price %v", o.Style.StopPrice)
		}
		fallthrough
	case MarketOnOpen, MarketOnClose:
		if o.TimeInForce == OPG {
			return invalid("%s is not allowed for %s orders", o.TimeInForce, o.Style.Kind)
		}
	default:
		return invalid("unknown execution style %d", int(o.Style.Kind))
	}
	return nil
}
