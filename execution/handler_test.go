package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/events"
	"github.com/rustyeddy/tradesim/orders"
)

func TestPlaceOrdersGroupsIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOpts{})
	ords := []*orders.Order{
		orders.New(spy, 1, orders.MarketOnCloseStyle(), orders.DAY),
		orders.New(spy, 1, orders.MarketStyle(), orders.GTC),
		orders.New(spy, 1, orders.MarketStyle(), orders.DAY),
		orders.New(spy, 1, orders.MarketOnOpenStyle(), orders.GTC),
		orders.New(spy, 1, orders.MarketStyle(), orders.OPG),
	}
	ids := f.place(t, ords...)

	// Market DAY, GTC, OPG first, then MOO, then MOC.
	assert.Equal(t, []int64{5, 2, 1, 4, 3}, ids)
	for i, o := range ords {
		assert.Equal(t, ids[i], o.ID)
	}

	more := f.place(t, orders.New(spy, 1, orders.MarketStyle(), orders.DAY))
	assert.Equal(t, []int64{6}, more)
}

func TestPlaceOrdersRejectsInvalidBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOpts{})
	ok := orders.New(spy, 1, orders.MarketStyle(), orders.DAY)
	_, err := f.handler.PlaceOrders([]*orders.Order{ok, orders.New(spy, 0, orders.MarketStyle(), orders.DAY)})
	assert.ErrorIs(t, err, orders.ErrInvalidOrder)
	assert.Zero(t, ok.ID)
	assert.Empty(t, f.handler.OpenOrders())

	h := NewHandler(f.timer, f.state, 0, nil)
	_, err = h.PlaceOrders([]*orders.Order{ok})
	assert.ErrorIs(t, err, orders.ErrInvalidOrder, "no executor registered")
}

func TestCancelOrderTwice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOpts{})
	ids := f.place(t,
		orders.New(spy, 1, orders.MarketStyle(), orders.DAY),
		orders.New(spy, 1, orders.MarketOnCloseStyle(), orders.GTC),
	)
	require.Len(t, f.handler.OpenOrders(), 2)

	require.NoError(t, f.handler.CancelOrder(ids[1]))
	open := f.handler.OpenOrders()
	require.Len(t, open, 1)
	assert.Equal(t, ids[0], open[0].ID)

	err := f.handler.CancelOrder(ids[1])
	var ce *OrderCancellingError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ids[1], ce.ID)
	assert.ErrorIs(t, err, ErrOrderCancelling)
	assert.Len(t, f.handler.OpenOrders(), 1)
}

func TestCancelledOrderNeverFills(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOpts{})
	o := orders.New(spy, 1, orders.MarketStyle(), orders.DAY)
	ids := f.place(t, o)
	require.NoError(t, f.handler.CancelOrder(ids[0]))
	assert.Equal(t, orders.Cancelled, o.Status)

	f.fire(t, events.MarketOpen, at(2, 13, 30))
	assert.Empty(t, f.pf.Transactions())
}

func TestCancelAllOpenOrders(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOpts{})
	f.place(t,
		orders.New(spy, 1, orders.MarketStyle(), orders.DAY),
		orders.New(spy, 1, orders.MarketOnOpenStyle(), orders.DAY),
		orders.New(spy, 1, orders.MarketOnCloseStyle(), orders.DAY),
	)
	assert.Equal(t, 3, f.handler.CancelAllOpenOrders())
	assert.Empty(t, f.handler.OpenOrders())
	assert.Zero(t, f.handler.CancelAllOpenOrders())
}

func TestDelayedAcceptance(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOpts{delay: time.Minute})
	o := orders.New(spy, 1, orders.MarketStyle(), orders.DAY)
	ids := f.place(t, o)

	assert.Equal(t, orders.Pending, o.Status)
	assert.Empty(t, f.handler.OpenOrders())
	assert.ErrorIs(t, f.handler.CancelOrder(ids[0]), ErrOrderCancelling, "pending orders are not cancellable")

	due, ok := f.state.NextScheduled(f.timer.Now())
	require.True(t, ok)
	assert.Equal(t, at(2, 9, 1), due)

	f.timer.Set(due)
	require.NoError(t, f.state.OnEvent(events.TimeEvent{Type: events.Scheduled, At: due}))
	assert.Equal(t, orders.Awaiting, o.Status)
	assert.Len(t, f.handler.OpenOrders(), 1)
}
