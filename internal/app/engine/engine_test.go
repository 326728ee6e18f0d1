package engine

import (
	"context"
	"testing"
	"time"

	eventv1 "github.com/funbux/exchange/internal/domain/event/v1"
	orderbookv1 "github.com/funbux/exchange/internal/domain/orderbook/v1"
	"github.com/funbux/exchange/internal/usecase/ledger"
	"github.com/funbux/exchange/internal/usecase/orderbook"
	"github.com/funbux/exchange/pkg/config"
	"github.com/funbux/exchange/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type testExchange struct {
	engine *Engine
	book   *orderbook.Book
	ledger *ledger.Ledger
}

func newTestExchange(t *testing.T, defaultBalance string) *testExchange {
	t.Helper()

	book := orderbook.NewBook("FUN", "BUX")
	userLedger := ledger.NewLedger(dec(defaultBalance))

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)

	cfg := &config.Config{
		BaseTicker:  "FUN",
		QuoteTicker: "BUX",
	}

	e := NewEngine(book, userLedger, nil, log, cfg)
	require.NoError(t, e.Start(context.Background()))

	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		_ = e.Stop(stopCtx)
	})

	return &testExchange{
		engine: e,
		book:   book,
		ledger: userLedger,
	}
}

// drainEvents empties the event channel. Safe once the operations that
// produced the events have returned.
func (x *testExchange) drainEvents() []eventv1.Event {
	var events []eventv1.Event
	for {
		select {
		case event := <-x.engine.Events():
			events = append(events, event)
		default:
			return events
		}
	}
}

func (x *testExchange) balance(t *testing.T, userID, ticker string) decimal.Decimal {
	t.Helper()
	return x.ledger.GetBalance(context.Background(), userID, ticker)
}

func TestEngine_PlaceLimitOrder_Rests(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), dec("5"))

	require.True(t, ok)
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("99950")))
	assert.True(t, x.balance(t, "u1", "FUN").Equal(dec("100000")))

	snapshot := x.engine.OrderBook(ctx)
	require.NotNil(t, snapshot)
	require.Equal(t, 1, len(snapshot.Buy))
	assert.Equal(t, "5", snapshot.Buy[0].Price)
	assert.Equal(t, "10", snapshot.Buy[0].Amount)
	assert.Equal(t, "50", snapshot.Buy[0].Value)
	assert.Empty(t, snapshot.Sell)

	events := x.drainEvents()
	require.Equal(t, 1, len(events))
	assert.Equal(t, eventv1.TypePlace, events[0].Type)

	require.NoError(t, x.book.Validate())
}

func TestEngine_PlaceOrder_Malformed(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	assert.False(t, x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("0"), dec("5")))
	assert.False(t, x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("-3"), dec("5")))
	assert.False(t, x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), dec("-1")))
	assert.False(t, x.engine.PlaceOrder(ctx, "u1", orderbookv1.Side("HOLD"), dec("10"), dec("5")))
	assert.False(t, x.engine.PlaceOrder(ctx, "", orderbookv1.SideBuy, dec("10"), dec("5")))

	snapshot := x.engine.OrderBook(ctx)
	assert.Empty(t, snapshot.Buy)
	assert.Empty(t, snapshot.Sell)
	assert.Empty(t, x.drainEvents())
}

func TestEngine_PlaceOrder_InsufficientBalanceToRest(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "10")

	// BUY 10 @ 5 needs 50 BUX, only 10 available
	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), dec("5"))

	assert.False(t, ok)
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("10")))

	snapshot := x.engine.OrderBook(ctx)
	assert.Empty(t, snapshot.Buy)
	assert.Empty(t, x.drainEvents())
	require.NoError(t, x.book.Validate())
}

func TestEngine_FullCross_NoRemainder(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u2", orderbookv1.SideSell, dec("10"), dec("5")))
	x.drainEvents()

	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), dec("5"))
	require.True(t, ok)

	// Taker pays 50 quote and receives 10 base; maker the mirror image.
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("99950")))
	assert.True(t, x.balance(t, "u1", "FUN").Equal(dec("100010")))
	assert.True(t, x.balance(t, "u2", "FUN").Equal(dec("99990")))
	assert.True(t, x.balance(t, "u2", "BUX").Equal(dec("100050")))

	snapshot := x.engine.OrderBook(ctx)
	assert.Empty(t, snapshot.Buy)
	assert.Empty(t, snapshot.Sell)

	events := x.drainEvents()
	require.Equal(t, 2, len(events))
	assert.Equal(t, eventv1.TypeTrade, events[0].Type)
	assert.Equal(t, eventv1.TypeTrade, events[1].Type)

	maker := events[0].Payload.(eventv1.TradePayload)
	assert.Equal(t, "u2", maker.UserID)
	assert.Equal(t, orderbookv1.SideSell, maker.Side)
	assert.True(t, maker.Price.Equal(dec("5")))
	assert.True(t, maker.Amount.Equal(dec("10")))

	taker := events[1].Payload.(eventv1.TradePayload)
	assert.Equal(t, "u1", taker.UserID)
	assert.Equal(t, orderbookv1.SideBuy, taker.Side)
	assert.True(t, taker.Amount.Equal(dec("10")))

	require.NoError(t, x.book.Validate())
}

func TestEngine_PartialFill_RemainderRests(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u2", orderbookv1.SideSell, dec("5"), dec("5")))
	x.drainEvents()

	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), dec("5"))
	require.True(t, ok)

	// Full original notional is reserved at placement time even though
	// only 5 units matched: 25 spent on the fill, 25 reserved for the rest.
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("99950")))
	assert.True(t, x.balance(t, "u1", "FUN").Equal(dec("100005")))
	assert.True(t, x.balance(t, "u2", "FUN").Equal(dec("99995")))
	assert.True(t, x.balance(t, "u2", "BUX").Equal(dec("100025")))

	snapshot := x.engine.OrderBook(ctx)
	assert.Empty(t, snapshot.Sell)
	require.Equal(t, 1, len(snapshot.Buy))
	assert.Equal(t, "5", snapshot.Buy[0].Price)
	assert.Equal(t, "5", snapshot.Buy[0].Amount)

	events := x.drainEvents()
	require.Equal(t, 3, len(events))
	assert.Equal(t, eventv1.TypeTrade, events[0].Type)
	assert.Equal(t, eventv1.TypeTrade, events[1].Type)
	assert.Equal(t, eventv1.TypePlace, events[2].Type)

	rest := events[2].Payload.(eventv1.PlacePayload)
	assert.Equal(t, "u1", rest.UserID)
	assert.True(t, rest.Amount.Equal(dec("5")))

	require.NoError(t, x.book.Validate())
}

func TestEngine_PriceTimePriority(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u2", orderbookv1.SideSell, dec("10"), dec("5")))
	require.True(t, x.engine.PlaceOrder(ctx, "u3", orderbookv1.SideSell, dec("10"), dec("5")))
	x.drainEvents()

	require.True(t, x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("4"), dec("5")))

	// Only the earlier entry is touched.
	snapshot := x.engine.OrderBook(ctx)
	require.Equal(t, 1, len(snapshot.Sell))
	require.Equal(t, 2, len(snapshot.Sell[0].Entries))
	assert.Equal(t, "6", snapshot.Sell[0].Entries[0].Amount)
	assert.Equal(t, "10", snapshot.Sell[0].Entries[1].Amount)

	assert.True(t, x.balance(t, "u2", "BUX").Equal(dec("100020")))
	assert.True(t, x.balance(t, "u3", "BUX").Equal(dec("100000")))

	require.NoError(t, x.book.Validate())
}

func TestEngine_PartialRowWalk_ConsumesSuccessiveEntries(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u2", orderbookv1.SideSell, dec("3"), dec("5")))
	require.True(t, x.engine.PlaceOrder(ctx, "u3", orderbookv1.SideSell, dec("3"), dec("5")))
	require.True(t, x.engine.PlaceOrder(ctx, "u4", orderbookv1.SideSell, dec("3"), dec("5")))
	x.drainEvents()

	// 7 = 3 + 3 + 1: two whole entries and one partial, all in one row
	require.True(t, x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("7"), dec("5")))

	snapshot := x.engine.OrderBook(ctx)
	require.Equal(t, 1, len(snapshot.Sell))
	require.Equal(t, 1, len(snapshot.Sell[0].Entries))
	assert.Equal(t, "2", snapshot.Sell[0].Amount)
	assert.Equal(t, "2", snapshot.Sell[0].Entries[0].Amount)
	assert.Empty(t, snapshot.Buy)

	assert.True(t, x.balance(t, "u1", "FUN").Equal(dec("100007")))
	assert.True(t, x.balance(t, "u2", "BUX").Equal(dec("100015")))
	assert.True(t, x.balance(t, "u3", "BUX").Equal(dec("100015")))
	assert.True(t, x.balance(t, "u4", "BUX").Equal(dec("100005")))

	// Three fills, each emitted from both perspectives
	events := x.drainEvents()
	assert.Equal(t, 6, len(events))

	require.NoError(t, x.book.Validate())
}

func TestEngine_CancelOrder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), dec("5")))
	require.True(t, x.balance(t, "u1", "BUX").Equal(dec("99950")))
	x.drainEvents()

	snapshot := x.engine.OrderBook(ctx)
	require.Equal(t, 1, len(snapshot.Buy))
	require.Equal(t, 1, len(snapshot.Buy[0].Entries))
	orderID := snapshot.Buy[0].Entries[0].ID

	t.Run("Cancel refunds the reserved notional", func(t *testing.T) {
		ok := x.engine.CancelOrder(ctx, orderID)

		require.True(t, ok)
		assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("100000")))

		snapshot := x.engine.OrderBook(ctx)
		assert.Empty(t, snapshot.Buy)

		events := x.drainEvents()
		require.Equal(t, 1, len(events))
		assert.Equal(t, eventv1.TypeCancel, events[0].Type)

		payload := events[0].Payload.(eventv1.CancelPayload)
		assert.Equal(t, orderID, payload.ID)
		assert.Equal(t, "u1", payload.UserID)
		assert.True(t, payload.Amount.Equal(dec("10")))
		assert.True(t, payload.Value.Equal(dec("50")))
	})

	t.Run("Second cancel of the same id fails with no ledger change", func(t *testing.T) {
		ok := x.engine.CancelOrder(ctx, orderID)

		assert.False(t, ok)
		assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("100000")))
		assert.Empty(t, x.drainEvents())
	})

	require.NoError(t, x.book.Validate())
}

func TestEngine_MarketOrder_RemainderDropped(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u2", orderbookv1.SideSell, dec("5"), dec("5")))
	x.drainEvents()

	// Market order: price zero, matches 5 of 10, the rest is dropped
	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), decimal.Zero)
	require.True(t, ok)

	// Only the matched notional moved
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("99975")))
	assert.True(t, x.balance(t, "u1", "FUN").Equal(dec("100005")))

	snapshot := x.engine.OrderBook(ctx)
	assert.Empty(t, snapshot.Buy)
	assert.Empty(t, snapshot.Sell)

	require.NoError(t, x.book.Validate())
}

func TestEngine_MarketOrder_EmptyBook(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("10"), decimal.Zero)

	assert.True(t, ok)
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("100000")))
	assert.True(t, x.balance(t, "u1", "FUN").Equal(dec("100000")))
	assert.Empty(t, x.drainEvents())
}

func TestEngine_CrossingOrder_InsufficientBalance_NoMutation(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u2", orderbookv1.SideSell, dec("30000"), dec("5")))
	x.drainEvents()
	u2Fun := x.balance(t, "u2", "FUN")

	// Needs 150000 BUX to cover the full notional, only 100000 available
	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("30000"), dec("5"))

	assert.False(t, ok)
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("100000")))
	assert.True(t, x.balance(t, "u2", "FUN").Equal(u2Fun))

	snapshot := x.engine.OrderBook(ctx)
	require.Equal(t, 1, len(snapshot.Sell))
	assert.Equal(t, "30000", snapshot.Sell[0].Amount)
	assert.Empty(t, x.drainEvents())

	require.NoError(t, x.book.Validate())
}

func TestEngine_MatchingWalk_SpansRows(t *testing.T) {
	ctx := context.Background()
	x := newTestExchange(t, "100000")

	require.True(t, x.engine.PlaceOrder(ctx, "u2", orderbookv1.SideSell, dec("5"), dec("5")))
	require.True(t, x.engine.PlaceOrder(ctx, "u3", orderbookv1.SideSell, dec("5"), dec("6")))
	require.True(t, x.engine.PlaceOrder(ctx, "u4", orderbookv1.SideSell, dec("5"), dec("7")))
	x.drainEvents()

	// Limit at 6 sweeps the 5 and 6 rows but must not touch 7
	ok := x.engine.PlaceOrder(ctx, "u1", orderbookv1.SideBuy, dec("12"), dec("6"))
	require.True(t, ok)

	snapshot := x.engine.OrderBook(ctx)
	require.Equal(t, 1, len(snapshot.Sell))
	assert.Equal(t, "7", snapshot.Sell[0].Price)
	assert.Equal(t, "5", snapshot.Sell[0].Amount)

	// Remainder of 2 rests at the limit price
	require.Equal(t, 1, len(snapshot.Buy))
	assert.Equal(t, "6", snapshot.Buy[0].Price)
	assert.Equal(t, "2", snapshot.Buy[0].Amount)

	// Matched 5@5 + 5@6 = 55, rest reserves 2*6 = 12
	assert.True(t, x.balance(t, "u1", "BUX").Equal(dec("99933")))
	assert.True(t, x.balance(t, "u1", "FUN").Equal(dec("100010")))
	assert.True(t, x.balance(t, "u2", "BUX").Equal(dec("100025")))
	assert.True(t, x.balance(t, "u3", "BUX").Equal(dec("100030")))
	assert.True(t, x.balance(t, "u4", "BUX").Equal(dec("100000")))

	require.NoError(t, x.book.Validate())
}
