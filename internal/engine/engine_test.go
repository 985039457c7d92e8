package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"fenrir/internal/book"
	"fenrir/internal/common"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestEngine builds an engine with deterministic ids and clock.
func createTestEngine(opts ...Option) *Engine {
	var orders, trades int
	base := []Option{
		WithClock(func() time.Time { return epoch }),
		WithIDs(
			func() string { orders++; return fmt.Sprintf("order-%d", orders) },
			func() string { trades++; return fmt.Sprintf("trade-%d", trades) },
		),
	}
	return New(append(base, opts...)...)
}

func limit(side common.Side, price float64, qty uint64) *common.Order {
	return &common.Order{OrderType: common.LimitOrder, Side: side, LimitPrice: price, Quantity: qty}
}

func market(side common.Side, qty uint64) *common.Order {
	return &common.Order{OrderType: common.MarketOrder, Side: side, Quantity: qty}
}

func submitAll(t *testing.T, engine *Engine, orders ...*common.Order) []Report {
	t.Helper()
	reports := make([]Report, len(orders))
	for i, order := range orders {
		report, err := engine.Submit(order)
		require.NoError(t, err)
		reports[i] = report
	}
	return reports
}

type priceQty struct {
	price float64
	qty   uint64
}

func tradeLog(engine *Engine) []priceQty {
	var out []priceQty
	for _, trade := range engine.Trades() {
		out = append(out, priceQty{trade.Price, trade.Quantity})
	}
	return out
}

// --- Tests ------------------------------------------------------------------

func TestSubmit_LimitRests(t *testing.T) {
	engine := createTestEngine()
	buy := limit(common.Buy, 100, 10)
	sell := limit(common.Sell, 100, 10)

	reports := submitAll(t, engine, buy, sell)
	for _, report := range reports {
		assert.True(t, report.Rested)
		assert.Equal(t, Rested, report.Status())
		assert.Equal(t, uint64(10), report.Remaining)
		assert.Empty(t, report.Trades)
	}

	// Crossing limit orders do not match on arrival.
	assert.Empty(t, engine.Trades())

	got, ok := engine.Buys().PopFirst(100)
	require.True(t, ok)
	assert.Same(t, buy, got)

	got, ok = engine.Sells().PopFirst(100)
	require.True(t, ok)
	assert.Same(t, sell, got)
}

func TestSubmit_StampsOrder(t *testing.T) {
	engine := createTestEngine()
	order := limit(common.Sell, 5, 7)

	_, err := engine.Submit(order)
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.UUID)
	assert.Equal(t, epoch, order.ExchTimestamp)
	assert.Equal(t, epoch, order.Timestamp)
	assert.Equal(t, uint64(7), order.TotalQuantity)

	// A caller supplied UUID is kept.
	named := limit(common.Sell, 5, 1)
	named.UUID = "mine"
	_, err = engine.Submit(named)
	require.NoError(t, err)
	assert.Equal(t, "mine", named.UUID)
}

func TestSubmit_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		order *common.Order
		err   error
	}{
		{"nil order", nil, common.ErrNilOrder},
		{"zero quantity", limit(common.Buy, 10, 0), common.ErrInvalidQuantity},
		{"NaN price", limit(common.Buy, math.NaN(), 1), common.ErrInvalidPrice},
		{"infinite price", limit(common.Sell, math.Inf(1), 1), common.ErrInvalidPrice},
		{"unknown side", &common.Order{Side: 7, Quantity: 1, LimitPrice: 1}, common.ErrInvalidSide},
		{"unknown type", &common.Order{OrderType: 9, Quantity: 1}, common.ErrInvalidOrderType},
		{"market zero quantity", market(common.Sell, 0), common.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := createTestEngine()
			_, err := engine.Submit(tt.order)
			assert.ErrorIs(t, err, tt.err)
			assert.Zero(t, engine.Buys().Size())
			assert.Zero(t, engine.Sells().Size())
		})
	}
}

func TestMatch_SingleLevelMultipleOrders(t *testing.T) {
	engine := createTestEngine()
	submitAll(t, engine,
		limit(common.Sell, 100, 5),
		limit(common.Sell, 100, 5),
	)

	report, err := engine.Submit(market(common.Buy, 10))
	require.NoError(t, err)

	assert.Equal(t, []priceQty{{100, 10}}, tradeLog(engine))
	assert.Equal(t, Filled, report.Status())
	assert.Equal(t, uint64(10), report.Filled)
	assert.Zero(t, report.Remaining)
	assert.Zero(t, engine.Sells().Size())

	_, ok := engine.BestAsk()
	assert.False(t, ok)
}

func TestMatch_PartialFill(t *testing.T) {
	var logs bytes.Buffer
	engine := createTestEngine(WithLogger(zerolog.New(&logs).Level(zerolog.WarnLevel)))
	submitAll(t, engine, limit(common.Sell, 100, 5))

	report, err := engine.Submit(market(common.Buy, 10))
	require.NoError(t, err)

	assert.Equal(t, []priceQty{{100, 5}}, tradeLog(engine))
	assert.Equal(t, PartiallyFilled, report.Status())
	assert.Equal(t, uint64(5), report.Filled)
	assert.Equal(t, uint64(5), report.Remaining)
	assert.Zero(t, engine.Sells().Size())

	// The remainder is dropped, not queued on the buy side.
	assert.Zero(t, engine.Buys().Size())

	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "market order not fully filled", line["message"])
	assert.EqualValues(t, 5, line["dropped"])
}

func TestMatch_EmptyBook(t *testing.T) {
	engine := createTestEngine()

	report, err := engine.Submit(market(common.Sell, 3))
	require.NoError(t, err)
	assert.Equal(t, Unfilled, report.Status())
	assert.Equal(t, uint64(3), report.Remaining)
	assert.Empty(t, engine.Trades())
}

func TestMatch_WorkedExample(t *testing.T) {
	engine := createTestEngine()
	submitAll(t, engine,
		limit(common.Buy, 10, 100),
		limit(common.Sell, 20, 100),
		limit(common.Sell, 20, 200),
		market(common.Buy, 150),
		market(common.Buy, 200),
		market(common.Sell, 200),
	)

	want := []priceQty{
		{20, 150},
		{20, 150},
		{10, 100},
	}
	assert.Equal(t, want, tradeLog(engine))
	assert.Zero(t, engine.Buys().Size())
	assert.Zero(t, engine.Sells().Size())
}

func TestMatch_PricePriority(t *testing.T) {
	t.Run("Buy takes lowest asks first", func(t *testing.T) {
		engine := createTestEngine()
		submitAll(t, engine,
			limit(common.Sell, 103, 5),
			limit(common.Sell, 101, 5),
			limit(common.Sell, 102, 5),
		)

		report, err := engine.Submit(market(common.Buy, 12))
		require.NoError(t, err)

		assert.Equal(t, []priceQty{{101, 5}, {102, 5}, {103, 2}}, tradeLog(engine))
		assert.Len(t, report.Trades, 3)

		ask, ok := engine.BestAsk()
		require.True(t, ok)
		assert.Equal(t, 103.0, ask)
		assert.Equal(t, []book.FlatPriceLevel{{
			PriceLevel: 103,
			Orders: []common.Order{{
				UUID:          "order-1",
				OrderType:     common.LimitOrder,
				Side:          common.Sell,
				LimitPrice:    103,
				Quantity:      3,
				TotalQuantity: 5,
				Timestamp:     epoch,
				ExchTimestamp: epoch,
			}},
		}}, book.FlattenLevels(engine.Sells(), book.Ascending))
	})

	t.Run("Sell takes highest bids first", func(t *testing.T) {
		engine := createTestEngine()
		submitAll(t, engine,
			limit(common.Buy, 98, 10),
			limit(common.Buy, 99, 10),
			limit(common.Buy, 97, 10),
		)

		_, err := engine.Submit(market(common.Sell, 25))
		require.NoError(t, err)

		assert.Equal(t, []priceQty{{99, 10}, {98, 10}, {97, 5}}, tradeLog(engine))
		bid, ok := engine.BestBid()
		require.True(t, ok)
		assert.Equal(t, 97.0, bid)
	})
}

func TestMatch_TimePriorityAndFills(t *testing.T) {
	engine := createTestEngine()
	submitAll(t, engine,
		limit(common.Sell, 50, 4), // order-1
		limit(common.Sell, 50, 4), // order-2
		limit(common.Sell, 50, 4), // order-3
		limit(common.Sell, 51, 4), // order-4
	)

	report, err := engine.Submit(market(common.Buy, 14)) // order-5
	require.NoError(t, err)
	require.Len(t, report.Trades, 2)

	first := report.Trades[0]
	assert.Equal(t, "trade-1", first.ID)
	assert.Equal(t, "order-5", first.TakerUUID)
	assert.Equal(t, common.Buy, first.Side)
	assert.Equal(t, 50.0, first.Price)
	assert.Equal(t, uint64(12), first.Quantity)
	assert.Equal(t, epoch, first.Timestamp)
	assert.Equal(t, []common.Fill{
		{MakerUUID: "order-1", Quantity: 4},
		{MakerUUID: "order-2", Quantity: 4},
		{MakerUUID: "order-3", Quantity: 4},
	}, first.Fills)

	second := report.Trades[1]
	assert.Equal(t, "trade-2", second.ID)
	assert.Equal(t, 51.0, second.Price)
	assert.Equal(t, []common.Fill{{MakerUUID: "order-4", Quantity: 2}}, second.Fills)

	// The market order carries its sentinel price.
	assert.True(t, math.IsInf(report.Order.LimitPrice, 1))
}

func TestMatch_Direct(t *testing.T) {
	engine := createTestEngine()
	submitAll(t, engine, limit(common.Buy, 10, 3), limit(common.Buy, 9, 3))

	order := &common.Order{UUID: "direct", Side: common.Sell, OrderType: common.MarketOrder, Quantity: 4}
	assert.Zero(t, engine.Match(order))
	assert.Zero(t, order.Quantity)
	assert.Equal(t, []priceQty{{10, 3}, {9, 1}}, tradeLog(engine))
}

func TestTrades_IsACopy(t *testing.T) {
	engine := createTestEngine()
	submitAll(t, engine, limit(common.Sell, 1, 1), market(common.Buy, 1))

	trades := engine.Trades()
	trades[0].Price = 999
	assert.Equal(t, 1.0, engine.Trades()[0].Price)
}

func TestEngine_BTreeBooks(t *testing.T) {
	engine := createTestEngine(WithBooks(book.NewBTreeBook(), book.NewBTreeBook()))
	submitAll(t, engine,
		limit(common.Buy, 10, 100),
		limit(common.Sell, 20, 100),
		limit(common.Sell, 20, 200),
		market(common.Buy, 150),
		market(common.Buy, 200),
		market(common.Sell, 200),
	)
	assert.Equal(t, []priceQty{{20, 150}, {20, 150}, {10, 100}}, tradeLog(engine))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "RESTED", Rested.String())
	assert.Equal(t, "FILLED", Filled.String())
	assert.Equal(t, "PARTIALLY_FILLED", PartiallyFilled.String())
	assert.Equal(t, "UNFILLED", Unfilled.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestDefaultIDs(t *testing.T) {
	engine := New()
	submitAll(t, engine, limit(common.Sell, 1, 1))
	report, err := engine.Submit(market(common.Buy, 1))
	require.NoError(t, err)

	assert.Len(t, report.Order.UUID, 36)
	require.Len(t, report.Trades, 1)
	assert.Len(t, report.Trades[0].ID, 26)
}
