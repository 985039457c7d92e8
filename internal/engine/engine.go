package engine

import (
	"fmt"
	"slices"
	"time"

	"fenrir/internal/book"
	"fenrir/internal/common"

	"github.com/rs/zerolog"
)

// This is the main matching engine. It owns one book per side and the log
// of every trade it has executed. It is single threaded: see Sequencer for
// sharing one between goroutines.
type Engine struct {
	buys   book.Book
	sells  book.Book
	trades []common.Trade

	logger     zerolog.Logger
	now        func() time.Time
	newOrderID func() string
	newTradeID func() string
}

func New(opts ...Option) *Engine {
	engine := &Engine{}
	defaultOptions(engine)
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Submit validates and stamps an incoming order, then either rests it
// (limit) or matches it against the opposite book (market).
//
// Limit orders never match on arrival, even when they cross the opposite
// side; only market orders take liquidity. Whatever a market order cannot
// fill is dropped and reported in Report.Remaining.
func (engine *Engine) Submit(order *common.Order) (Report, error) {
	if err := order.Validate(); err != nil {
		return Report{}, fmt.Errorf("submit order: %w", err)
	}

	if order.UUID == "" {
		order.UUID = engine.newOrderID()
	}
	order.ExchTimestamp = engine.now()
	if order.Timestamp.IsZero() {
		order.Timestamp = order.ExchTimestamp
	}
	if order.TotalQuantity == 0 {
		order.TotalQuantity = order.Quantity
	}

	switch order.OrderType {
	case common.LimitOrder:
		return engine.rest(order)
	default:
		return engine.take(order), nil
	}
}

func (engine *Engine) rest(order *common.Order) (Report, error) {
	if err := engine.Book(order.Side).Add(order); err != nil {
		return Report{}, fmt.Errorf("rest order %s: %w", order.UUID, err)
	}

	engine.logger.Debug().
		Str("uuid", order.UUID).
		Stringer("side", order.Side).
		Float64("price", order.LimitPrice).
		Uint64("qty", order.Quantity).
		Msg("order resting")

	return Report{Order: order, Remaining: order.Quantity, Rested: true}, nil
}

func (engine *Engine) take(order *common.Order) Report {
	order.LimitPrice = common.MarketPrice(order.Side)
	start := len(engine.trades)
	requested := order.Quantity

	remaining := engine.Match(order)

	report := Report{
		Order:     order,
		Trades:    slices.Clone(engine.trades[start:]),
		Filled:    requested - remaining,
		Remaining: remaining,
	}
	if remaining > 0 {
		engine.logger.Warn().
			Str("uuid", order.UUID).
			Stringer("side", order.Side).
			Uint64("filled", report.Filled).
			Uint64("dropped", remaining).
			Msg("market order not fully filled")
	}
	return report
}

// Match sweeps the opposite book best price first, consuming each level
// until order is filled or the book runs dry. Every level touched yields one
// trade at that level's price. Returns the quantity left unfilled.
func (engine *Engine) Match(order *common.Order) uint64 {
	opposite := order.Side.Opposite()
	levels := engine.Book(opposite)
	dir := book.For(opposite)

	for order.Quantity > 0 {
		price, ok := levels.BestPrice(dir)
		if !ok {
			break
		}

		var fills []common.Fill
		filled := levels.ConsumeFunc(price, order.Quantity, func(maker *common.Order, qty uint64) {
			fills = append(fills, common.Fill{MakerUUID: maker.UUID, Quantity: qty})
		})
		if filled == 0 {
			continue
		}

		order.Quantity -= filled
		engine.record(common.Trade{
			ID:        engine.newTradeID(),
			TakerUUID: order.UUID,
			Side:      order.Side,
			Price:     price,
			Quantity:  filled,
			Fills:     fills,
			Timestamp: engine.now(),
		})
	}
	return order.Quantity
}

func (engine *Engine) record(trade common.Trade) {
	engine.trades = append(engine.trades, trade)
	engine.logger.Debug().
		Str("id", trade.ID).
		Str("taker", trade.TakerUUID).
		Float64("price", trade.Price).
		Uint64("qty", trade.Quantity).
		Int("fills", len(trade.Fills)).
		Msg("trade")
}

// Trades returns a copy of the trade log, oldest first.
func (engine *Engine) Trades() []common.Trade {
	return slices.Clone(engine.trades)
}

// Book returns the resting book for side.
func (engine *Engine) Book(side common.Side) book.Book {
	if side == common.Buy {
		return engine.buys
	}
	return engine.sells
}

func (engine *Engine) Buys() book.Book  { return engine.buys }
func (engine *Engine) Sells() book.Book { return engine.sells }

func (engine *Engine) BestBid() (float64, bool) {
	return engine.buys.BestPrice(book.Descending)
}

func (engine *Engine) BestAsk() (float64, bool) {
	return engine.sells.BestPrice(book.Ascending)
}
