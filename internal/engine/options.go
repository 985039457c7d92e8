package engine

import (
	"time"

	"fenrir/internal/book"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Option configures an Engine.
type Option func(*Engine)

// WithBooks sets the resting books for each side. Both must be empty.
func WithBooks(buys, sells book.Book) Option {
	return func(engine *Engine) {
		engine.buys = buys
		engine.sells = sells
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(engine *Engine) {
		engine.logger = logger
	}
}

// WithClock replaces time.Now for exchange timestamps.
func WithClock(now func() time.Time) Option {
	return func(engine *Engine) {
		engine.now = now
	}
}

// WithIDs replaces the generators for order UUIDs and trade IDs.
func WithIDs(orderID, tradeID func() string) Option {
	return func(engine *Engine) {
		engine.newOrderID = orderID
		engine.newTradeID = tradeID
	}
}

func defaultOptions(engine *Engine) {
	engine.buys = book.NewAVLBook()
	engine.sells = book.NewAVLBook()
	engine.logger = zerolog.Nop()
	engine.now = time.Now
	engine.newOrderID = func() string { return uuid.New().String() }
	engine.newTradeID = func() string { return ulid.Make().String() }
}
