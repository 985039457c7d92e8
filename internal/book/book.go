// Package book holds resting orders indexed by price. Each price owns a
// FIFO PriceLevel; levels are kept sorted so the best price on either end
// is a cheap lookup and neighbouring prices are a step away.
//
// Books are not safe for concurrent use. A caller that needs concurrency
// must give each book a single owner or guard every call, reads included,
// with one lock: traversals follow live index links that a concurrent
// insert or delete would rewire.
package book

import (
	"fmt"
	"iter"
	"math"

	"fenrir/internal/common"
)

// Direction selects which end of the book is considered best.
type Direction int

const (
	// Ascending walks lowest price first: the best ask.
	Ascending Direction = iota
	// Descending walks highest price first: the best bid.
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// For returns the direction in which the resting book of side is best
// first: bids high to low, asks low to high.
func For(side common.Side) Direction {
	if side == common.Buy {
		return Descending
	}
	return Ascending
}

// Unbounded is the bound that lets Orders walk the whole book in dir.
func Unbounded(dir Direction) float64 {
	if dir == Descending {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// Book is one side of the market for one instrument.
type Book interface {
	// Add appends order at the back of its price level, creating the level
	// when the price is new.
	Add(order *common.Order) error
	// BestPrice is the lowest price for Ascending or the highest for
	// Descending. False when the book is empty.
	BestPrice(dir Direction) (float64, bool)
	// PopFirst removes the oldest order at price.
	PopFirst(price float64) (*common.Order, bool)
	// PeekFirst returns the oldest order at price without removing it.
	PeekFirst(price float64) (*common.Order, bool)
	// Consume fills up to qty from the orders at price in arrival order and
	// returns the quantity filled.
	Consume(price float64, qty uint64) uint64
	// ConsumeFunc is Consume, calling fn for every resting order touched.
	ConsumeFunc(price float64, qty uint64, fn FillFunc) uint64
	// Orders yields resting orders best first in dir, level by level, and
	// stops at the first level beyond bound. A level priced exactly at
	// bound is included, unlike a strict "below max" / "above min" range.
	Orders(dir Direction, bound float64) iter.Seq[*common.Order]
	// Levels yields each price level in dir.
	Levels(dir Direction) iter.Seq2[float64, *PriceLevel]
	// Size counts resting orders by walking every level.
	Size() int
	// Depth counts price levels.
	Depth() int
	String() string
}

// FlatPriceLevel is a detached copy of a price level, for display and for
// comparing books in tests.
type FlatPriceLevel struct {
	PriceLevel float64
	Orders     []common.Order
}

// FlattenLevels copies every level of b in dir.
func FlattenLevels(b Book, dir Direction) []FlatPriceLevel {
	var levels []FlatPriceLevel
	for price, level := range b.Levels(dir) {
		flat := FlatPriceLevel{PriceLevel: price}
		for order := range level.All() {
			flat.Orders = append(flat.Orders, *order)
		}
		levels = append(levels, flat)
	}
	return levels
}

func beyond(dir Direction, price, bound float64) bool {
	if dir == Descending {
		return price < bound
	}
	return price > bound
}

func checkOrder(order *common.Order) error {
	if order == nil {
		return common.ErrNilOrder
	}
	if math.IsNaN(order.LimitPrice) {
		return fmt.Errorf("%w: %v", common.ErrInvalidPrice, order.LimitPrice)
	}
	return nil
}
