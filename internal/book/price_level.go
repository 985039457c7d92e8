package book

import (
	"fmt"
	"iter"

	"fenrir/internal/common"
)

// compactThreshold is the smallest dead prefix worth reclaiming.
const compactThreshold = 32

// FillFunc observes one resting order being filled by qty.
type FillFunc func(maker *common.Order, qty uint64)

// PriceLevel is the FIFO queue of orders resting at a single price. Orders
// are only ever appended at the back and taken from the front, so the
// queue order is the arrival order is the fill order.
type PriceLevel struct {
	price  float64
	orders []*common.Order // orders[head:] are live
	head   int
}

func NewPriceLevel(price float64) *PriceLevel {
	return &PriceLevel{price: price}
}

func (level *PriceLevel) Price() float64 { return level.price }

func (level *PriceLevel) Len() int { return len(level.orders) - level.head }

// Quantity is the liquidity resting at this level, summed from the orders
// themselves so it follows any fill made through a shared order pointer.
func (level *PriceLevel) Quantity() uint64 {
	var total uint64
	for _, order := range level.orders[level.head:] {
		total += order.Quantity
	}
	return total
}

func (level *PriceLevel) PushBack(order *common.Order) {
	level.orders = append(level.orders, order)
}

func (level *PriceLevel) PeekFront() (*common.Order, bool) {
	if level.Len() == 0 {
		return nil, false
	}
	return level.orders[level.head], true
}

func (level *PriceLevel) PopFront() (*common.Order, bool) {
	if level.Len() == 0 {
		return nil, false
	}
	order := level.orders[level.head]
	level.orders[level.head] = nil
	level.head++

	switch {
	case level.Len() == 0:
		level.orders = level.orders[:0]
		level.head = 0
	case level.head >= compactThreshold && level.head*2 >= len(level.orders):
		n := copy(level.orders, level.orders[level.head:])
		clear(level.orders[n:])
		level.orders = level.orders[:n]
		level.head = 0
	}
	return order, true
}

// All yields the live orders in arrival order.
func (level *PriceLevel) All() iter.Seq[*common.Order] {
	return func(yield func(*common.Order) bool) {
		for _, order := range level.orders[level.head:] {
			if !yield(order) {
				return
			}
		}
	}
}

// consume takes up to need from the front of the queue. An order larger
// than the outstanding need is reduced in place and stays at the front;
// anything else is removed whole. Returns the quantity taken.
func (level *PriceLevel) consume(need uint64, fn FillFunc) uint64 {
	var filled uint64
	for filled < need {
		order, ok := level.PeekFront()
		if !ok {
			break
		}

		outstanding := need - filled
		if order.Quantity > outstanding {
			order.Quantity -= outstanding
			filled += outstanding
			if fn != nil {
				fn(order, outstanding)
			}
			break
		}

		qty := order.Quantity
		level.PopFront()
		filled += qty
		if fn != nil {
			fn(order, qty)
		}
	}
	return filled
}

func (level *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%g, Orders=%d, Quantity=%d}", level.price, level.Len(), level.Quantity())
}
