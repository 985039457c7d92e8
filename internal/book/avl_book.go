package book

import (
	"fmt"
	"iter"
	"strings"

	"fenrir/internal/avl"
	"fenrir/internal/common"
)

type priceIndex = avl.Tree[float64, *PriceLevel]

// AVLBook keeps its price levels in an AVL tree keyed by price. Every node
// in the tree owns a non-empty level: a level is removed from the index the
// moment its last order leaves.
type AVLBook struct {
	levels *priceIndex
}

func NewAVLBook() *AVLBook {
	return &AVLBook{levels: avl.New[float64, *PriceLevel]()}
}

func (book *AVLBook) Add(order *common.Order) error {
	if err := checkOrder(order); err != nil {
		return err
	}

	if id, ok := book.levels.Get(order.LimitPrice); ok {
		// If the price level already exists, just append onto the existing orders.
		book.levels.Value(id).PushBack(order)
		return nil
	}

	// Otherwise, if the price level does not exist, create the price level.
	level := NewPriceLevel(order.LimitPrice)
	level.PushBack(order)
	book.levels.Insert(order.LimitPrice, level)
	return nil
}

func (book *AVLBook) BestPrice(dir Direction) (float64, bool) {
	id := book.best(dir)
	if id == avl.Nil {
		return 0, false
	}
	return book.levels.Key(id), true
}

func (book *AVLBook) PopFirst(price float64) (*common.Order, bool) {
	id, ok := book.levels.Get(price)
	if !ok {
		return nil, false
	}
	level := book.levels.Value(id)
	order, ok := level.PopFront()
	if level.Len() == 0 {
		book.levels.DeleteNode(id)
	}
	return order, ok
}

func (book *AVLBook) PeekFirst(price float64) (*common.Order, bool) {
	id, ok := book.levels.Get(price)
	if !ok {
		return nil, false
	}
	return book.levels.Value(id).PeekFront()
}

func (book *AVLBook) Consume(price float64, qty uint64) uint64 {
	return book.ConsumeFunc(price, qty, nil)
}

func (book *AVLBook) ConsumeFunc(price float64, qty uint64, fn FillFunc) uint64 {
	id, ok := book.levels.Get(price)
	if !ok {
		return 0
	}
	level := book.levels.Value(id)
	filled := level.consume(qty, fn)
	if level.Len() == 0 {
		book.levels.DeleteNode(id)
	}
	return filled
}

func (book *AVLBook) Orders(dir Direction, bound float64) iter.Seq[*common.Order] {
	return func(yield func(*common.Order) bool) {
		for _, level := range book.Levels(dir) {
			if beyond(dir, level.Price(), bound) {
				return
			}
			for order := range level.All() {
				if !yield(order) {
					return
				}
			}
		}
	}
}

func (book *AVLBook) Levels(dir Direction) iter.Seq2[float64, *PriceLevel] {
	return func(yield func(float64, *PriceLevel) bool) {
		for id := book.best(dir); id != avl.Nil; id = book.next(dir, id) {
			if !yield(book.levels.Key(id), book.levels.Value(id)) {
				return
			}
		}
	}
}

func (book *AVLBook) Size() int {
	size := 0
	for id := range book.levels.All() {
		size += book.levels.Value(id).Len()
	}
	return size
}

func (book *AVLBook) Depth() int {
	return book.levels.Len()
}

// String lists the prices in the book, lowest first, one per line.
func (book *AVLBook) String() string {
	var sb strings.Builder
	for id := range book.levels.All() {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%g", book.levels.Key(id))
	}
	return sb.String()
}

func (book *AVLBook) best(dir Direction) avl.NodeID {
	if dir == Descending {
		return book.levels.Max(book.levels.Root())
	}
	return book.levels.Min(book.levels.Root())
}

func (book *AVLBook) next(dir Direction, id avl.NodeID) avl.NodeID {
	if dir == Descending {
		return book.levels.Predecessor(id)
	}
	return book.levels.Successor(id)
}

var _ Book = (*AVLBook)(nil)
