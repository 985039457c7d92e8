package book

import (
	"fmt"
	"iter"
	"strings"

	"fenrir/internal/common"

	"github.com/tidwall/btree"
)

type PriceLevels = btree.BTreeG[*PriceLevel]

// BTreeBook is the same book laid out on a B-tree of price levels. It
// trades the binary index's pointer chasing for flat, cache-friendly nodes
// and suits books with many shallow levels.
type BTreeBook struct {
	// Price levels to orders sat on the price level, sorted by time added
	// as they will be push-back'd.
	levels *PriceLevels
}

func NewBTreeBook() *BTreeBook {
	// Sorted least first. Books have a single owner, so the tree's own
	// lock is off: with it on, a lookup made while ranging over Levels
	// would wait on the read lock held by that same walk.
	levels := btree.NewBTreeGOptions(func(a, b *PriceLevel) bool {
		return a.price < b.price
	}, btree.Options{NoLocks: true})
	return &BTreeBook{levels: levels}
}

// Levels comparator only accounts for price levels, so we create a dummy price
// level for the search.
func (book *BTreeBook) get(price float64) (*PriceLevel, bool) {
	return book.levels.GetMut(&PriceLevel{price: price})
}

func (book *BTreeBook) Add(order *common.Order) error {
	if err := checkOrder(order); err != nil {
		return err
	}

	if level, ok := book.get(order.LimitPrice); ok {
		level.PushBack(order)
		return nil
	}
	level := NewPriceLevel(order.LimitPrice)
	level.PushBack(order)
	book.levels.Set(level)
	return nil
}

func (book *BTreeBook) BestPrice(dir Direction) (float64, bool) {
	var level *PriceLevel
	var ok bool
	if dir == Descending {
		level, ok = book.levels.Max()
	} else {
		level, ok = book.levels.Min()
	}
	if !ok {
		return 0, false
	}
	return level.price, true
}

func (book *BTreeBook) PopFirst(price float64) (*common.Order, bool) {
	level, ok := book.get(price)
	if !ok {
		return nil, false
	}
	order, ok := level.PopFront()
	if level.Len() == 0 {
		book.levels.Delete(level)
	}
	return order, ok
}

func (book *BTreeBook) PeekFirst(price float64) (*common.Order, bool) {
	level, ok := book.get(price)
	if !ok {
		return nil, false
	}
	return level.PeekFront()
}

func (book *BTreeBook) Consume(price float64, qty uint64) uint64 {
	return book.ConsumeFunc(price, qty, nil)
}

func (book *BTreeBook) ConsumeFunc(price float64, qty uint64, fn FillFunc) uint64 {
	level, ok := book.get(price)
	if !ok {
		return 0
	}
	filled := level.consume(qty, fn)
	if level.Len() == 0 {
		book.levels.Delete(level)
	}
	return filled
}

func (book *BTreeBook) Orders(dir Direction, bound float64) iter.Seq[*common.Order] {
	return func(yield func(*common.Order) bool) {
		for price, level := range book.Levels(dir) {
			if beyond(dir, price, bound) {
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

func (book *BTreeBook) Levels(dir Direction) iter.Seq2[float64, *PriceLevel] {
	return func(yield func(float64, *PriceLevel) bool) {
		visit := func(level *PriceLevel) bool {
			return yield(level.price, level)
		}
		if dir == Descending {
			book.levels.Reverse(visit)
		} else {
			book.levels.Scan(visit)
		}
	}
}

func (book *BTreeBook) Size() int {
	size := 0
	book.levels.Scan(func(level *PriceLevel) bool {
		size += level.Len()
		return true
	})
	return size
}

func (book *BTreeBook) Depth() int {
	return book.levels.Len()
}

func (book *BTreeBook) String() string {
	var sb strings.Builder
	book.levels.Scan(func(level *PriceLevel) bool {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%g", level.price)
		return true
	})
	return sb.String()
}

var _ Book = (*BTreeBook)(nil)
