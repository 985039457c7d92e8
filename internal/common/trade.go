package common

import (
	"fmt"
	"strings"
	"time"
)

// Fill is the part of a trade taken from one resting order.
type Fill struct {
	MakerUUID string
	Quantity  uint64
}

// Trade records one price level consumed by an incoming order. An order
// sweeping several levels produces one trade per level, each at that
// level's price.
type Trade struct {
	ID        string
	TakerUUID string
	Side      Side // Side of the taker
	Price     float64
	Quantity  uint64
	Fills     []Fill
	Timestamp time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade(price=%g, qty=%d)", t.Price, t.Quantity)
}

// Detail renders the trade together with the resting orders it filled.
func (t Trade) Detail() string {
	var sb strings.Builder
	fmt.Fprintf(&sb,
		`ID:        %s
Taker:     %s (%v)
Price:     %f
Quantity:  %d
Timestamp: %v
Fills:`,
		t.ID,
		t.TakerUUID,
		t.Side,
		t.Price,
		t.Quantity,
		t.Timestamp.Format(time.RFC3339),
	)
	for _, f := range t.Fills {
		fmt.Fprintf(&sb, "\n  %s x %d", f.MakerUUID, f.Quantity)
	}
	return sb.String()
}
