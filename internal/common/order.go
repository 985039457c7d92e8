package common

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNilOrder         = errors.New("nil order")
	ErrInvalidSide      = errors.New("invalid order side")
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidPrice     = errors.New("limit price must be a finite number")
)

type Order struct {
	UUID          string    // Order tracked uuid
	OrderType     OrderType //
	Side          Side      // Order side
	LimitPrice    float64   // Limiting price, a sentinel for market orders
	Quantity      uint64    // Remaining quantity
	TotalQuantity uint64    // Total volume requested
	Timestamp     time.Time // Time of arrival of order
	ExchTimestamp time.Time // Time of arrival of order into the engine
}

// MarketPrice is the sentinel price carried by a market order on the given
// side: it crosses every resting price on the opposite side.
func MarketPrice(side Side) float64 {
	if side == Buy {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// Validate checks the order is well formed. Market orders have their price
// ignored, so only limit orders need a real one.
func (order *Order) Validate() error {
	if order == nil {
		return ErrNilOrder
	}
	if !order.Side.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSide, int(order.Side))
	}
	if !order.OrderType.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOrderType, int(order.OrderType))
	}
	if order.Quantity == 0 {
		return ErrInvalidQuantity
	}
	if order.OrderType == LimitOrder &&
		(math.IsNaN(order.LimitPrice) || math.IsInf(order.LimitPrice, 0)) {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, order.LimitPrice)
	}
	return nil
}

func (order Order) String() string {
	return fmt.Sprintf(
		`UUID:          %v
OrderType:     %v
Side:          %v
LimitPrice:    %f
Quantity:      %d (Total: %d)
Timestamp:     %v
ExchTimestamp: %v`,
		order.UUID,
		order.OrderType,
		order.Side,
		order.LimitPrice,
		order.Quantity,
		order.TotalQuantity,
		order.Timestamp.Format(time.RFC3339), // Formatted for readability
		order.ExchTimestamp.Format(time.RFC3339),
	)
}
