package common

import (
	"fmt"
	"strings"
)

type Side int

const (
	Buy Side = iota
	Sell
)

// Opposite returns the side an order of this side trades against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b":
		return Buy, nil
	case "sell", "s":
		return Sell, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

type OrderType int

const (
	// Limit orders are an order to buy or sell at a specified price. In
	// this engine they always rest in the book on arrival.
	LimitOrder OrderType = iota
	// Market orders are instructions to buy or sell immediately against
	// whatever rests on the opposite side, best price first. Any quantity
	// the book cannot cover is dropped.
	MarketOrder
)

func (t OrderType) Valid() bool {
	return t == LimitOrder || t == MarketOrder
}

func (t OrderType) String() string {
	switch t {
	case LimitOrder:
		return "LIMIT"
	case MarketOrder:
		return "MARKET"
	}
	return fmt.Sprintf("OrderType(%d)", int(t))
}

// ParseOrderType accepts "limit" or "market" in any case.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "limit", "l":
		return LimitOrder, nil
	case "market", "m":
		return MarketOrder, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOrderType, s)
}
