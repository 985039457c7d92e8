package engine

import (
	"fmt"

	"fenrir/internal/common"
)

type Status int

const (
	// Rested is a limit order placed in its side's book.
	Rested Status = iota
	// Filled is a market order executed in full.
	Filled
	// PartiallyFilled is a market order that ran out of liquidity. The
	// remainder was dropped.
	PartiallyFilled
	// Unfilled is a market order that met an empty book.
	Unfilled
)

func (s Status) String() string {
	switch s {
	case Rested:
		return "RESTED"
	case Filled:
		return "FILLED"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Unfilled:
		return "UNFILLED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Report is the outcome of one submission.
type Report struct {
	Order     *common.Order
	Trades    []common.Trade // Trades caused by this submission, in order
	Filled    uint64
	Remaining uint64 // Quantity left unexecuted
	Rested    bool
}

func (r Report) Status() Status {
	switch {
	case r.Rested:
		return Rested
	case r.Remaining == 0:
		return Filled
	case r.Filled > 0:
		return PartiallyFilled
	}
	return Unfilled
}
