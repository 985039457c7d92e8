package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fenrir/internal/book"
	"fenrir/internal/common"
	"fenrir/internal/engine"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

const helpText = `commands:
  buy|sell limit <price> <qty>   rest a limit order
  buy|sell market <qty>          match against the opposite side
  book                           show resting levels
  trades                         show every trade so far
  size                           count resting orders
  help                           show this text
  quit                           exit`

type commandKind int

const (
	cmdOrder commandKind = iota
	cmdBook
	cmdTrades
	cmdSize
	cmdHelp
	cmdQuit
)

type command struct {
	kind  commandKind
	order *common.Order
}

// parseCommand turns one input line into a command. Order lines look like
// "buy limit 100.5 10" or "sell market 10".
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, ErrEmptyCommand
	}

	switch strings.ToLower(fields[0]) {
	case "book":
		return command{kind: cmdBook}, nil
	case "trades":
		return command{kind: cmdTrades}, nil
	case "size":
		return command{kind: cmdSize}, nil
	case "help", "?":
		return command{kind: cmdHelp}, nil
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	}

	side, err := common.ParseSide(fields[0])
	if err != nil {
		return command{}, fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}
	if len(fields) < 2 {
		return command{}, fmt.Errorf("%w: %s limit <price> <qty> | %s market <qty>", ErrUsage, fields[0], fields[0])
	}
	orderType, err := common.ParseOrderType(fields[1])
	if err != nil {
		return command{}, err
	}

	order := &common.Order{Side: side, OrderType: orderType}
	switch orderType {
	case common.LimitOrder:
		if len(fields) != 4 {
			return command{}, fmt.Errorf("%w: %s limit <price> <qty>", ErrUsage, fields[0])
		}
		if order.LimitPrice, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return command{}, fmt.Errorf("invalid price %q: %w", fields[2], err)
		}
		if order.Quantity, err = strconv.ParseUint(fields[3], 10, 64); err != nil {
			return command{}, fmt.Errorf("invalid quantity %q: %w", fields[3], err)
		}
	case common.MarketOrder:
		if len(fields) != 3 {
			return command{}, fmt.Errorf("%w: %s market <qty>", ErrUsage, fields[0])
		}
		if order.Quantity, err = strconv.ParseUint(fields[2], 10, 64); err != nil {
			return command{}, fmt.Errorf("invalid quantity %q: %w", fields[2], err)
		}
	}
	return command{kind: cmdOrder, order: order}, nil
}

// shell feeds commands read from an input stream to the sequencer and
// prints the outcome.
type shell struct {
	seq *engine.Sequencer
	out io.Writer
}

func newShell(seq *engine.Sequencer, out io.Writer) *shell {
	return &shell{seq: seq, out: out}
}

// Run processes in line by line until EOF, "quit", or ctx ends.
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			quit, err := s.execute(ctx, line)
			if err != nil {
				if errors.Is(err, ErrEmptyCommand) {
					continue
				}
				if errors.Is(err, engine.ErrSequencerStopped) || errors.Is(err, context.Canceled) {
					return err
				}
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (s *shell) execute(ctx context.Context, line string) (bool, error) {
	cmd, err := parseCommand(line)
	if err != nil {
		return false, err
	}

	switch cmd.kind {
	case cmdQuit:
		return true, nil
	case cmdHelp:
		fmt.Fprintln(s.out, helpText)
		return false, nil
	case cmdOrder:
		report, err := s.seq.Submit(ctx, cmd.order)
		if err != nil {
			return false, err
		}
		s.printReport(report)
		return false, nil
	}

	return false, s.seq.Query(ctx, func(eng *engine.Engine) {
		switch cmd.kind {
		case cmdBook:
			s.printBook(eng)
		case cmdTrades:
			for _, trade := range eng.Trades() {
				fmt.Fprintln(s.out, trade)
			}
		case cmdSize:
			fmt.Fprintf(s.out, "bids: %d asks: %d\n", eng.Buys().Size(), eng.Sells().Size())
		}
	})
}

func (s *shell) printReport(report engine.Report) {
	for _, trade := range report.Trades {
		fmt.Fprintln(s.out, trade)
	}
	order := report.Order
	switch report.Status() {
	case engine.Rested:
		fmt.Fprintf(s.out, "%s %s %d @ %g resting\n", order.UUID, order.Side, order.Quantity, order.LimitPrice)
	case engine.Filled:
		fmt.Fprintf(s.out, "%s %s %d filled\n", order.UUID, order.Side, report.Filled)
	default:
		fmt.Fprintf(s.out, "%s %s %d filled, %d unfilled\n", order.UUID, order.Side, report.Filled, report.Remaining)
	}
}

// printBook shows the asks above the bids, both highest price first.
func (s *shell) printBook(eng *engine.Engine) {
	printLevels := func(label string, b book.Book) {
		for _, level := range book.FlattenLevels(b, book.Descending) {
			var qty uint64
			for _, order := range level.Orders {
				qty += order.Quantity
			}
			fmt.Fprintf(s.out, "%-4s %10g %8d (%d orders)\n", label, level.PriceLevel, qty, len(level.Orders))
		}
	}
	printLevels("ASK", eng.Sells())
	fmt.Fprintln(s.out, "----")
	printLevels("BID", eng.Buys())
}
