package engine

import (
	"context"
	"errors"

	"fenrir/internal/common"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

const defaultQueueSize = 100

var ErrSequencerStopped = errors.New("sequencer stopped")

type request struct {
	work func(*Engine)
	done chan struct{}
}

// Sequencer gives an Engine a single owning goroutine. Callers on any
// goroutine hand it work over a channel and the owner runs it one request at
// a time, so the engine and its books never see concurrent access.
type Sequencer struct {
	engine   *Engine
	requests chan request
	logger   zerolog.Logger
	t        tomb.Tomb
}

// NewSequencer starts the owner goroutine for engine. The engine must not be
// touched directly once handed over.
func NewSequencer(engine *Engine, queueSize int, logger zerolog.Logger) *Sequencer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &Sequencer{
		engine:   engine,
		requests: make(chan request, queueSize),
		logger:   logger,
	}
	s.t.Go(s.run)
	return s
}

func (s *Sequencer) run() error {
	s.logger.Info().Int("queue", cap(s.requests)).Msg("sequencer running")
	for {
		select {
		case <-s.t.Dying():
			s.logger.Info().Msg("sequencer shutting down")
			return nil
		case req := <-s.requests:
			req.work(s.engine)
			close(req.done)
		}
	}
}

// Submit runs Engine.Submit on the owner goroutine.
func (s *Sequencer) Submit(ctx context.Context, order *common.Order) (Report, error) {
	var report Report
	var submitErr error
	if err := s.Query(ctx, func(engine *Engine) {
		report, submitErr = engine.Submit(order)
	}); err != nil {
		return Report{}, err
	}
	return report, submitErr
}

// Query runs fn on the owner goroutine and waits for it to finish. If ctx
// ends after the request was queued, fn may still run later.
func (s *Sequencer) Query(ctx context.Context, fn func(*Engine)) error {
	req := request{work: fn, done: make(chan struct{})}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.t.Dying():
		return ErrSequencerStopped
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.t.Dead():
		select {
		case <-req.done:
			return nil
		default:
			return ErrSequencerStopped
		}
	}
}

// Stop shuts the owner goroutine down and waits for it to exit. Queued
// requests that have not started are abandoned.
func (s *Sequencer) Stop() error {
	s.t.Kill(nil)
	return s.t.Wait()
}
