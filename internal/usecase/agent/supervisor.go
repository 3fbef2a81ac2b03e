// Package agent supervises the background inspection process that turns
// captured images into detection submissions. The supervisor is an explicit
// managed object with a two-state machine (Stopped|Running); there is no
// process-wide mutable handle.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/domain/defect"
	"railguard/internal/errs"
)

type State string

const (
	StateStopped State = "Stopped"
	StateRunning State = "Running"
)

type Status struct {
	State State
	// Processed counts images examined since the last start.
	Processed uint64
	// Submitted counts defects ingested since the last start.
	Submitted uint64
}

type Supervisor struct {
	runner *Runner

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	counter *counters
}

func NewSupervisor(runner *Runner) *Supervisor {
	return &Supervisor{
		runner: runner,
		state:  StateStopped,
	}
}

// Start launches the inspection loop. Starting while already running is a
// conflict.
func (s *Supervisor) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return defect.ErrAgentAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	counter := &counters{}

	s.state = StateRunning
	s.cancel = cancel
	s.done = done
	s.counter = counter

	logCtx := logging.WithAttrs(runCtx, slog.String("component", "agent.supervisor"))
	logging.Info(logCtx, "inspection agent started")

	go func() {
		defer close(done)
		if err := s.runner.Run(logCtx, counter); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error(logCtx, "inspection agent exited with error",
				slog.Any("err", errs.Loggable(err)))
		}

		s.mu.Lock()
		s.state = StateStopped
		s.cancel = nil
		s.mu.Unlock()
		logging.Info(logCtx, "inspection agent stopped")
	}()

	return nil
}

// Stop cancels the inspection loop and waits for it to exit. Stopping while
// not running is a conflict.
func (s *Supervisor) Stop(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	s.mu.Lock()
	if s.state != StateRunning || s.cancel == nil {
		s.mu.Unlock()
		return defect.ErrAgentNotRunning
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "wait for agent shutdown")
	}
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{State: s.state}
	if s.counter != nil {
		status.Processed = s.counter.processed.Load()
		status.Submitted = s.counter.submitted.Load()
	}
	return status
}
