package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/logging"
)

// errDriverStopped is returned by do once the frame loop has exited
var errDriverStopped = errors.New("frame loop stopped")

// driver owns the diagram. The frame loop and every HTTP handler reach it
// through do, so the diagram is only ever touched from one goroutine.
type driver struct {
	d        *diagram.Diagram
	target   diagram.Renderer
	interval time.Duration
	cmds     chan func(*diagram.Diagram)
	done     chan struct{}
	running  atomic.Bool
	logger   logging.Logger
}

// newDriver ticks d every interval. target receives a scene after commands
// that change a stopped diagram, since no frame would publish the change.
func newDriver(d *diagram.Diagram, target diagram.Renderer, interval time.Duration, logger logging.Logger) *driver {
	dr := &driver{
		d:        d,
		target:   target,
		interval: interval,
		cmds:     make(chan func(*diagram.Diagram)),
		done:     make(chan struct{}),
		logger:   logger.With(logging.Component("driver")),
	}
	dr.running.Store(d.Running())
	return dr
}

// Run advances frames until ctx is done
func (dr *driver) Run(ctx context.Context) error {
	defer close(dr.done)
	ticker := time.NewTicker(dr.interval)
	defer ticker.Stop()

	dr.logger.Info("frame loop started", logging.Duration("interval", dr.interval))
	for {
		select {
		case <-ctx.Done():
			dr.logger.Info("frame loop stopped")
			return ctx.Err()
		case fn := <-dr.cmds:
			fn(dr.d)
			dr.running.Store(dr.d.Running())
			if !dr.d.Running() && dr.target != nil {
				if err := dr.target.Render(dr.d.Scene()); err != nil {
					dr.logger.Warn("render failed", logging.Error(err))
				}
			}
		case <-ticker.C:
			dr.running.Store(dr.d.Advance())
		}
	}
}

// do runs fn on the frame goroutine and waits for it to finish
func (dr *driver) do(ctx context.Context, fn func(*diagram.Diagram)) error {
	finished := make(chan struct{})
	wrapped := func(d *diagram.Diagram) {
		defer close(finished)
		fn(d)
	}

	select {
	case dr.cmds <- wrapped:
	case <-dr.done:
		return errDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Alive reports whether the frame loop is still running
func (dr *driver) Alive() bool {
	select {
	case <-dr.done:
		return false
	default:
		return true
	}
}

// Running reports whether the last frame asked for more. It is safe to call
// from any goroutine.
func (dr *driver) Running() bool {
	return dr.running.Load()
}
