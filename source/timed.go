//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the default polling interval
const DefaultInterval = 10 * time.Second

const (
	stateCreated int32 = iota
	stateRunning
	stateCancelled
)

// Timer represents a scheduled wake-up
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d on its own goroutine,
// time.AfterFunc is used if none is set.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Timed represents an interval driven source
type Timed struct {
	*Base

	poller   Poller
	schedule Scheduler
	interval time.Duration
	state    atomic.Int32

	ctx   context.Context
	timer Timer
	done  chan struct{}
	mu    sync.Mutex
}

// NewTimed constructs an interval driven source, p is called
// once per interval.
func NewTimed(b *Base, p Poller) *Timed {
	return &Timed{
		Base:   b,
		poller: p,
		done:   make(chan struct{}),
	}
}

// Start resolves the interval and runs the first poll right away
func (t *Timed) Start(ctx context.Context) error {
	interval, err := t.conf.Duration("interval", DefaultInterval)
	if err != nil {
		return err
	}

	// zero is only valid with an injected scheduler
	if interval < 0 || (interval == 0 && t.schedule == nil) {
		return fmt.Errorf("%w: interval %s", ErrInvalidValue, interval)
	}

	if !t.state.CompareAndSwap(stateCreated, stateRunning) {
		return ErrStarted
	}
	stats.Running.Inc()

	t.mu.Lock()
	t.ctx = ctx
	t.interval = interval
	t.mu.Unlock()

	t.lg.Info("timed", zap.String("name", t.Name()), zap.String("kind", t.Kind()), zap.Duration("interval", interval))

	go func() {
		select {
		case <-ctx.Done():
			t.Cancel()
		case <-t.done:
		}
	}()

	go t.wake()

	return nil
}

// Interval returns the resolved polling interval
func (t *Timed) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Running returns true if the source has been started and not cancelled
func (t *Timed) Running() bool {
	return t.state.Load() == stateRunning
}

// wake schedules the next wake-up before polling so a slow
// poll doesn't shift the cadence.
func (t *Timed) wake() {
	if t.state.Load() != stateRunning {
		return
	}

	t.mu.Lock()
	if t.state.Load() != stateRunning {
		t.mu.Unlock()
		return
	}
	schedule := t.schedule
	if schedule == nil {
		schedule = afterFunc
	}
	t.timer = schedule(t.interval, t.wake)
	ctx := t.ctx
	t.mu.Unlock()

	t.poll(ctx)
}

func (t *Timed) poll(ctx context.Context) {
	stats.Polls.Inc()

	if err := t.safePoll(ctx); err != nil {
		stats.PollFailures.Inc()
		t.logCycleError("poll failed", err)
	}
}

func (t *Timed) safePoll(ctx context.Context) (err error) {
	defer recoverCycle(&err)
	return t.poller.Poll(ctx)
}

// Cancel stops scheduling and the pending wake-up,
// a poll in progress isn't interrupted.
func (t *Timed) Cancel() {
	prev := t.state.Swap(stateCancelled)
	if prev == stateCancelled {
		return
	}

	if prev == stateRunning {
		stats.Running.Dec()
	}

	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	close(t.done)

	t.lg.Info("timed", zap.String("name", t.Name()), zap.String("event", "cancelled"))
}
