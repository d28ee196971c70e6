//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/store"
)

const (
	// SubscribeFirst subscribes to the first upstream channel
	SubscribeFirst = "first"
	// SubscribeAll subscribes to every upstream channel
	SubscribeAll = "all"

	// DefaultBackoff is the initial reconnect delay
	DefaultBackoff = time.Second
	// DefaultMaxBackoff is the reconnect delay ceiling
	DefaultMaxBackoff = 30 * time.Second
)

var errNoStore = fmt.Errorf("%w: no store", store.ErrUnavailable)

// Triggered represents a source which reacts to values
// appended to its upstream channels.
type Triggered struct {
	*Base

	updater Updater
	mode    string
	state   atomic.Int32

	cancel context.CancelFunc
	sub    store.Subscription
	done   chan struct{}
	mu     sync.Mutex
}

// NewTriggered constructs a notification driven source, u is
// called for every value appended upstream. mode is the subscribe
// mode if it's not configured.
func NewTriggered(b *Base, u Updater, mode string) *Triggered {
	if mode == "" {
		mode = SubscribeFirst
	}

	return &Triggered{
		Base:    b,
		updater: u,
		mode:    mode,
		done:    make(chan struct{}),
	}
}

// Upstream returns the channels to subscribe based on
// the source and subscribe configuration.
func (t *Triggered) Upstream() ([]string, error) {
	v, err := t.conf.Get("source")
	if err != nil {
		return nil, err
	}

	var list []string
	switch s := v.(type) {
	case string:
		list = []string{s}
	case []string:
		list = s
	case []interface{}:
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %v", ErrInvalidSource, v)
			}
			list = append(list, str)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, v)
	}

	if len(list) < 1 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSource)
	}

	for _, c := range list {
		if c == "" {
			return nil, fmt.Errorf("%w: empty channel name", ErrInvalidSource)
		}
	}

	mode, err := t.conf.String("subscribe", t.mode)
	if err != nil {
		return nil, err
	}

	switch mode {
	case SubscribeFirst:
		return list[:1], nil
	case SubscribeAll:
		return list, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidSubscribeMode, mode)
}

// Start resolves the upstream channels and starts the receive
// loop, invalid upstream configuration prevents the start. An
// unavailable store is retried by the loop with backoff.
func (t *Triggered) Start(ctx context.Context) error {
	channels, err := t.Upstream()
	if err != nil {
		return err
	}

	backoff, err := t.conf.Duration("backoff", DefaultBackoff)
	if err != nil {
		return err
	}

	maxBackoff, err := t.conf.Duration("maxBackoff", DefaultMaxBackoff)
	if err != nil {
		return err
	}

	if !t.state.CompareAndSwap(stateCreated, stateRunning) {
		return ErrStarted
	}
	stats.Running.Inc()

	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	t.lg.Info("triggered", zap.String("name", t.Name()), zap.String("kind", t.Kind()), zap.Strings("upstream", channels))

	go t.loop(ctx, channels, backoff, maxBackoff)

	return nil
}

// Done is closed once the receive loop has exited
func (t *Triggered) Done() <-chan struct{} {
	return t.done
}

func (t *Triggered) loop(ctx context.Context, channels []string, backoff, maxBackoff time.Duration) {
	defer close(t.done)

	delay := backoff
	for {
		sub, err := t.subscribe(ctx, channels)
		if err == nil {
			var received bool
			received, err = t.receive(ctx, sub)
			if received {
				delay = backoff
			}
		}

		if t.terminated(ctx, err) {
			return
		}

		stats.Reconnects.Inc()
		t.lg.Warn("triggered", zap.String("name", t.Name()), zap.String("event", "subscription interrupted"),
			zap.Duration("backoff", delay), zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}

// terminated returns true if the loop should exit: cancellation
// or closed store, anything else is transient.
func (t *Triggered) terminated(ctx context.Context, err error) bool {
	if ctx.Err() != nil || t.state.Load() == stateCancelled {
		return true
	}

	if errors.Is(err, store.ErrClosed) && !errors.Is(err, store.ErrUnavailable) {
		t.lg.Info("triggered", zap.String("name", t.Name()), zap.String("event", "subscription closed"))
		return true
	}

	return false
}

func (t *Triggered) subscribe(ctx context.Context, channels []string) (store.Subscription, error) {
	if t.store == nil {
		return nil, errNoStore
	}

	sub, err := t.store.Subscribe(ctx, channels)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Load() == stateCancelled {
		sub.Close()
		return nil, store.ErrClosed
	}

	t.sub = sub

	return sub, nil
}

func (t *Triggered) receive(ctx context.Context, sub store.Subscription) (bool, error) {
	defer func() {
		t.mu.Lock()
		if t.sub == sub {
			t.sub = nil
		}
		t.mu.Unlock()
		sub.Close()
	}()

	var received bool
	for {
		name, err := sub.Receive(ctx)
		if err != nil {
			return received, err
		}

		received = true
		t.update(ctx, name)
	}
}

func (t *Triggered) update(ctx context.Context, triggeredBy string) {
	stats.Updates.Inc()

	if err := t.safeUpdate(ctx, triggeredBy); err != nil {
		stats.UpdateErrors.Inc()
		t.logCycleError("update failed", err)
	}
}

func (t *Triggered) safeUpdate(ctx context.Context, triggeredBy string) (err error) {
	defer recoverCycle(&err)
	return t.updater.Update(ctx, triggeredBy)
}

// Cancel closes the subscription and stops the receive loop,
// it's safe to call more than once.
func (t *Triggered) Cancel() {
	prev := t.state.Swap(stateCancelled)
	if prev == stateCancelled {
		return
	}

	if prev == stateRunning {
		stats.Running.Dec()
	}

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.sub != nil {
		t.sub.Close()
	}
	t.mu.Unlock()

	if prev == stateCreated {
		close(t.done)
	}

	t.lg.Info("triggered", zap.String("name", t.Name()), zap.String("event", "cancelled"))
}
