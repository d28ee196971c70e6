//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package source implements the sample acquisition framework: a source
// base with configuration lookup, value coercion and series access, plus
// the interval driven (Timed) and notification driven (Triggered) strategies.
package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/store"
)

const (
	// DefaultValues is the default series length
	DefaultValues = 1080
	// All pulls every retained sample
	All = 0
)

// Source represents an acquisition instance
type Source interface {
	Name() string
	Kind() string
	Config() *config.Resolver
	Channels() []string
	Pull(ctx context.Context, n int, name string) []store.Sample
	Start(ctx context.Context) error
	Cancel()
}

// Poller is implemented by interval driven sources
type Poller interface {
	Poll(ctx context.Context) error
}

// Updater is implemented by notification driven sources,
// triggeredBy is the upstream channel that received a value.
type Updater interface {
	Update(ctx context.Context, triggeredBy string) error
}

// Base represents the common part of the sources
type Base struct {
	conf  *config.Resolver
	store store.Store
	lg    *zap.Logger
	now   func() time.Time
}

// NewBase constructs a source base. A nil store means the
// store couldn't be reached: the configuration is still usable
// but push and pull don't do anything.
func NewBase(kind string, src config.Source, defaults map[string]interface{}, st store.Store, lg *zap.Logger) *Base {
	b := &Base{
		conf:  config.NewResolver(kind, src.Config, defaults),
		store: st,
		lg:    lg,
		now:   time.Now,
	}

	if st == nil {
		lg.Warn("source", zap.String("name", b.Name()), zap.String("event", "store unavailable, running degraded"))
	}

	return b
}

// Name returns the configured name
func (b *Base) Name() string {
	name, _ := b.conf.String("name")
	return name
}

// Kind returns the registered kind of the source
func (b *Base) Kind() string {
	return b.conf.Kind()
}

// Config returns the configuration resolver
func (b *Base) Config() *config.Resolver {
	return b.conf
}

// Logger returns the logger
func (b *Base) Logger() *zap.Logger {
	return b.lg
}

// Channels returns the channels written by the source,
// a silent source doesn't have any.
func (b *Base) Channels() []string {
	silent, err := b.conf.Bool("silent", false)
	if err != nil {
		b.lg.Warn("source", zap.String("name", b.Name()), zap.Error(err))
	}

	if silent {
		return []string{}
	}

	return []string{b.Name()}
}

// Coerce converts the value to the configured typecast,
// the value is returned unchanged without typecast.
func (b *Base) Coerce(v interface{}) (interface{}, error) {
	if !b.conf.Has("typecast") {
		return v, nil
	}

	name, err := b.conf.String("typecast")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTypecast, err)
	}

	cast, ok := typecasts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s", ErrInvalidTypecast, name, b.Kind())
	}

	return cast(v)
}

// Push appends a value to the source's series at the current time
func (b *Base) Push(ctx context.Context, v interface{}) error {
	return b.PushSample(ctx, "", time.Time{}, v)
}

// PushSample coerces and prepends a sample to the series and trims
// it to the configured length. An empty name means the source's
// name, a zero timestamp means now. Timestamps are kept with
// microsecond precision. Store failures are logged only.
func (b *Base) PushSample(ctx context.Context, name string, ts time.Time, v interface{}) error {
	if name == "" {
		name = b.Name()
	}

	if ts.IsZero() {
		ts = b.now()
	}
	ts = ts.Truncate(time.Microsecond)

	value, err := b.Coerce(v)
	if err != nil {
		return err
	}

	length, err := b.conf.Int("values", DefaultValues)
	if err != nil {
		return err
	}

	if length < 1 {
		return fmt.Errorf("%w: values %d", ErrInvalidValue, length)
	}

	if b.store == nil {
		b.lg.Debug("source", zap.String("name", name), zap.String("event", "push dropped, store unavailable"))
		stats.PushFailures.Inc()
		return nil
	}

	err = b.store.Push(ctx, name, store.Sample{Time: ts, Value: FormatValue(value)}, length)
	if err != nil {
		b.lg.Error("source", zap.String("name", name), zap.String("event", "push failed"),
			zap.String("type", fmt.Sprintf("%T", err)), zap.Error(err))
		stats.PushFailures.Inc()
		return nil
	}

	stats.Pushes.Inc()

	return nil
}

// Pull returns up to n newest samples of the series, n < 1 (All)
// means all of them. An empty name means the source's name.
// Store failures are logged and yield an empty result.
func (b *Base) Pull(ctx context.Context, n int, name string) []store.Sample {
	if name == "" {
		name = b.Name()
	}

	if b.store == nil {
		b.lg.Debug("source", zap.String("name", name), zap.String("event", "pull skipped, store unavailable"))
		return []store.Sample{}
	}

	samples, err := b.store.Range(ctx, name, n)
	if err != nil {
		b.lg.Error("source", zap.String("name", name), zap.String("event", "pull failed"),
			zap.String("type", fmt.Sprintf("%T", err)), zap.Error(err))
		return []store.Sample{}
	}

	return samples
}

// Close closes the source's store handle
func (b *Base) Close() error {
	if b.store == nil {
		return nil
	}

	return b.store.Close()
}

// logCycleError logs a failed poll or update, the cycle continues
func (b *Base) logCycleError(event string, err error) {
	b.lg.Error("source", zap.String("name", b.Name()), zap.String("kind", b.Kind()),
		zap.String("event", event), zap.String("type", fmt.Sprintf("%T", err)), zap.Error(err))
}

// recoverCycle converts a panic of a poll or update to an error
func recoverCycle(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}
