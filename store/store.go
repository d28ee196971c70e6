//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package store defines the capped time-series store. A series is kept
// as two index-aligned lists, <name>:ts and <name>:val, newest first.
// Timestamps are stored as unix seconds with microsecond precision.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
)

const (
	// TimestampSuffix is the timestamp list suffix
	TimestampSuffix = ":ts"
	// ValueSuffix is the value list suffix, value-append
	// notifications are published for this list only.
	ValueSuffix = ":val"
)

var (
	// ErrUnavailable means the store couldn't be reached or failed
	ErrUnavailable = errors.New("store unavailable")
	// ErrClosed means the subscription or store has been closed
	ErrClosed = errors.New("store closed")
)

// Sample represents a timestamp-value pair
type Sample struct {
	Time  time.Time
	Value string
}

// Store represents a capped time-series store
type Store interface {
	// Push prepends the sample to the series and trims
	// the timestamp and value lists to length.
	Push(ctx context.Context, name string, s Sample, length int) error
	// Range returns up to n newest samples, n < 1 means all.
	Range(ctx context.Context, name string, n int) ([]Sample, error)
	// Subscribe subscribes to value-append notifications of the series.
	Subscribe(ctx context.Context, names []string) (Subscription, error)
	Close() error
}

// Subscription represents value-append notifications
type Subscription interface {
	// Receive blocks until a value has been appended to one of
	// the subscribed series and returns its name. It returns
	// ErrClosed once the subscription is closed.
	Receive(ctx context.Context) (string, error)
	Close() error
}

// Factory is a function that returns a new instance of store
type Factory func(config.Database, *zap.Logger) (Store, error)

// Unavailable wraps a backend error as ErrUnavailable
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// FormatTime encodes a timestamp as unix seconds
// with microsecond precision.
func FormatTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

// ParseTime decodes a timestamp encoded by FormatTime,
// integer seconds are accepted as well.
func ParseTime(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.UnixMicro(int64(math.Round(f * 1e6))), nil
}

// Zip pairs timestamps and values, extra elements of the
// longer list are dropped.
func Zip(ts, val []string) ([]Sample, error) {
	n := len(ts)
	if len(val) < n {
		n = len(val)
	}

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		t, err := ParseTime(ts[i])
		if err != nil {
			return nil, fmt.Errorf("timestamp %q: %w", ts[i], err)
		}

		samples = append(samples, Sample{Time: t, Value: val[i]})
	}

	return samples, nil
}
