//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package aggregate implements a triggered source which combines
// the newest values of its upstream channels.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/yahoo/panoptes-dash/source"
)

type aggregator func([]float64) (float64, error)

var aggregators = map[string]aggregator{
	"sum": func(v []float64) (float64, error) {
		var s float64
		for _, f := range v {
			s += f
		}
		return s, nil
	},
	"avg": func(v []float64) (float64, error) {
		var s float64
		for _, f := range v {
			s += f
		}
		return s / float64(len(v)), nil
	},
	"min": func(v []float64) (float64, error) {
		m := math.Inf(1)
		for _, f := range v {
			m = math.Min(m, f)
		}
		return m, nil
	},
	"max": func(v []float64) (float64, error) {
		m := math.Inf(-1)
		for _, f := range v {
			m = math.Max(m, f)
		}
		return m, nil
	},
	// ratio returns the first value as a percentage of the second
	"ratio": func(v []float64) (float64, error) {
		if len(v) != 2 {
			return 0, fmt.Errorf("ratio requires two upstream channels, got %d", len(v))
		}
		if v[1] == 0 {
			return 0, fmt.Errorf("%w: ratio divisor is zero", source.ErrInvalidValue)
		}
		return v[0] / v[1] * 100, nil
	},
}

// Aggregate represents an aggregation of upstream channels
type Aggregate struct {
	*source.Triggered

	upstream []string
	fn       aggregator
}

// New constructs an aggregate source, config keys: source (list
// of upstream channels) and function: sum (default), avg, min,
// max or ratio. It subscribes to all of the upstream channels.
func New(b *source.Base) (source.Source, error) {
	upstream, err := b.Config().Strings("source")
	if err != nil {
		return nil, err
	}

	name, err := b.Config().String("function", "sum")
	if err != nil {
		return nil, err
	}

	fn, ok := aggregators[name]
	if !ok {
		return nil, fmt.Errorf("aggregate: unknown function %q", name)
	}

	a := &Aggregate{
		upstream: upstream,
		fn:       fn,
	}
	a.Triggered = source.NewTriggered(b, a, source.SubscribeAll)

	return a, nil
}

// Register registers aggregate as a source kind at source registrar
func Register(sourceRegistrar *source.Registrar) {
	sourceRegistrar.Register("aggregate", "-", New)
}

// Update pushes the aggregation once every upstream channel has a value
func (a *Aggregate) Update(ctx context.Context, triggeredBy string) error {
	values := make([]float64, 0, len(a.upstream))
	for _, name := range a.upstream {
		samples := a.Pull(ctx, 1, name)
		if len(samples) < 1 {
			return nil
		}

		f, err := strconv.ParseFloat(samples[0].Value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s %q", source.ErrInvalidValue, name, samples[0].Value)
		}

		values = append(values, f)
	}

	v, err := a.fn(values)
	if err != nil {
		return err
	}

	return a.Push(ctx, v)
}
