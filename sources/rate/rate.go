//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package rate implements a triggered source which derives the
// per-second rate of an upstream counter.
package rate

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/source"
)

// Rate represents a counter rate source
type Rate struct {
	*source.Triggered

	factor float64
}

// New constructs a rate source, config keys: source (upstream
// counter) and factor (default 1), e.g. 8 for octets to bits.
func New(b *source.Base) (source.Source, error) {
	factor, err := b.Config().Float("factor", 1)
	if err != nil {
		return nil, err
	}

	r := &Rate{factor: factor}
	r.Triggered = source.NewTriggered(b, r, source.SubscribeFirst)

	return r, nil
}

// Register registers rate as a source kind at source registrar
func Register(sourceRegistrar *source.Registrar) {
	sourceRegistrar.Register("rate", "-", New)
}

// Update pushes the rate between the two newest upstream samples,
// the sample carries the upstream timestamp.
func (r *Rate) Update(ctx context.Context, triggeredBy string) error {
	samples := r.Pull(ctx, 2, triggeredBy)
	if len(samples) < 2 {
		return nil
	}

	cur, err := strconv.ParseFloat(samples[0].Value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s %q", source.ErrInvalidValue, triggeredBy, samples[0].Value)
	}

	prev, err := strconv.ParseFloat(samples[1].Value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s %q", source.ErrInvalidValue, triggeredBy, samples[1].Value)
	}

	dt := samples[0].Time.Sub(samples[1].Time).Seconds()
	if dt <= 0 {
		return fmt.Errorf("%w: %s timestamps not increasing", source.ErrInvalidValue, triggeredBy)
	}

	if cur < prev {
		r.Logger().Debug("rate", zap.String("name", r.Name()), zap.String("event", "counter reset"),
			zap.String("upstream", triggeredBy))
		return nil
	}

	return r.PushSample(ctx, "", samples[0].Time, (cur-prev)/dt*r.factor)
}
