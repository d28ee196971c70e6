//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package publish implements the downstream consumer of the series:
// a silent triggered source over every published channel which
// forwards each new sample to the channel's producer output.
package publish

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
	"github.com/yahoo/panoptes-dash/source"
	"github.com/yahoo/panoptes-dash/store"
)

// Name is the publisher's source name and kind
const Name = "publish"

// ErrNothingToPublish means none of the channels has an output
var ErrNothingToPublish = errors.New("publish: no channel to publish")

// Publisher represents the downstream publisher
type Publisher struct {
	*source.Triggered

	outputs map[string]string
	ch      producer.MessageChan
}

// New constructs a publisher for the channels of the sources.
// A channel is published if it's allowed by the publish channels
// and it has an output: the source's output config or the
// global publish output.
func New(cfg config.Config, st store.Store, sources []source.Source, ch producer.MessageChan) (*Publisher, error) {
	var (
		lg       = cfg.Logger()
		global   = cfg.Global()
		allowed  = make(map[string]bool)
		outputs  = make(map[string]string)
		channels []interface{}
	)

	for _, c := range global.Publish.Channels {
		allowed[c] = true
	}

	for _, s := range sources {
		for _, c := range s.Channels() {
			if len(allowed) > 0 && !allowed[c] {
				continue
			}

			output, err := s.Config().String("output", global.Publish.Output)
			if err != nil {
				return nil, err
			}

			if _, _, ok := producer.ParseOutput(output); !ok {
				lg.Debug("publish", zap.String("event", "no output"), zap.String("channel", c))
				continue
			}

			if _, ok := outputs[c]; ok {
				lg.Warn("publish", zap.String("event", "duplicate channel"), zap.String("channel", c))
				continue
			}

			outputs[c] = output
			channels = append(channels, c)
		}
	}

	if len(channels) < 1 {
		return nil, ErrNothingToPublish
	}

	b := source.NewBase(Name, config.Source{
		Service: Name,
		Config: map[string]interface{}{
			"name":      Name,
			"silent":    true,
			"source":    channels,
			"subscribe": source.SubscribeAll,
		},
	}, cfg.Defaults(), st, lg)

	p := &Publisher{
		outputs: outputs,
		ch:      ch,
	}
	p.Triggered = source.NewTriggered(b, p, source.SubscribeAll)

	return p, nil
}

// Outputs returns the published channels and their outputs
func (p *Publisher) Outputs() map[string]string {
	return p.outputs
}

// Update forwards the newest sample of the channel
func (p *Publisher) Update(ctx context.Context, triggeredBy string) error {
	output, ok := p.outputs[triggeredBy]
	if !ok {
		return nil
	}

	samples := p.Pull(ctx, 1, triggeredBy)
	if len(samples) < 1 {
		return nil
	}

	msg := producer.Message{
		Output: output,
		Sample: producer.Sample{
			Channel: triggeredBy,
			Time:    samples[0].Time,
			Value:   samples[0].Value,
		},
	}

	select {
	case p.ch <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}
