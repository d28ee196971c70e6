//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package console

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

// Console represents console
// It prints the samples on the stdout or stderr for testing purpose
type Console struct {
	ctx    context.Context
	ch     producer.MessageChan
	out    map[string]io.Writer
	logger *zap.Logger
}

// New returns a new console instance
func New(ctx context.Context, cfg config.Producer, lg *zap.Logger, inChan producer.MessageChan) producer.Producer {
	return &Console{
		ctx: ctx,
		ch:  inChan,
		out: map[string]io.Writer{
			"stdout": os.Stdout,
			"stderr": os.Stderr,
		},
		logger: lg,
	}
}

// Start prints the samples until the channel is closed
func (c *Console) Start() {
	for {
		select {
		case v, ok := <-c.ch:
			if !ok {
				return
			}

			_, fd, ok := producer.ParseOutput(v.Output)
			if !ok {
				c.logger.Error("console", zap.String("event", "wrong output"), zap.String("output", v.Output))
				continue
			}

			w, ok := c.out[fd]
			if !ok {
				c.logger.Error("console", zap.String("event", "wrong output"), zap.String("output", v.Output))
				continue
			}

			if err := PrettyPrint(w, v.Sample); err != nil {
				c.logger.Error("console", zap.Error(err))
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// PrettyPrint prints a sample in pretty format
func PrettyPrint(w io.Writer, s producer.Sample) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	_, err = w.Write(append(b, '\n'))

	return err
}

// Register registers console as a producer at producer registrar
func Register(producerRegistrar *producer.Registrar) {
	producerRegistrar.Register("console", "-", New)
}
