//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package producer defines the downstream fan-out of new samples.
package producer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
)

// Sample represents a published sample of a channel
type Sample struct {
	Channel string    `json:"channel"`
	Time    time.Time `json:"time"`
	Value   string    `json:"value"`
}

// Message represents a sample routed to a producer,
// Output is <producer name>::<topic>.
type Message struct {
	Output string
	Sample Sample
}

// MessageChan represents a producer's input
type MessageChan chan Message

// Factory is a function that returns a new producer
type Factory func(context.Context, config.Producer, *zap.Logger, MessageChan) Producer

// Producer represents a producer
type Producer interface {
	Start()
}

// ParseOutput splits an output to the producer name and topic
func ParseOutput(output string) (string, string, bool) {
	out := strings.SplitN(output, "::", 2)
	if len(out) < 2 || len(out[0]) < 1 || len(out[1]) < 1 {
		return "", "", false
	}

	return out[0], out[1], true
}
