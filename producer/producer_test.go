//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yahoo/panoptes-dash/config"
)

func TestParseOutput(t *testing.T) {
	name, topic, ok := ParseOutput("kafka1::dash::metrics")
	assert.True(t, ok)
	assert.Equal(t, "kafka1", name)
	assert.Equal(t, "dash::metrics", topic)

	for _, o := range []string{"kafka1", "::topic", "kafka1::", ""} {
		_, _, ok = ParseOutput(o)
		assert.False(t, ok, o)
	}
}

func TestRegistrar(t *testing.T) {
	var pf Factory

	cfg := config.NewMockConfig()
	r := NewRegistrar(cfg.Logger())
	r.Register("console", "-", pf)

	_, ok := r.GetProducerFactory("console")
	assert.True(t, ok)
	_, ok = r.GetProducerFactory("kafka")
	assert.False(t, ok)
	assert.True(t, cfg.LogOutput.Contains("producer/register"))
}
