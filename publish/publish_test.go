//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package publish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
	"github.com/yahoo/panoptes-dash/source"
	"github.com/yahoo/panoptes-dash/store"
	"github.com/yahoo/panoptes-dash/store/memory"
)

func newSource(cfg *config.MockConfig, st store.Store, conf map[string]interface{}) source.Source {
	b := source.NewBase("disk", config.Source{Service: "disk", Config: conf}, cfg.Defaults(), st, cfg.Logger())
	return source.NewTimed(b, nil)
}

func TestNew(t *testing.T) {
	cfg := config.NewMockConfig()
	cfg.MGlobal.Publish.Output = "kafka1::dash"
	m := memory.New(nil)

	sources := []source.Source{
		newSource(cfg, m, map[string]interface{}{"name": "cpu", "output": "console1::stdout"}),
		newSource(cfg, m, map[string]interface{}{"name": "mem", "silent": true}),
		newSource(cfg, m, map[string]interface{}{"name": "root fs"}),
	}

	p, err := New(cfg, m, sources, make(producer.MessageChan))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cpu": "console1::stdout", "root fs": "kafka1::dash"}, p.Outputs())
	assert.Empty(t, p.Channels())

	up, err := p.Upstream()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cpu", "root fs"}, up)

	cfg.MGlobal.Publish.Channels = []string{"cpu"}
	p, err = New(cfg, m, sources, make(producer.MessageChan))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cpu": "console1::stdout"}, p.Outputs())

	cfg.MGlobal.Publish.Channels = []string{"mem"}
	_, err = New(cfg, m, sources, make(producer.MessageChan))
	assert.Equal(t, ErrNothingToPublish, err)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewMockConfig()
	m := memory.New(nil)

	cpu := newSource(cfg, m, map[string]interface{}{"name": "cpu", "output": "console1::stdout"})
	ch := make(producer.MessageChan, 1)

	p, err := New(cfg, m, []source.Source{cpu}, ch)
	require.NoError(t, err)

	// no sample yet
	require.NoError(t, p.Update(ctx, "cpu"))
	assert.Len(t, ch, 0)

	require.NoError(t, p.Start(ctx))
	defer p.Cancel()

	ts := time.Unix(1600000000, 0)
	assert.Eventually(t, func() bool {
		m.Push(ctx, "cpu", store.Sample{Time: ts, Value: "42"}, 10)
		return len(ch) > 0
	}, 2*time.Second, 10*time.Millisecond)

	msg := <-ch
	assert.Equal(t, "console1::stdout", msg.Output)
	assert.Equal(t, "cpu", msg.Sample.Channel)
	assert.Equal(t, "42", msg.Sample.Value)
	assert.True(t, ts.Equal(msg.Sample.Time))
}

func TestUpdateCancelled(t *testing.T) {
	cfg := config.NewMockConfig()
	m := memory.New(nil)

	cpu := newSource(cfg, m, map[string]interface{}{"name": "cpu", "output": "console1::stdout"})
	p, err := New(cfg, m, []source.Source{cpu}, make(producer.MessageChan))
	require.NoError(t, err)

	require.NoError(t, m.Push(context.Background(), "cpu", store.Sample{Time: time.Now(), Value: "1"}, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Update(ctx, "cpu"))
	assert.NoError(t, p.Update(ctx, "unknown"))
}
