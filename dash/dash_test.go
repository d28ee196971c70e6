//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package main

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
	"github.com/yahoo/panoptes-dash/source"
	"github.com/yahoo/panoptes-dash/sources/rate"
	"github.com/yahoo/panoptes-dash/store"
	"github.com/yahoo/panoptes-dash/store/memory"
	"github.com/yahoo/panoptes-dash/store/redis"
)

type ticker struct {
	*source.Timed
	n atomic.Int64
}

func newTicker(b *source.Base) (source.Source, error) {
	t := &ticker{}
	t.Timed = source.NewTimed(b, t)
	return t, nil
}

func (t *ticker) Poll(ctx context.Context) error {
	return t.Push(ctx, strconv.FormatInt(t.n.Add(1), 10))
}

type mockProducer struct {
	ch  producer.MessageChan
	out chan producer.Message
}

func (m *mockProducer) Start() {
	for msg := range m.ch {
		m.out <- msg
	}
}

func newTestDash(cfg *config.MockConfig, out chan producer.Message) *dash {
	lg := cfg.Logger()

	sr := source.NewRegistrar(lg)
	sr.Register("ticker", "-", newTicker)

	str := store.NewRegistrar(lg)
	memory.Register(str)

	pr := producer.NewRegistrar(lg)
	pr.Register("mock", "-", func(_ context.Context, _ config.Producer, _ *zap.Logger, ch producer.MessageChan) producer.Producer {
		return &mockProducer{ch: ch, out: out}
	})

	return newDash(cfg, sr, str, pr)
}

func tickerSource(name string, kv ...interface{}) config.Source {
	c := map[string]interface{}{"name": name, "interval": "10ms"}
	for i := 0; i+1 < len(kv); i += 2 {
		c[kv[i].(string)] = kv[i+1]
	}

	return config.Source{Service: "ticker", Config: c}
}

func TestBuild(t *testing.T) {
	cfg := config.NewMockConfig()
	cfg.MDatabase = config.Database{Service: "memory"}
	cfg.MSources = []config.Source{
		tickerSource("ticks"),
		{Service: "ticker", Config: map[string]interface{}{}},
		{Service: "unknown", Config: map[string]interface{}{"name": "x"}},
	}

	d := newTestDash(cfg, nil)
	require.NoError(t, d.build())
	require.Len(t, d.sources, 1)
	assert.Equal(t, "ticks", d.sources[0].Name())
	assert.Contains(t, cfg.LogOutput.String(), "source kind not exist")
}

func TestBuildNoSource(t *testing.T) {
	cfg := config.NewMockConfig()
	d := newTestDash(cfg, nil)
	assert.Error(t, d.build())
}

func TestBuildDegraded(t *testing.T) {
	cfg := config.NewMockConfig()
	cfg.MDatabase = config.Database{Service: "cassandra"}
	cfg.MSources = []config.Source{tickerSource("ticks")}

	d := newTestDash(cfg, nil)
	require.NoError(t, d.build())
	assert.Len(t, d.sources, 1)
	assert.Len(t, d.stores, 0)
	assert.Contains(t, cfg.LogOutput.String(), "store not exist")
}

func TestStartPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan producer.Message, 10)

	cfg := config.NewMockConfig()
	cfg.MDatabase = config.Database{Service: "memory"}
	cfg.MProducers = []config.Producer{{Name: "mock", Service: "mock"}}
	cfg.MSources = []config.Source{
		tickerSource("ticks", "output", "mock::dash"),
		tickerSource("quiet"),
	}

	d := newTestDash(cfg, out)
	require.NoError(t, d.build())
	require.NoError(t, d.start(ctx))
	defer d.stop()

	require.NotNil(t, d.publisher)
	assert.Equal(t, map[string]string{"ticks": "mock::dash"}, d.publisher.Outputs())

	select {
	case msg := <-out:
		assert.Equal(t, "mock::dash", msg.Output)
		assert.Equal(t, "ticks", msg.Sample.Channel)
		_, err := strconv.Atoi(msg.Sample.Value)
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sample not published")
	}

	assert.Eventually(t, func() bool {
		return len(d.sources[1].Pull(ctx, source.All, "quiet")) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestStoreUpAfterBuild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.NewMockConfig()
	cfg.MDatabase = config.Database{
		Service: "redis",
		Config:  map[string]interface{}{"addr": addr, "dialTimeout": 1, "protocol": 2},
	}
	cfg.MSources = []config.Source{
		tickerSource("tick"),
		{Service: "rate", Config: map[string]interface{}{"name": "tick rate", "source": "tick", "backoff": "10ms"}},
	}

	d := newTestDash(cfg, nil)
	redis.Register(d.storeRegistrar)
	rate.Register(d.sourceRegistrar)

	require.NoError(t, d.build())
	require.Len(t, d.sources, 2)
	assert.Len(t, d.stores, 2)

	mr = miniredis.NewMiniRedis()
	require.NoError(t, mr.StartAddr(addr))
	defer mr.Close()

	require.NoError(t, d.start(ctx))
	defer d.stop()

	assert.Eventually(t, func() bool {
		values, err := mr.List("tick" + store.ValueSuffix)
		return err == nil && len(values) > 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return mr.PubSubNumSub("__keyspace@0__:tick" + store.ValueSuffix)["__keyspace@0__:tick"+store.ValueSuffix] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewMockConfig()
	cfg.MDatabase = config.Database{Service: "memory"}
	cfg.MSources = []config.Source{
		tickerSource("ticks"),
		tickerSource("broken", "interval", "soon"),
	}

	d := newTestDash(cfg, nil)
	require.NoError(t, d.build())

	err := d.start(ctx)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "broken"))
	assert.Equal(t, 1, strings.Count(err.Error(), "broken"))
	assert.Nil(t, d.publisher)

	d.stop()
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewMockConfig()
	cfg.MInformer = make(chan struct{}, 1)

	d := newTestDash(cfg, nil)
	go d.watch(ctx)

	cfg.MInformer <- struct{}{}
	assert.Eventually(t, func() bool {
		return strings.Contains(cfg.LogOutput.String(), "restart required")
	}, time.Second, 5*time.Millisecond)
}

func TestStatus(t *testing.T) {
	cfg := config.NewMockConfig()
	cfg.MGlobal.Status.Addr = "127.0.0.1:0"

	d := newTestDash(cfg, nil)
	d.startStatus()
	require.NotNil(t, d.status)
	assert.NotEmpty(t, d.status.Addr())

	d.stop()

	cfg = config.NewMockConfig()
	cfg.MGlobal.Status.Disabled = true
	d = newTestDash(cfg, nil)
	d.startStatus()
	assert.Nil(t, d.status)
}
