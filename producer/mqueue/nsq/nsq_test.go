//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package nsq

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

type mockPublisher struct {
	published map[string][][]byte
	fail      int
	stopped   bool
	sync.Mutex
}

func (m *mockPublisher) MultiPublish(topic string, body [][]byte) error {
	m.Lock()
	defer m.Unlock()

	if m.fail > 0 {
		m.fail--
		return errors.New("connection refused")
	}

	for _, b := range body {
		m.published[topic] = append(m.published[topic], append([]byte(nil), b...))
	}

	return nil
}

func (m *mockPublisher) Stop() {
	m.Lock()
	defer m.Unlock()
	m.stopped = true
}

func (m *mockPublisher) get(topic string) [][]byte {
	m.Lock()
	defer m.Unlock()
	return m.published[topic]
}

type messageHandler struct {
	ch chan producer.Sample
}

func (h *messageHandler) HandleMessage(m *nsq.Message) error {
	var s producer.Sample
	json.Unmarshal(m.Body, &s)

	select {
	case h.ch <- s:
	default:
	}

	return nil
}

func TestStartMock(t *testing.T) {
	mCfg := config.NewMockConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mp := &mockPublisher{published: make(map[string][][]byte)}
	ch := make(producer.MessageChan, 1)
	cfg := config.Producer{
		Name:    "nsq01",
		Service: "nsq",
		Config: map[string]interface{}{
			"topics":    []string{"dash", "bgp"},
			"batchSize": 1,
		},
	}

	p := New(ctx, cfg, mCfg.Logger(), ch).(*NSQ)
	p.newPublisher = func(string) (publisher, error) { return mp, nil }
	go p.Start()

	ch <- producer.Message{Output: "nsq01::dash", Sample: producer.Sample{Channel: "cpu", Value: "50"}}
	ch <- producer.Message{Output: "nsq01::unknown", Sample: producer.Sample{Channel: "cpu", Value: "50"}}

	assert.Eventually(t, func() bool { return len(mp.get("dash")) == 1 }, 2*time.Second, 10*time.Millisecond)

	var s producer.Sample
	require.NoError(t, json.Unmarshal(mp.get("dash")[0], &s))
	assert.Equal(t, "cpu", s.Channel)
	assert.Equal(t, "50", s.Value)

	assert.Eventually(t, func() bool { return mCfg.LogOutput.Contains("nsq") }, time.Second, 10*time.Millisecond)
}

func TestGetConfig(t *testing.T) {
	t.Setenv("PANOPTES_DASH_PRODUCER_NSQ01_ADDR", "nsq:4150")

	n := &NSQ{cfg: config.Producer{Name: "nsq01", Config: map[string]interface{}{"topics": []string{"dash"}}}}
	conf, err := n.getConfig()
	require.NoError(t, err)
	assert.Equal(t, "nsq:4150", conf.Addr)
	assert.Equal(t, []string{"dash"}, conf.Topics)
	assert.Equal(t, 100, conf.BatchSize)
	assert.Equal(t, 1, conf.BatchTimeout)
}

func TestStartNSQD(t *testing.T) {
	if _, err := exec.LookPath("nsqd"); err != nil {
		t.Skip("nsqd not available")
	}

	mCfg := config.NewMockConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "nsqd", "-data-path", t.TempDir(), "-tcp-address", "127.0.0.1:4165", "-http-address", "127.0.0.1:4167")
	require.NoError(t, cmd.Start())
	defer cmd.Process.Kill()

	time.Sleep(3 * time.Second)

	ch := make(producer.MessageChan, 1)
	cfg := config.Producer{
		Name:    "nsq01",
		Service: "nsq",
		Config: map[string]interface{}{
			"addr":         "127.0.0.1:4165",
			"topics":       []string{"dash"},
			"batchSize":    1,
			"batchTimeout": 1,
		},
	}

	p := New(ctx, cfg, mCfg.Logger(), ch)
	go p.Start()

	ch <- producer.Message{Output: "nsq01::dash", Sample: producer.Sample{Channel: "cpu", Value: "50"}}

	consumer, err := nsq.NewConsumer("dash", "channel", nsq.NewConfig())
	require.NoError(t, err)
	consumer.SetLogger(&noLogger{}, 0)

	chout := make(chan producer.Sample, 1)
	consumer.AddConcurrentHandlers(&messageHandler{ch: chout}, 1)
	require.NoError(t, consumer.ConnectToNSQD("127.0.0.1:4165"))

	select {
	case v := <-chout:
		assert.Equal(t, "cpu", v.Channel)
	case <-time.After(10 * time.Second):
		assert.Fail(t, "time exceeded")
	}
}

func TestRegister(t *testing.T) {
	r := producer.NewRegistrar(config.NewMockConfig().Logger())
	Register(r)
	_, ok := r.GetProducerFactory("nsq")
	assert.True(t, ok)
}
