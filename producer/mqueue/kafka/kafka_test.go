//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

type mockWriter struct {
	msgs []kafka.Message
	err  error
	sync.Mutex
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Lock()
	defer m.Unlock()

	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)

	return nil
}

func (m *mockWriter) Close() error { return nil }

func (m *mockWriter) get() []kafka.Message {
	m.Lock()
	defer m.Unlock()
	return append([]kafka.Message(nil), m.msgs...)
}

func TestStartMock(t *testing.T) {
	mCfg := config.NewMockConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writers := map[string]*mockWriter{"topic1": {}, "topic2": {err: errors.New("leader not available")}}

	cfg := config.Producer{
		Name:    "kafka01",
		Service: "kafka",
		Config: map[string]interface{}{
			"Topics":    []string{"topic1", "topic2"},
			"BatchSize": 1,
		},
	}

	ch := make(producer.MessageChan)
	p := New(ctx, cfg, mCfg.Logger(), ch).(*Kafka)
	p.newWriter = func(_ *kafkaConfig, topic string) messageWriter { return writers[topic] }
	go p.Start()

	ch <- producer.Message{Output: "kafka01::topic1", Sample: producer.Sample{Channel: "cpu", Value: "50"}}
	ch <- producer.Message{Output: "kafka01::topic2", Sample: producer.Sample{Channel: "cpu", Value: "50"}}

	assert.Eventually(t, func() bool { return len(writers["topic1"].get()) == 1 }, 2*time.Second, 10*time.Millisecond)

	msg := writers["topic1"].get()[0]
	assert.Equal(t, "cpu", string(msg.Key))

	var s producer.Sample
	require.NoError(t, json.Unmarshal(msg.Value, &s))
	assert.Equal(t, "50", s.Value)

	assert.Eventually(t, func() bool {
		for _, l := range mCfg.LogOutput.UnmarshalSlice() {
			if l["event"] == "write" && l["topic"] == "topic2" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestKafkaBroker(t *testing.T) {
	seedBroker := sarama.NewMockBroker(t, 1)
	defer seedBroker.Close()

	seedBroker.SetHandlerByMap(map[string]sarama.MockResponse{
		"ApiVersionsRequest": sarama.NewMockApiVersionsResponse(t),
		"MetadataRequest": sarama.NewMockMetadataResponse(t).
			SetBroker(seedBroker.Addr(), seedBroker.BrokerID()).
			SetLeader("topic1", 0, seedBroker.BrokerID()),
		"ProduceRequest": sarama.NewMockProduceResponse(t),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.Producer{
		Name:    "kafka01",
		Service: "kafka",
		Config: map[string]interface{}{
			"Brokers":     []string{seedBroker.Addr()},
			"Topics":      []string{"topic1"},
			"BatchSize":   1,
			"MaxAttempts": 1,
		},
	}

	ch := make(producer.MessageChan)
	p := New(ctx, cfg, config.NewMockConfig().Logger(), ch)
	go p.Start()

	ch <- producer.Message{Output: "kafka01::topic1", Sample: producer.Sample{Channel: "cpu", Value: "1"}}

	assert.Eventually(t, func() bool { return len(seedBroker.History()) > 0 }, 4*time.Second, 50*time.Millisecond)
}

func TestGetConfig(t *testing.T) {
	k := &Kafka{cfg: config.Producer{Name: "kafka01", Config: map[string]interface{}{"topics": []string{"dash"}}}}
	conf, err := k.getConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:9092"}, conf.Brokers)
	assert.Equal(t, []string{"dash"}, conf.Topics)
	assert.Equal(t, 100, conf.BatchSize)
	assert.Equal(t, 3, conf.MaxAttempts)
}

func TestRegister(t *testing.T) {
	r := producer.NewRegistrar(config.NewMockConfig().Logger())
	Register(r)
	_, ok := r.GetProducerFactory("kafka")
	assert.True(t, ok)
}
