//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

type kafkaConfig struct {
	Brokers []string
	Topics  []string

	BatchSize    int
	BatchTimeout int
	MaxAttempts  int
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka represents kafka producer
type Kafka struct {
	ctx context.Context
	cfg config.Producer
	ch  producer.MessageChan
	lg  *zap.Logger

	newWriter func(conf *kafkaConfig, topic string) messageWriter
}

// New constructs an instance of kafka producer
func New(ctx context.Context, cfg config.Producer, lg *zap.Logger, inChan producer.MessageChan) producer.Producer {
	return &Kafka{
		ctx:       ctx,
		cfg:       cfg,
		lg:        lg,
		ch:        inChan,
		newWriter: newWriter,
	}
}

// Register registers kafka as a producer at producer registrar
func Register(producerRegistrar *producer.Registrar) {
	producerRegistrar.Register("kafka", "segment.io", New)
}

// Start sends the samples to the different topics (fan-out).
func (k *Kafka) Start() {
	conf, err := k.getConfig()
	if err != nil {
		k.lg.Error("kafka", zap.Error(err))
		return
	}

	chMap := make(map[string]chan producer.Sample)
	for _, topic := range conf.Topics {
		chMap[topic] = make(chan producer.Sample, conf.BatchSize)
		go k.start(conf, chMap[topic], topic)
	}

	for {
		select {
		case v, ok := <-k.ch:
			if !ok {
				return
			}

			_, topic, ok := producer.ParseOutput(v.Output)
			if !ok {
				k.lg.Error("kafka", zap.String("event", "wrong output"), zap.String("output", v.Output))
				continue
			}

			if ch, ok := chMap[topic]; ok {
				ch <- v.Sample
			} else {
				k.lg.Error("kafka", zap.String("event", "topic not found"), zap.String("name", topic))
			}

		case <-k.ctx.Done():
			k.lg.Info("kafka", zap.String("event", "terminate"), zap.String("brokers", strings.Join(conf.Brokers, ",")))
			return
		}
	}
}

func (k *Kafka) start(conf *kafkaConfig, ch chan producer.Sample, topic string) {
	batch := make([]kafka.Message, 0, conf.BatchSize)
	flushTicker := time.NewTicker(time.Second * time.Duration(conf.BatchTimeout))
	defer flushTicker.Stop()
	flush := false

	w := k.newWriter(conf, topic)
	defer w.Close()

	k.lg.Info("kafka", zap.String("event", "set up"), zap.String("brokers", strings.Join(conf.Brokers, ",")),
		zap.String("topic", topic))

	for {
		select {
		case v := <-ch:
			b, err := json.Marshal(v)
			if err != nil {
				k.lg.Error("kafka", zap.String("event", "marshal"), zap.Error(err))
				continue
			}

			batch = append(batch, kafka.Message{Key: []byte(v.Channel), Value: b})
		case <-flushTicker.C:
			if len(batch) < 1 {
				continue
			}
			flush = true
		case <-k.ctx.Done():
			k.lg.Info("kafka", zap.String("event", "terminate"), zap.String("topic", topic))
			return
		}

		if len(batch) >= conf.BatchSize || flush {
			err := w.WriteMessages(k.ctx, batch...)
			if err != nil {
				k.lg.Error("kafka", zap.String("event", "write"), zap.String("topic", topic), zap.Error(err))
			}

			flush = false
			batch = batch[:0]
		}
	}
}

func (k *Kafka) getConfig() (*kafkaConfig, error) {
	conf := new(kafkaConfig)
	b, err := json.Marshal(k.cfg.Config)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(b, conf); err != nil {
		return nil, err
	}

	prefix := "panoptes_dash_producer_" + k.cfg.Name
	if err := envconfig.Process(prefix, conf); err != nil {
		return nil, err
	}

	if len(conf.Brokers) < 1 {
		conf.Brokers = []string{"127.0.0.1:9092"}
	}

	config.SetDefault(&conf.BatchSize, 100)
	config.SetDefault(&conf.BatchTimeout, 10)
	config.SetDefault(&conf.MaxAttempts, 3)

	return conf, nil
}

func newWriter(conf *kafkaConfig, topic string) messageWriter {
	return &kafka.Writer{
		Addr:        kafka.TCP(conf.Brokers...),
		Topic:       topic,
		Balancer:    &kafka.LeastBytes{},
		MaxAttempts: conf.MaxAttempts,
		BatchSize:   conf.BatchSize,
	}
}
