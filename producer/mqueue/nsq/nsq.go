//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package nsq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kelseyhightower/envconfig"
	gonsq "github.com/nsqio/go-nsq"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

type nsqConfig struct {
	Addr         string
	Topics       []string
	BatchSize    int
	BatchTimeout int
}

type publisher interface {
	MultiPublish(topic string, body [][]byte) error
	Stop()
}

type noLogger struct{}

// NSQ represents nsq producer
type NSQ struct {
	ctx    context.Context
	cfg    config.Producer
	ch     producer.MessageChan
	logger *zap.Logger

	newPublisher func(addr string) (publisher, error)
}

// New constructs an instance of NSQ producer.
func New(ctx context.Context, cfg config.Producer, lg *zap.Logger, inChan producer.MessageChan) producer.Producer {
	return &NSQ{
		ctx:          ctx,
		cfg:          cfg,
		ch:           inChan,
		logger:       lg,
		newPublisher: newPublisher,
	}
}

// Register registers nsq as a producer at producer registrar
func Register(producerRegistrar *producer.Registrar) {
	producerRegistrar.Register("nsq", "nsq.io", New)
}

// Start sends the samples to the different topics (fan-out).
func (n *NSQ) Start() {
	chMap := make(map[string]chan producer.Sample)
	config, err := n.getConfig()
	if err != nil {
		n.logger.Error("nsq", zap.Error(err))
		return
	}

	for _, topic := range config.Topics {
		chMap[topic] = make(chan producer.Sample, 1000)

		go func(topic string, ch chan producer.Sample) {
			err := n.start(config, ch, topic)
			if err != nil {
				n.logger.Error("nsq", zap.String("topic", topic), zap.Error(err))
			}
		}(topic, chMap[topic])
	}

	for {
		select {
		case v, ok := <-n.ch:
			if !ok {
				return
			}

			_, topic, ok := producer.ParseOutput(v.Output)
			if !ok {
				n.logger.Error("nsq", zap.String("event", "wrong output"), zap.String("output", v.Output))
				continue
			}

			if ch, ok := chMap[topic]; ok {
				ch <- v.Sample
			} else {
				n.logger.Error("nsq", zap.String("event", "topic not found"), zap.String("name", topic))
			}

		case <-n.ctx.Done():
			n.logger.Info("nsq", zap.String("event", "terminate"))
			return
		}
	}
}

func (n *NSQ) start(config *nsqConfig, ch chan producer.Sample, topic string) error {
	var (
		batch = make([][]byte, 0, config.BatchSize)
		flush = false
	)

	p, err := n.newPublisher(config.Addr)
	if err != nil {
		return err
	}

	flushTicker := time.NewTicker(time.Second * time.Duration(config.BatchTimeout))
	defer flushTicker.Stop()

	for {
		select {
		case v := <-ch:
			b, err := json.Marshal(v)
			if err != nil {
				n.logger.Error("nsq", zap.String("event", "marshal"), zap.Error(err))
				continue
			}
			batch = append(batch, b)

		case <-flushTicker.C:
			if len(batch) < 1 {
				continue
			}
			flush = true

		case <-n.ctx.Done():
			n.logger.Info("nsq", zap.String("event", "terminate"), zap.String("topic", topic))
			if len(batch) > 0 {
				p.MultiPublish(topic, batch)
			}
			p.Stop()
			return nil
		}

		if len(batch) >= config.BatchSize || flush {
			for n.ctx.Err() == nil {
				err := p.MultiPublish(topic, batch)
				if err != nil {
					n.logger.Error("nsq", zap.String("event", "publish"), zap.Error(err))

					// backoff
					time.Sleep(1 * time.Second)
					continue
				}

				break
			}

			flush = false
			batch = batch[:0]
		}
	}
}

func (n *NSQ) getConfig() (*nsqConfig, error) {
	conf := new(nsqConfig)
	b, err := json.Marshal(n.cfg.Config)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(b, conf)
	if err != nil {
		return nil, err
	}

	prefix := "panoptes_dash_producer_" + n.cfg.Name
	err = envconfig.Process(prefix, conf)
	if err != nil {
		return nil, err
	}

	if conf.Addr == "" {
		conf.Addr = "127.0.0.1:4150"
	}

	config.SetDefault(&conf.BatchSize, 100)
	config.SetDefault(&conf.BatchTimeout, 1)

	return conf, nil
}

func newPublisher(addr string) (publisher, error) {
	pConfig := gonsq.NewConfig()
	pConfig.UserAgent = "panoptes-dash"
	pConfig.DialTimeout = 2 * time.Second

	p, err := gonsq.NewProducer(addr, pConfig)
	if err != nil {
		return nil, err
	}
	p.SetLogger(&noLogger{}, 0)

	if err := p.Ping(); err != nil {
		p.Stop()
		return nil, err
	}

	return p, nil
}

func (*noLogger) Output(int, string) error {
	return nil
}
