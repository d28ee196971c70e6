//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package demux routes the published samples to the configured producers.
package demux

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

// Demux represents demultiplexer
type Demux struct {
	ctx    context.Context
	cfg    config.Config
	lg     *zap.Logger
	pr     *producer.Registrar
	inChan producer.MessageChan
	chMap  *messageChanMap
}

type messageChanMap struct {
	ch map[string]producer.MessageChan
	sync.RWMutex
}

// New constructs a demux
func New(ctx context.Context, cfg config.Config, pr *producer.Registrar, inChan producer.MessageChan) *Demux {
	return &Demux{
		ctx:    ctx,
		cfg:    cfg,
		lg:     cfg.Logger(),
		pr:     pr,
		inChan: inChan,
		chMap:  &messageChanMap{ch: make(map[string]producer.MessageChan)},
	}
}

// Init constructs and starts the configured producers
func (d *Demux) Init() error {
	for _, p := range d.cfg.Producers() {
		if d.chMap.exist(p.Name) {
			continue
		}

		pf, ok := d.pr.GetProducerFactory(p.Service)
		if !ok {
			return fmt.Errorf("producer %s: service %s not exist", p.Name, p.Service)
		}

		ch := make(producer.MessageChan, d.cfg.Global().Publish.BufferSize)
		d.chMap.add(p.Name, ch)

		m := pf(d.ctx, p, d.lg, ch)
		go m.Start()

		d.lg.Info("demux", zap.String("event", "producer started"), zap.String("name", p.Name), zap.String("service", p.Service))
	}

	return nil
}

// Start routes the samples based on the output producer name
func (d *Demux) Start() {
	for {
		select {
		case msg, ok := <-d.inChan:
			if !ok {
				return
			}

			name, _, ok := producer.ParseOutput(msg.Output)
			if !ok {
				d.lg.Error("demux", zap.String("error", "output not found"), zap.String("output", msg.Output))
				continue
			}

			ch, ok := d.chMap.get(name)
			if !ok {
				d.lg.Error("demux", zap.String("error", "channel not found"), zap.String("output", msg.Output))
				continue
			}

			select {
			case ch <- msg:
			case <-d.ctx.Done():
				return
			}

		case <-d.ctx.Done():
			return
		}
	}
}

func (m *messageChanMap) add(name string, ch producer.MessageChan) {
	m.Lock()
	defer m.Unlock()
	m.ch[name] = ch
}

func (m *messageChanMap) get(name string) (producer.MessageChan, bool) {
	m.RLock()
	defer m.RUnlock()
	ch, ok := m.ch[name]

	return ch, ok
}

func (m *messageChanMap) exist(name string) bool {
	_, ok := m.get(name)
	return ok
}
