//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/demux"
	"github.com/yahoo/panoptes-dash/producer"
	"github.com/yahoo/panoptes-dash/publish"
	"github.com/yahoo/panoptes-dash/source"
	"github.com/yahoo/panoptes-dash/status"
	"github.com/yahoo/panoptes-dash/store"
)

const shutdownTimeout = 5 * time.Second

type dash struct {
	cfg config.Config
	lg  *zap.Logger

	sourceRegistrar   *source.Registrar
	storeRegistrar    *store.Registrar
	producerRegistrar *producer.Registrar

	sources   []source.Source
	stores    []store.Store
	publisher *publish.Publisher
	status    *status.Status
	labels    status.Labels
}

func newDash(cfg config.Config, sr *source.Registrar, str *store.Registrar, pr *producer.Registrar) *dash {
	return &dash{
		cfg:               cfg,
		lg:                cfg.Logger(),
		sourceRegistrar:   sr,
		storeRegistrar:    str,
		producerRegistrar: pr,
		labels:            status.Labels{"version": config.GetVersion()},
	}
}

// openStore returns a store handle, nil means the store couldn't be
// constructed (unknown service or bad configuration) and the caller
// runs degraded. An unreachable server is retried by the store itself.
func (d *dash) openStore() store.Store {
	db := d.cfg.Database()
	if len(db.Service) < 1 {
		db.Service = "redis"
	}

	sf, ok := d.storeRegistrar.GetStoreFactory(db.Service)
	if !ok {
		d.lg.Error("dash", zap.String("event", "store not exist"), zap.String("service", db.Service))
		return nil
	}

	st, err := sf(db, d.lg)
	if err != nil {
		d.lg.Error("dash", zap.String("event", "store failed"), zap.String("service", db.Service), zap.Error(err))
		return nil
	}

	d.stores = append(d.stores, st)

	return st
}

// build constructs the configured sources, a source with
// an invalid configuration is skipped.
func (d *dash) build() error {
	for _, src := range d.cfg.Sources() {
		if err := config.SourceValidation(src); err != nil {
			d.lg.Error("dash", zap.Error(err))
			continue
		}

		sf, ok := d.sourceRegistrar.GetSourceFactory(src.Service)
		if !ok {
			d.lg.Error("dash", zap.String("event", "source kind not exist"),
				zap.String("name", config.SourceKey(src)), zap.String("service", src.Service))
			continue
		}

		b := source.NewBase(src.Service, src, d.cfg.Defaults(), d.openStore(), d.lg)
		s, err := sf(b)
		if err != nil {
			d.lg.Error("dash", zap.String("name", config.SourceKey(src)), zap.Error(err))
			continue
		}

		d.sources = append(d.sources, s)
	}

	if len(d.sources) < 1 {
		return errors.New("no source available")
	}

	return nil
}

// start starts the sources then the publisher
func (d *dash) start(ctx context.Context) error {
	var g errgroup.Group

	for _, s := range d.sources {
		s := s
		g.Go(func() error {
			if err := s.Start(ctx); err != nil {
				d.lg.Error("dash", zap.String("event", "source start failed"), zap.String("name", s.Name()), zap.Error(err))
				return fmt.Errorf("%s: %w", s.Name(), err)
			}

			d.lg.Info("dash", zap.String("event", "source started"), zap.String("name", s.Name()), zap.String("kind", s.Kind()))

			return nil
		})
	}

	err := g.Wait()

	if !d.cfg.Global().Publish.Disabled {
		if perr := d.startPublisher(ctx); perr != nil {
			d.lg.Error("dash", zap.String("event", "publisher failed"), zap.Error(perr))
		}
	}

	return err
}

func (d *dash) startPublisher(ctx context.Context) error {
	ch := make(producer.MessageChan, d.cfg.Global().Publish.BufferSize)

	p, err := publish.New(d.cfg, d.openStore(), d.sources, ch)
	if errors.Is(err, publish.ErrNothingToPublish) {
		d.lg.Info("dash", zap.String("event", "nothing to publish"))
		return nil
	} else if err != nil {
		return err
	}

	dm := demux.New(ctx, d.cfg, d.producerRegistrar, ch)
	if err := dm.Init(); err != nil {
		return err
	}
	go dm.Start()

	if err := p.Start(ctx); err != nil {
		return err
	}

	d.publisher = p

	return nil
}

func (d *dash) startStatus() {
	if d.cfg.Global().Status.Disabled {
		return
	}

	status.Register(d.labels, source.GetStats().Metrics())

	d.status = status.New(d.cfg)
	if err := d.status.Start(); err != nil {
		d.lg.Error("dash", zap.String("event", "status failed"), zap.Error(err))
		d.status = nil
	}
}

// watch informs about configuration changes, the running
// sources aren't reconfigured.
func (d *dash) watch(ctx context.Context) {
	for {
		select {
		case <-d.cfg.Informer():
			if err := d.cfg.Update(); err != nil {
				d.lg.Error("dash", zap.String("event", "configuration update failed"), zap.Error(err))
				continue
			}

			d.lg.Warn("dash", zap.String("event", "configuration changed, restart required"))
		case <-ctx.Done():
			return
		}
	}
}

// stop cancels the sources and closes the store handles
func (d *dash) stop() {
	if d.publisher != nil {
		d.publisher.Cancel()
	}

	for _, s := range d.sources {
		s.Cancel()
	}

	for _, st := range d.stores {
		if err := st.Close(); err != nil {
			d.lg.Warn("dash", zap.String("event", "store close failed"), zap.Error(err))
		}
	}

	if d.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := d.status.Stop(ctx); err != nil {
			d.lg.Warn("dash", zap.String("event", "status stop failed"), zap.Error(err))
		}

		status.Unregister(d.labels, source.GetStats().Metrics())
	}
}
