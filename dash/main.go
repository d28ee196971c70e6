//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/producer"
	"github.com/yahoo/panoptes-dash/register"
	"github.com/yahoo/panoptes-dash/source"
	"github.com/yahoo/panoptes-dash/store"
)

func main() {
	cm, err := getCli(os.Args)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := cm.load()
	if err != nil {
		log.Fatal(err)
	}

	lg := cfg.Logger()
	defer lg.Sync()

	lg.Info("starting ...")

	// store
	storeRegistrar := store.NewRegistrar(lg)
	register.Store(storeRegistrar)

	// source
	sourceRegistrar := source.NewRegistrar(lg)
	register.Source(sourceRegistrar)

	// producer
	producerRegistrar := producer.NewRegistrar(lg)
	register.Producer(producerRegistrar)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d := newDash(cfg, sourceRegistrar, storeRegistrar, producerRegistrar)
	if err := d.build(); err != nil {
		lg.Fatal("dash", zap.Error(err))
	}

	if cm.check {
		lg.Info("dash", zap.String("event", "configuration is valid"), zap.Int("sources", len(d.sources)))
		d.stop()
		return
	}

	d.startStatus()

	if err := d.start(ctx); err != nil {
		lg.Warn("dash", zap.String("event", "started with errors"), zap.Error(err))
	}

	go d.watch(ctx)

	<-ctx.Done()

	lg.Info("shutting down ...")
	d.stop()
}
