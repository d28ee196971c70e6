//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package influxdb mirrors the published samples to an InfluxDB v2 bucket.
package influxdb

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/producer"
)

// InfluxDB represents influxdb producer
type InfluxDB struct {
	ctx context.Context
	ch  producer.MessageChan
	lg  *zap.Logger
	cfg config.Producer
}

type influxdbConfig struct {
	Server       string
	Token        string
	Org          string
	Bucket       string
	BatchSize    int
	BatchTimeout int
}

// New constructs an instance of influxdb producer
func New(ctx context.Context, cfg config.Producer, lg *zap.Logger, inChan producer.MessageChan) producer.Producer {
	return &InfluxDB{
		ctx: ctx,
		cfg: cfg,
		lg:  lg,
		ch:  inChan,
	}
}

// Register registers influxdb as a producer at producer registrar
func Register(producerRegistrar *producer.Registrar) {
	producerRegistrar.Register("influxdb", "influxdata.com", New)
}

// Start writes the samples in batches, the output topic is the measurement
func (i *InfluxDB) Start() {
	conf, err := i.getConfig()
	if err != nil {
		i.lg.Error("influxdb", zap.Error(err))
		return
	}

	client := influxdb2.NewClient(conf.Server, conf.Token)
	defer client.Close()

	writeAPI := client.WriteAPIBlocking(conf.Org, conf.Bucket)

	i.lg.Info("influxdb", zap.String("event", "set up"), zap.String("name", i.cfg.Name), zap.String("server", conf.Server))

	batch := make([]*write.Point, 0, conf.BatchSize)
	flushTicker := time.NewTicker(time.Second * time.Duration(conf.BatchTimeout))
	defer flushTicker.Stop()

	for {
		select {
		case v, ok := <-i.ch:
			if !ok {
				i.write(writeAPI, batch)
				return
			}

			_, measurement, ok := producer.ParseOutput(v.Output)
			if !ok {
				i.lg.Error("influxdb", zap.String("event", "wrong output"), zap.String("output", v.Output))
				continue
			}

			batch = append(batch, getPoint(measurement, v.Sample))
			if len(batch) < conf.BatchSize {
				continue
			}

		case <-flushTicker.C:
			if len(batch) < 1 {
				continue
			}

		case <-i.ctx.Done():
			i.lg.Info("influxdb", zap.String("event", "terminate"), zap.String("name", i.cfg.Name))
			return
		}

		i.write(writeAPI, batch)
		batch = batch[:0]
	}
}

func (i *InfluxDB) write(writeAPI api.WriteAPIBlocking, batch []*write.Point) {
	if len(batch) < 1 {
		return
	}

	if err := writeAPI.WritePoint(i.ctx, batch...); err != nil {
		i.lg.Error("influxdb", zap.String("event", "write"), zap.Int("points", len(batch)), zap.Error(err))
	}
}

// getPoint returns a point of the sample, numeric values
// are written as float fields.
func getPoint(measurement string, s producer.Sample) *write.Point {
	var value interface{} = s.Value
	if f, err := strconv.ParseFloat(s.Value, 64); err == nil {
		value = f
	}

	return influxdb2.NewPoint(measurement,
		map[string]string{"channel": s.Channel},
		map[string]interface{}{"value": value},
		s.Time)
}

func (i *InfluxDB) getConfig() (*influxdbConfig, error) {
	conf := new(influxdbConfig)
	b, err := json.Marshal(i.cfg.Config)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(b, conf); err != nil {
		return nil, err
	}

	prefix := "panoptes_dash_producer_" + i.cfg.Name
	if err := envconfig.Process(prefix, conf); err != nil {
		return nil, err
	}

	if conf.Server == "" {
		return nil, errors.New("influxdb server not configured")
	}

	config.SetDefault(&conf.BatchSize, 100)
	config.SetDefault(&conf.BatchTimeout, 5)

	return conf, nil
}
