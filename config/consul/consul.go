//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package consul

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/config/yaml"
)

type consul struct {
	client *api.Client
	prefix string

	sources   []config.Source
	producers []config.Producer
	database  config.Database
	defaults  map[string]interface{}
	global    *config.Global

	informer chan struct{}
	lastIdx  uint64

	logger *zap.Logger
	sync.RWMutex
}

type consulConfig struct {
	Address         string
	Prefix          string
	Token           string
	WatcherDisabled bool `yaml:"watcherDisabled"`
}

// New constructs consul configuration management.
// filename is a yaml file with the consul address and prefix,
// "-" means defaults (local agent) and environment variables.
func New(filename string) (config.Config, error) {
	var (
		err  error
		cCfg = &consulConfig{}
		c    = &consul{informer: make(chan struct{}, 1)}
	)

	if filename != "-" {
		if err := yaml.Read(filename, cCfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("panoptes_dash_config_consul", cCfg); err != nil {
		return nil, err
	}

	c.prefix = "panoptes-dash/config/"
	if len(cCfg.Prefix) > 0 {
		c.prefix = strings.TrimSuffix(cCfg.Prefix, "/") + "/"
	}

	apiConfig := api.DefaultConfig()
	if len(cCfg.Address) > 0 {
		apiConfig.Address = cCfg.Address
	}
	apiConfig.Token = cCfg.Token

	c.client, err = api.NewClient(apiConfig)
	if err != nil {
		return nil, err
	}

	if err := c.getRemoteConfig(); err != nil {
		return nil, err
	}

	if !cCfg.WatcherDisabled {
		go c.watch()
	}

	return c, nil
}

func (c *consul) getRemoteConfig() error {
	pairs, meta, err := c.client.KV().List(c.prefix, nil)
	if err != nil {
		return err
	}

	kvs := make(map[string][]byte, len(pairs))
	for _, p := range pairs {
		kvs[p.Key] = p.Value
	}

	r, err := config.DecodeRemote(c.prefix, kvs)
	if err != nil {
		return err
	}

	c.Lock()
	defer c.Unlock()

	c.sources = r.Sources
	c.producers = r.Producers
	c.database = r.Database
	c.defaults = r.Defaults
	c.global = r.Global
	c.lastIdx = meta.LastIndex

	if c.logger == nil {
		c.logger = config.GetLogger(r.Global.Logger)
	}

	return nil
}

func (c *consul) watch() {
	opts := &api.QueryOptions{WaitTime: time.Minute}

	for {
		c.RLock()
		opts.WaitIndex = c.lastIdx
		c.RUnlock()

		_, meta, err := c.client.KV().List(c.prefix, opts)
		if err != nil {
			c.logger.Error("config.consul", zap.String("event", "watch"), zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		c.Lock()
		changed := meta.LastIndex != c.lastIdx
		c.lastIdx = meta.LastIndex
		c.Unlock()

		if !changed {
			continue
		}

		select {
		case c.informer <- struct{}{}:
			c.logger.Info("config.consul", zap.String("event", "watcher triggered"))
		default:
			c.logger.Info("config.consul", zap.String("event", "watcher response dropped"))
		}
	}
}

// Sources returns configured sources
func (c *consul) Sources() []config.Source {
	c.RLock()
	defer c.RUnlock()
	return c.sources
}

// Producers returns configured producers
func (c *consul) Producers() []config.Producer {
	c.RLock()
	defer c.RUnlock()
	return c.producers
}

// Database returns configured database
func (c *consul) Database() config.Database {
	c.RLock()
	defer c.RUnlock()
	return c.database
}

// Defaults returns global and kind defaults
func (c *consul) Defaults() map[string]interface{} {
	c.RLock()
	defer c.RUnlock()
	return c.defaults
}

// Global returns global configuration
func (c *consul) Global() *config.Global {
	c.RLock()
	defer c.RUnlock()
	return c.global
}

// Informer returns informer channel
func (c *consul) Informer() chan struct{} {
	return c.informer
}

// Logger returns logging handler
func (c *consul) Logger() *zap.Logger {
	return c.logger
}

// Update reloads the configuration from consul
func (c *consul) Update() error {
	return c.getRemoteConfig()
}
