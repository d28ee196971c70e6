//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package etcd

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/config/yaml"
)

const requestTimeout = 5 * time.Second

type etcd struct {
	client *clientv3.Client
	prefix string

	sources   []config.Source
	producers []config.Producer
	database  config.Database
	defaults  map[string]interface{}
	global    *config.Global

	informer chan struct{}

	logger *zap.Logger
	sync.RWMutex
}

type etcdConfig struct {
	Endpoints       []string
	Prefix          string
	Username        string
	Password        string
	WatcherDisabled bool `yaml:"watcherDisabled"`
}

// New creates an etcd configuration.
// filename is a yaml file with the etcd endpoints and prefix,
// "-" means defaults (local etcd) and environment variables.
func New(filename string) (config.Config, error) {
	var (
		err  error
		eCfg = &etcdConfig{}
		e    = &etcd{informer: make(chan struct{}, 1)}
	)

	if filename != "-" {
		if err := yaml.Read(filename, eCfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("panoptes_dash_config_etcd", eCfg); err != nil {
		return nil, err
	}

	e.prefix = "panoptes-dash/config/"
	if len(eCfg.Prefix) > 0 {
		e.prefix = strings.TrimSuffix(eCfg.Prefix, "/") + "/"
	}

	if len(eCfg.Endpoints) < 1 {
		eCfg.Endpoints = []string{"127.0.0.1:2379"}
	}

	e.client, err = clientv3.New(clientv3.Config{
		Endpoints:   eCfg.Endpoints,
		Username:    eCfg.Username,
		Password:    eCfg.Password,
		DialTimeout: requestTimeout,
	})
	if err != nil {
		return nil, err
	}

	if err = e.getRemoteConfig(); err != nil {
		e.client.Close()
		return nil, err
	}

	if !eCfg.WatcherDisabled {
		go e.watch(e.informer)
	}

	return e, nil
}

func (e *etcd) getRemoteConfig() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	resp, err := e.client.Get(ctx, e.prefix, clientv3.WithPrefix())
	cancel()
	if err != nil {
		return err
	}

	kvs := make(map[string][]byte, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		kvs[string(kv.Key)] = kv.Value
	}

	r, err := config.DecodeRemote(e.prefix, kvs)
	if err != nil {
		return err
	}

	e.Lock()
	defer e.Unlock()

	e.sources = r.Sources
	e.producers = r.Producers
	e.database = r.Database
	e.defaults = r.Defaults
	e.global = r.Global

	if e.logger == nil {
		e.logger = config.GetLogger(r.Global.Logger)
	}

	return nil
}

func (e *etcd) watch(ch chan<- struct{}) {
	rch := e.client.Watch(context.Background(), e.prefix, clientv3.WithPrefix())
	for wresp := range rch {
		for _, ev := range wresp.Events {
			e.logger.Info("config.etcd", zap.String("event", "watcher triggered"), zap.ByteString("key", ev.Kv.Key))
			select {
			case ch <- struct{}{}:
			default:
				e.logger.Info("config.etcd", zap.String("event", "watcher response dropped"))
			}
		}
	}
}

// Sources returns configured sources
func (e *etcd) Sources() []config.Source {
	e.RLock()
	defer e.RUnlock()
	return e.sources
}

// Producers returns configured producers
func (e *etcd) Producers() []config.Producer {
	e.RLock()
	defer e.RUnlock()
	return e.producers
}

// Database returns configured database
func (e *etcd) Database() config.Database {
	e.RLock()
	defer e.RUnlock()
	return e.database
}

// Defaults returns global and kind defaults
func (e *etcd) Defaults() map[string]interface{} {
	e.RLock()
	defer e.RUnlock()
	return e.defaults
}

// Global returns global configuration
func (e *etcd) Global() *config.Global {
	e.RLock()
	defer e.RUnlock()
	return e.global
}

// Informer returns informer channel
func (e *etcd) Informer() chan struct{} {
	return e.informer
}

// Logger returns logging handler
func (e *etcd) Logger() *zap.Logger {
	return e.logger
}

// Update reloads the configuration from etcd
func (e *etcd) Update() error {
	return e.getRemoteConfig()
}
