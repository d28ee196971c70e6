//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package yaml

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	yml "gopkg.in/yaml.v3"

	"github.com/yahoo/panoptes-dash/config"
)

// yaml represents yaml configuration management
type yaml struct {
	filename  string
	sources   []config.Source
	producers []config.Producer
	database  config.Database
	defaults  map[string]interface{}
	global    *config.Global

	informer chan struct{}

	logger *zap.Logger
	sync.RWMutex
}

type producer struct {
	Service    string                 `yaml:"service"`
	ConfigFile string                 `yaml:"configFile"`
	Config     map[string]interface{} `yaml:"config"`
}

type yamlConfig struct {
	Database  config.Database
	Defaults  map[string]interface{}
	Sources   []config.Source
	Producers map[string]producer

	config.Global `yaml:",inline"`
}

// New constructs yaml configuration management
func New(filename string) (config.Config, error) {
	yamlCfg := &yamlConfig{}
	if err := Read(filename, yamlCfg); err != nil {
		return &yaml{}, err
	}

	y := &yaml{
		filename: filename,
		logger:   config.GetLogger(yamlCfg.Global.Logger),
		informer: make(chan struct{}, 1),
	}

	if err := y.load(yamlCfg); err != nil {
		return y, err
	}

	if !yamlCfg.Global.WatcherDisabled {
		go func() {
			if err := y.watcher(); err != nil {
				y.logger.Error("yaml", zap.String("event", "watcher"), zap.Error(err))
			}
		}()
	}

	return y, nil
}

// Update reads yaml file
func (y *yaml) Update() error {
	yamlCfg := &yamlConfig{}

	if err := Read(y.filename, yamlCfg); err != nil {
		return err
	}

	return y.load(yamlCfg)
}

func (y *yaml) load(yamlCfg *yamlConfig) error {
	producers, err := y.getProducers(yamlCfg.Producers)
	if err != nil {
		return err
	}

	y.Lock()
	defer y.Unlock()

	y.sources = y.getSources(yamlCfg.Sources)
	y.producers = producers
	y.database = y.getDatabase(yamlCfg.Database)
	y.defaults = yamlCfg.Defaults
	y.global = y.getGlobal(&yamlCfg.Global)

	if y.defaults == nil {
		y.defaults = make(map[string]interface{})
	}

	config.Normalize(y.defaults)

	return nil
}

// Sources returns configured sources
func (y *yaml) Sources() []config.Source {
	y.RLock()
	defer y.RUnlock()
	return y.sources
}

// Producers returns configured producers
func (y *yaml) Producers() []config.Producer {
	y.RLock()
	defer y.RUnlock()
	return y.producers
}

// Database returns configured database
func (y *yaml) Database() config.Database {
	y.RLock()
	defer y.RUnlock()
	return y.database
}

// Defaults returns global and kind defaults
func (y *yaml) Defaults() map[string]interface{} {
	y.RLock()
	defer y.RUnlock()
	return y.defaults
}

// Global returns global configuration
func (y *yaml) Global() *config.Global {
	y.RLock()
	defer y.RUnlock()
	return y.global
}

// Logger returns logging handler
func (y *yaml) Logger() *zap.Logger {
	return y.logger
}

// Informer returns informer channel
func (y *yaml) Informer() chan struct{} {
	return y.informer
}

// Read reads a file and deserialization data
func Read(filename string, c interface{}) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yml.Unmarshal(b, c)
}

func (y *yaml) getSources(s []config.Source) []config.Source {
	var (
		sources = []config.Source{}
		names   = make(map[string]bool)
	)

	for _, src := range s {
		if err := config.SourceValidation(src); err != nil {
			y.logger.Error("yaml", zap.Error(err))
			continue
		}

		name := config.SourceKey(src)
		if names[name] {
			y.logger.Error("yaml", zap.String("msg", "duplicate source"), zap.String("name", name))
			continue
		}

		names[name] = true
		config.Normalize(src.Config)
		sources = append(sources, src)
	}

	return sources
}

func (y *yaml) getProducers(p map[string]producer) ([]config.Producer, error) {
	var producers []config.Producer

	for name, pConfig := range p {
		var cfg interface{} = pConfig.Config

		if pConfig.ConfigFile != "" {
			var fileCfg map[string]interface{}
			if err := Read(pConfig.ConfigFile, &fileCfg); err != nil {
				y.logger.Error("yaml", zap.Error(err), zap.String("file", pConfig.ConfigFile))
				return nil, err
			}
			cfg = fileCfg
		}

		producers = append(producers, config.Producer{
			Name:    name,
			Service: pConfig.Service,
			Config:  config.Normalize(cfg),
		})
	}

	return producers, nil
}

func (y *yaml) getDatabase(d config.Database) config.Database {
	if d.Service == "" {
		y.logger.Warn("yaml", zap.String("msg", "no database config found, falling back to defaults"))
		d.Service = "redis"
	}

	if d.Config == nil {
		d.Config = make(map[string]interface{})
	}

	config.Normalize(d.Config)

	return d
}

func (y *yaml) getGlobal(g *config.Global) *config.Global {
	if err := envconfig.Process("panoptes_dash", g); err != nil {
		y.logger.Error("yaml", zap.String("event", "envconfig"), zap.Error(err))
	}

	config.SetDefaultGlobal(g)

	return g
}

func (y *yaml) watcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&fsnotify.Write == fsnotify.Write {
					select {
					case y.informer <- struct{}{}:
					default:
					}

					y.logger.Info("watcher.loop", zap.String("name", event.Name))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				y.logger.Error("watcher.loop", zap.Error(err))
			}
		}
	}()

	err = watcher.Add(y.filename)
	if err != nil {
		return err
	}

	<-done

	return nil
}
