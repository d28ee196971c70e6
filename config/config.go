//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import "go.uber.org/zap"

// Config represents configuration management
type Config interface {
	Sources() []Source
	Producers() []Producer
	Database() Database
	Defaults() map[string]interface{}
	Global() *Global
	Informer() chan struct{}
	Logger() *zap.Logger
	Update() error
}

// Source represents a declarative acquisition instance.
// Service is the registered source kind and Config holds
// the instance-scoped keys (name, silent, typecast, values ...).
type Source struct {
	Service string
	Config  map[string]interface{}
}

// Producer represents a downstream producer
type Producer struct {
	Name    string
	Service string
	Config  interface{}
}

// Database represents the series store connection
type Database struct {
	Service string
	Config  map[string]interface{}
}

// Global represents global configuration
type Global struct {
	Version string

	Status          Status
	Logger          map[string]interface{}
	WatcherDisabled bool `yaml:"watcherDisabled"`
	Publish         Publish
}

// Status represents status (metrics and healthcheck) configuration
type Status struct {
	Addr     string
	Disabled bool
}

// Publish represents downstream publisher configuration
type Publish struct {
	Disabled   bool
	BufferSize int `yaml:"bufferSize"`
	// Channels limits the published channels, empty means all
	Channels []string
	// Output is the default output of the sources without one
	Output string
}
