//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultStatusAddr is the status listener address
	DefaultStatusAddr = "127.0.0.1:8081"
	// DefaultPublishBufferSize is the publisher output buffer
	DefaultPublishBufferSize = 1000
)

// GetLogger tries to create a zap logger based on the user configuration
func GetLogger(lcfg map[string]interface{}) *zap.Logger {
	var cfg zap.Config
	b, err := json.Marshal(lcfg)
	if err != nil {
		return GetDefaultLogger()
	}

	if err := json.Unmarshal(b, &cfg); err != nil {
		return GetDefaultLogger()
	}

	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewProductionEncoderConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = nil
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return GetDefaultLogger()
	}

	return logger
}

// GetDefaultLogger creates default zap logger
func GetDefaultLogger() *zap.Logger {
	var cfg = zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		Encoding:         "console",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = nil
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}

// SetDefault sets a default value for an int
// if it hasn't been configured.
func SetDefault(v *int, d int) {
	if *v == 0 {
		*v = d
	}
}

// SetDefaultGlobal set global default value
func SetDefaultGlobal(g *Global) {
	g.Version = GetVersion()

	if g.Status.Addr == "" {
		g.Status.Addr = DefaultStatusAddr
	}

	SetDefault(&g.Publish.BufferSize, DefaultPublishBufferSize)
}

// SourceValidation validates configured source
func SourceValidation(src Source) error {
	if len(src.Service) < 1 {
		return fmt.Errorf("source: %v doesn't have service", src.Config["name"])
	}

	name, ok := src.Config["name"].(string)
	if !ok || len(name) < 1 {
		return fmt.Errorf("source: %s doesn't have a name", src.Service)
	}

	return nil
}

// SourceKey returns a source name if it's available
func SourceKey(src Source) string {
	if name, ok := src.Config["name"].(string); ok {
		return name
	}

	return ""
}

// Normalize converts a decoded document to plain maps
// with string keys (json/yaml decoders may differ).
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = Normalize(e)
		}
		return t
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = Normalize(e)
		}
		return m
	case []interface{}:
		for i, e := range t {
			t[i] = Normalize(e)
		}
		return t
	}

	return v
}
