//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MockConfig represents mock configuration
type MockConfig struct {
	MSources   []Source
	MProducers []Producer
	MDatabase  Database
	MDefaults  map[string]interface{}
	MGlobal    *Global

	MInformer chan struct{}

	LogOutput *MemSink

	logger *zap.Logger
}

// MemSink repesents memory destination for logging
type MemSink struct {
	buf bytes.Buffer
	sync.Mutex
}

// NewMockConfig constructs mock configuration
// it writes logs to memory and accessable from LogOutput.
func NewMockConfig() *MockConfig {
	m := &MockConfig{
		MGlobal:   &Global{},
		LogOutput: &MemSink{},
	}

	SetDefaultGlobal(m.MGlobal)

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig()),
		m.LogOutput,
		zapcore.DebugLevel,
	)

	m.logger = zap.New(core)

	return m
}

// Sources returns configured sources
func (m *MockConfig) Sources() []Source {
	return m.MSources
}

// Producers returns configured producers
func (m *MockConfig) Producers() []Producer {
	return m.MProducers
}

// Database returns configured database
func (m *MockConfig) Database() Database {
	return m.MDatabase
}

// Defaults returns configured defaults
func (m *MockConfig) Defaults() map[string]interface{} {
	return m.MDefaults
}

// Global returns global configuration
func (m *MockConfig) Global() *Global {
	return m.MGlobal
}

// Informer returns informer channel
func (m *MockConfig) Informer() chan struct{} {
	return m.MInformer
}

// Update doesn't do anything
func (m *MockConfig) Update() error {
	return nil
}

// Logger returns logging handler
func (m *MockConfig) Logger() *zap.Logger {
	return m.logger
}

// Write appends a log entry
func (s *MemSink) Write(p []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	return s.buf.Write(p)
}

// Sync doesn't do anything
func (s *MemSink) Sync() error { return nil }

// Close doesn't do anything
func (s *MemSink) Close() error { return nil }

// Reset drops all of the log entries
func (s *MemSink) Reset() {
	s.Lock()
	defer s.Unlock()
	s.buf.Reset()
}

// String returns the raw log output
func (s *MemSink) String() string {
	s.Lock()
	defer s.Unlock()
	return s.buf.String()
}

// Unmarshal returns the first log entry and resets the sink
func (s *MemSink) Unmarshal() map[string]string {
	defer s.Reset()
	v := make(map[string]string)
	for _, e := range s.UnmarshalSlice() {
		return e
	}

	return v
}

// UnmarshalSlice returns all of the log entries.
// non-string fields are skipped.
func (s *MemSink) UnmarshalSlice() []map[string]string {
	var entries []map[string]string

	scanner := bufio.NewScanner(bytes.NewBufferString(s.String()))
	for scanner.Scan() {
		raw := make(map[string]interface{})
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			continue
		}

		e := make(map[string]string)
		for k, v := range raw {
			if str, ok := v.(string); ok {
				e[k] = str
			}
		}
		entries = append(entries, e)
	}

	return entries
}

// Contains returns true if a log entry has the message
func (s *MemSink) Contains(msg string) bool {
	for _, e := range s.UnmarshalSlice() {
		if e["M"] == msg {
			return true
		}
	}

	return false
}
