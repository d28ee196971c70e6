//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package source

import (
	"sync"

	"go.uber.org/zap"
)

// Factory is a function that returns a new source of a kind
type Factory func(*Base) (Source, error)

// Registrar represents source kinds factories
type Registrar struct {
	s  map[string]Factory
	lg *zap.Logger
	sync.RWMutex
}

// NewRegistrar creates new registrar
func NewRegistrar(lg *zap.Logger) *Registrar {
	return &Registrar{
		s:  make(map[string]Factory),
		lg: lg,
	}
}

// Register adds new source kind factory
func (r *Registrar) Register(name, vendor string, sf Factory) {
	r.lg.Info("source/register", zap.String("name", name), zap.String("vendor", vendor))
	r.set(name, sf)
}

// GetSourceFactory returns requested source kind factory
func (r *Registrar) GetSourceFactory(name string) (Factory, bool) {
	return r.get(name)
}

func (r *Registrar) set(name string, sf Factory) {
	r.Lock()
	defer r.Unlock()
	r.s[name] = sf
}

func (r *Registrar) get(name string) (Factory, bool) {
	r.RLock()
	defer r.RUnlock()
	v, ok := r.s[name]

	return v, ok
}
