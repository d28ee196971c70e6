//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package memory implements an in-process series store. It mirrors the
// redis list and keyspace notification semantics and it's shared by all of
// the sources of a process.
package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/store"
)

const notifyBufferSize = 1024

// Memory represents an in-process series store
type Memory struct {
	lists  map[string][]string
	subs   map[*subscription]struct{}
	closed bool

	lg *zap.Logger
	sync.Mutex
}

type subscription struct {
	m    *Memory
	keys map[string]string
	ch   chan string
	done chan struct{}
	once sync.Once
}

// shared is a handle to a Memory which doesn't close it
type shared struct {
	*Memory
}

// New constructs a memory store
func New(lg *zap.Logger) *Memory {
	return &Memory{
		lists: make(map[string][]string),
		subs:  make(map[*subscription]struct{}),
		lg:    lg,
	}
}

// Factory returns a store factory which hands out handles
// to one shared memory store.
func Factory() store.Factory {
	var (
		once sync.Once
		m    *Memory
	)

	return func(_ config.Database, lg *zap.Logger) (store.Store, error) {
		once.Do(func() { m = New(lg) })
		return shared{m}, nil
	}
}

// Register registers memory as a store at store registrar
func Register(storeRegistrar *store.Registrar) {
	storeRegistrar.Register("memory", "-", Factory())
}

// Push prepends the sample and trims both of the lists
func (m *Memory) Push(ctx context.Context, name string, s store.Sample, length int) error {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return store.Unavailable(store.ErrClosed)
	}

	m.lpush(name+store.TimestampSuffix, store.FormatTime(s.Time))
	m.ltrim(name+store.TimestampSuffix, length)
	m.lpush(name+store.ValueSuffix, s.Value)
	m.ltrim(name+store.ValueSuffix, length)

	return nil
}

// Range returns up to n newest samples
func (m *Memory) Range(ctx context.Context, name string, n int) ([]store.Sample, error) {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return nil, store.Unavailable(store.ErrClosed)
	}

	return store.Zip(
		m.lrange(name+store.TimestampSuffix, n),
		m.lrange(name+store.ValueSuffix, n),
	)
}

// LPush prepends a raw value to a list
func (m *Memory) LPush(key, value string) {
	m.Lock()
	defer m.Unlock()
	m.lpush(key, value)
}

// LTrim keeps the first length elements of a list
func (m *Memory) LTrim(key string, length int) {
	m.Lock()
	defer m.Unlock()
	m.ltrim(key, length)
}

// Subscribe subscribes to value-append notifications
func (m *Memory) Subscribe(ctx context.Context, names []string) (store.Subscription, error) {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return nil, store.Unavailable(store.ErrClosed)
	}

	s := &subscription{
		m:    m,
		keys: make(map[string]string, len(names)),
		ch:   make(chan string, notifyBufferSize),
		done: make(chan struct{}),
	}

	for _, name := range names {
		s.keys[name+store.ValueSuffix] = name
	}

	m.subs[s] = struct{}{}

	return s, nil
}

// Close closes the store and all of the subscriptions
func (m *Memory) Close() error {
	m.Lock()
	subs := m.subs
	m.subs = make(map[*subscription]struct{})
	m.closed = true
	m.Unlock()

	for s := range subs {
		s.close()
	}

	return nil
}

// Close doesn't close the shared store
func (shared) Close() error {
	return nil
}

func (m *Memory) lpush(key, value string) {
	m.lists[key] = append([]string{value}, m.lists[key]...)
	m.notify(key, "lpush")
}

func (m *Memory) ltrim(key string, length int) {
	if l := m.lists[key]; length > 0 && len(l) > length {
		m.lists[key] = l[:length:length]
	}
	m.notify(key, "ltrim")
}

func (m *Memory) lrange(key string, n int) []string {
	l := m.lists[key]
	if n > 0 && n < len(l) {
		l = l[:n]
	}

	out := make([]string, len(l))
	copy(out, l)

	return out
}

// notify delivers value-append events, lock must be held
func (m *Memory) notify(key, event string) {
	if event != "lpush" {
		return
	}

	for s := range m.subs {
		name, ok := s.keys[key]
		if !ok {
			continue
		}

		select {
		case s.ch <- name:
		default:
			if m.lg != nil {
				m.lg.Warn("memory", zap.String("event", "notification dropped"), zap.String("name", name))
			}
		}
	}
}

func (s *subscription) Receive(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		return "", store.ErrClosed
	default:
	}

	select {
	case name := <-s.ch:
		return name, nil
	case <-s.done:
		return "", store.ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *subscription) Close() error {
	s.m.Lock()
	delete(s.m.subs, s)
	s.m.Unlock()

	s.close()

	return nil
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.done) })
}
