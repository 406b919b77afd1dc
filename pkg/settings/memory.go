package settings

import (
	"context"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/haivivi/starside/pkg/value"
)

// Memory is an in-memory Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	opts *Options
}

// NewMemory creates an empty in-memory Store. opts may be nil.
func NewMemory(opts *Options) *Memory {
	return &Memory{data: make(map[string][]byte), opts: opts}
}

func (m *Memory) Get(_ context.Context, key Key) (value.Value, error) {
	k, err := m.opts.encode(key)
	if err != nil {
		return value.None(), err
	}
	m.mu.RLock()
	b, ok := m.data[string(k)]
	m.mu.RUnlock()
	if !ok {
		return value.None(), ErrNotFound
	}
	return decodeValue(b)
}

func (m *Memory) Set(_ context.Context, key Key, v value.Value) error {
	k, err := m.opts.encode(key)
	if err != nil {
		return err
	}
	b, err := encodeValue(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[string(k)] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	k, err := m.opts.encode(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, string(k))
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p, err := m.opts.prefix(prefix)
	if err != nil {
		return func(yield func(Entry, error) bool) { yield(Entry{}, err) }
	}

	m.mu.RLock()
	snapshot := make(map[string][]byte)
	for k, b := range m.data {
		if strings.HasPrefix(k, string(p)) {
			snapshot[k] = b
		}
	}
	m.mu.RUnlock()

	return func(yield func(Entry, error) bool) {
		for _, k := range slices.Sorted(maps.Keys(snapshot)) {
			v, err := decodeValue(snapshot[k])
			if !yield(Entry{Key: m.opts.decode([]byte(k)), Value: v}, err) {
				return
			}
		}
	}
}

func (m *Memory) BatchSet(_ context.Context, entries []Entry) error {
	encoded := make(map[string][]byte, len(entries))
	for _, e := range entries {
		k, err := m.opts.encode(e.Key)
		if err != nil {
			return err
		}
		b, err := encodeValue(e.Value)
		if err != nil {
			return err
		}
		encoded[string(k)] = b
	}
	m.mu.Lock()
	maps.Copy(m.data, encoded)
	m.mu.Unlock()
	return nil
}

func (m *Memory) BatchDelete(_ context.Context, keys []Key) error {
	encoded := make([]string, len(keys))
	for i, key := range keys {
		k, err := m.opts.encode(key)
		if err != nil {
			return err
		}
		encoded[i] = string(k)
	}
	m.mu.Lock()
	for _, k := range encoded {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
