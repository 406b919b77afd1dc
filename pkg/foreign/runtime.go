// Package foreign wraps the embedded Starlark runtime: its global lock,
// reference-counted handles to its objects, and the Converter that maps its
// values onto the shared value model.
//
// Every access to Starlark values must happen with the Runtime's GIL held.
package foreign

import (
	"log/slog"
	"reflect"
	"sync"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/convert"
	"github.com/haivivi/starside/pkg/value"
)

// Runtime owns the GIL and the registry of Starlark objects referenced from
// the host.
type Runtime struct {
	gil GIL

	// Registry bookkeeping uses its own mutex so that handles dropped by
	// the garbage collector never wait for the GIL.
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*entry
	index   map[any]uint64

	maxDepth int
	logger   *slog.Logger
	conv     *Converter
}

type entry struct {
	value starlark.Value
	refs  int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxDepth sets the nesting limit used by ToHost and FromHost.
func WithMaxDepth(depth int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = depth
	}
}

// WithLogger sets the logger for conversion diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// NewRuntime creates a Runtime.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		entries:  make(map[uint64]*entry),
		index:    make(map[any]uint64),
		maxDepth: convert.DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.conv = &Converter{rt: rt}
	return rt
}

// GIL returns the runtime's global interpreter lock.
func (rt *Runtime) GIL() *GIL { return &rt.gil }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Converter returns the Starlark side Converter.
func (rt *Runtime) Converter() *Converter { return rt.conv }

// ToHost converts a Starlark value to a host value. The caller holds the
// GIL.
func (rt *Runtime) ToHost(v starlark.Value) value.Value {
	return convert.Convert[starlark.Value, value.Value](v, rt.conv, convert.Host, rt.convertOptions()...)
}

// FromHost converts a host value to a Starlark value. The caller holds the
// GIL.
func (rt *Runtime) FromHost(v value.Value) starlark.Value {
	return convert.Convert[value.Value, starlark.Value](v, convert.Host, rt.conv, rt.convertOptions()...)
}

func (rt *Runtime) convertOptions() []convert.Option {
	return []convert.Option{convert.WithMaxDepth(rt.maxDepth), convert.WithLogger(rt.logger)}
}

// NewRef returns a new handle to v.
func (rt *Runtime) NewRef(v starlark.Value) *Ref {
	rt.gil.Ensure()
	defer rt.gil.Release()
	return newRef(rt, rt.incref(v))
}

// RefCount reports the number of live handles to v.
func (rt *Runtime) RefCount(v starlark.Value) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !identityKeyed(v) {
		n := 0
		for _, e := range rt.entries {
			if sameObject(e.value, v) {
				n += e.refs
			}
		}
		return n
	}
	id, ok := rt.index[v]
	if !ok {
		return 0
	}
	return rt.entries[id].refs
}

// Live reports the number of distinct objects referenced by handles.
func (rt *Runtime) Live() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.entries)
}

func (rt *Runtime) incref(v starlark.Value) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	keyed := identityKeyed(v)
	if keyed {
		if id, ok := rt.index[v]; ok {
			rt.entries[id].refs++
			return id
		}
	}
	rt.nextID++
	id := rt.nextID
	rt.entries[id] = &entry{value: v, refs: 1}
	if keyed {
		rt.index[v] = id
	}
	return id
}

func (rt *Runtime) increfID(id uint64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.entries[id].refs++
}

func (rt *Runtime) decref(id uint64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	e, ok := rt.entries[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(rt.entries, id)
	if identityKeyed(e.value) {
		delete(rt.index, e.value)
	}
}

func (rt *Runtime) lookup(id uint64) starlark.Value {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if e, ok := rt.entries[id]; ok {
		return e.value
	}
	return nil
}

// identityKeyed reports whether v can key the identity index. Slice-backed
// values such as tuples cannot be map keys, and comparable structs may hold
// non-comparable dynamic values; both get one entry per handle instead.
func identityKeyed(v starlark.Value) bool {
	t := reflect.TypeOf(v)
	if t == nil || !t.Comparable() {
		return false
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Array, reflect.Interface:
		return false
	}
	return true
}

func sameObject(a, b starlark.Value) (same bool) {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Slice {
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
