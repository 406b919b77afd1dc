package value

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"
	"weak"
)

// Sentinel errors for host object access.
var (
	// ErrDestroyed is returned when the observed host object no longer exists.
	ErrDestroyed = errors.New("value: referenced host object was destroyed")

	// ErrNoProperty is returned for reads and writes of unknown properties.
	ErrNoProperty = errors.New("value: property does not exist")

	// ErrNoMethod is returned when invoking an unknown method.
	ErrNoMethod = errors.New("value: method not found")
)

// HostObject is the capability surface of a host GUI object as seen by
// scripts: named properties, invokable methods, and a destruction signal.
type HostObject interface {
	// ObjectName identifies the object in diagnostics.
	ObjectName() string

	// Names lists property and method names.
	Names() []string

	// Property returns the current value of a property.
	Property(name string) (Value, bool)

	// SetProperty writes an existing property.
	SetProperty(name string, v Value) error

	// HasMethod reports whether Invoke would find a method called name.
	HasMethod(name string) bool

	// Invoke calls a method with positional arguments.
	Invoke(method string, args []Value) (Value, error)

	// OnDestroyed registers fn to run once when the object is destroyed
	// and returns a function that unregisters it.
	OnDestroyed(fn func()) (cancel func())
}

// Method is the Go implementation of a host object method. args are
// borrowed for the duration of the call; the result is owned by the caller.
type Method func(args []Value) (Value, error)

// Object is an in-process HostObject backed by a property map and a method
// table. It is safe for concurrent use.
type Object struct {
	name string

	mu        sync.Mutex
	props     map[string]Value
	methods   map[string]Method
	watchers  map[uint64]func()
	nextID    uint64
	destroyed bool
}

// NewObject creates an empty host object.
func NewObject(name string) *Object {
	return &Object{
		name:     name,
		props:    make(map[string]Value),
		methods:  make(map[string]Method),
		watchers: make(map[uint64]func()),
	}
}

// DefineProperty adds or replaces a property and returns o for chaining.
func (o *Object) DefineProperty(name string, v Value) *Object {
	o.mu.Lock()
	o.props[name] = v
	o.mu.Unlock()
	return o
}

// DefineMethod adds or replaces a method and returns o for chaining.
func (o *Object) DefineMethod(name string, fn Method) *Object {
	o.mu.Lock()
	o.methods[name] = fn
	o.mu.Unlock()
	return o
}

func (o *Object) ObjectName() string { return o.name }

func (o *Object) Names() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := slices.Collect(maps.Keys(o.props))
	names = slices.AppendSeq(names, maps.Keys(o.methods))
	slices.Sort(names)
	return names
}

func (o *Object) Property(name string) (Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.props[name]
	return v, ok
}

func (o *Object) SetProperty(name string, v Value) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.props[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoProperty, name)
	}
	o.props[name] = v
	return nil
}

func (o *Object) HasMethod(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.methods[name]
	return ok
}

func (o *Object) Invoke(method string, args []Value) (Value, error) {
	o.mu.Lock()
	fn, ok := o.methods[method]
	o.mu.Unlock()
	if !ok {
		return None(), fmt.Errorf("%w: %s", ErrNoMethod, method)
	}
	return fn(args)
}

func (o *Object) OnDestroyed(fn func()) (cancel func()) {
	o.mu.Lock()
	if o.destroyed {
		o.mu.Unlock()
		fn()
		return func() {}
	}
	o.nextID++
	id := o.nextID
	o.watchers[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.watchers, id)
		o.mu.Unlock()
	}
}

// Destroy marks the object destroyed and notifies every observer.
// Subsequent calls are no-ops.
func (o *Object) Destroy() {
	o.mu.Lock()
	if o.destroyed {
		o.mu.Unlock()
		return
	}
	o.destroyed = true
	watchers := o.watchers
	o.watchers = nil
	o.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
}

// HostObjectRef observes a HostObject without owning it. Once the object is
// destroyed, Get returns nil and every accessor fails with ErrDestroyed.
type HostObjectRef struct {
	mu  sync.RWMutex
	obj HostObject
}

// NewHostObjectRef starts observing obj.
//
// The destruction watcher holds the ref weakly, so an unreachable ref does
// not keep its watcher registered on a long-lived object.
func NewHostObjectRef(obj HostObject) *HostObjectRef {
	r := &HostObjectRef{obj: obj}
	if obj == nil {
		return r
	}
	wr := weak.Make(r)
	cancel := obj.OnDestroyed(func() {
		if r := wr.Value(); r != nil {
			r.mu.Lock()
			r.obj = nil
			r.mu.Unlock()
		}
	})
	runtime.AddCleanup(r, func(cancel func()) { cancel() }, cancel)
	return r
}

// Get returns the observed object, or nil once it has been destroyed.
func (r *HostObjectRef) Get() HostObject {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.obj
}

// Alive reports whether the observed object still exists.
func (r *HostObjectRef) Alive() bool { return r.Get() != nil }

// Same reports whether r and o observe the same live object.
func (r *HostObjectRef) Same(o *HostObjectRef) bool {
	if r == o {
		return true
	}
	a, b := r.Get(), o.Get()
	return a != nil && a == b
}

// Property reads a property of the observed object.
func (r *HostObjectRef) Property(name string) (Value, error) {
	obj := r.Get()
	if obj == nil {
		return None(), ErrDestroyed
	}
	v, ok := obj.Property(name)
	if !ok {
		return None(), fmt.Errorf("%w: %s", ErrNoProperty, name)
	}
	return v, nil
}

// SetProperty writes a property of the observed object.
func (r *HostObjectRef) SetProperty(name string, v Value) error {
	obj := r.Get()
	if obj == nil {
		return ErrDestroyed
	}
	return obj.SetProperty(name, v)
}

// Method returns a reference to a method of the observed object.
func (r *HostObjectRef) Method(name string) (*MethodRef, error) {
	obj := r.Get()
	if obj == nil {
		return nil, ErrDestroyed
	}
	if !obj.HasMethod(name) {
		return nil, fmt.Errorf("%w: %s", ErrNoMethod, name)
	}
	return &MethodRef{Object: r, Name: name}, nil
}

func (r *HostObjectRef) String() string {
	obj := r.Get()
	if obj == nil {
		return "<destroyed host object>"
	}
	return fmt.Sprintf("<host object %s>", obj.ObjectName())
}

// MethodRef is a method name bound to an observed host object. It is valid
// only while the object is alive.
type MethodRef struct {
	Object *HostObjectRef
	Name   string
}

// Call invokes the method.
func (m *MethodRef) Call(args []Value) (Value, error) {
	obj := m.Object.Get()
	if obj == nil {
		return None(), ErrDestroyed
	}
	return obj.Invoke(m.Name, args)
}

func (m *MethodRef) String() string {
	obj := m.Object.Get()
	if obj == nil {
		return fmt.Sprintf("<host method %q bound to destroyed object>", m.Name)
	}
	return fmt.Sprintf("<host method %q bound to %s>", m.Name, obj.ObjectName())
}
