package foreign

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/haivivi/starside/pkg/value"
)

// HostObject exposes a host object to scripts. Attribute reads return
// property values or bound methods; attribute writes update existing
// properties.
type HostObject struct {
	ref *value.HostObjectRef
	rt  *Runtime
}

var (
	_ starlark.HasSetField = (*HostObject)(nil)
	_ starlark.Comparable  = (*HostObject)(nil)
)

// NewHostObject wraps ref for use in rt.
func NewHostObject(rt *Runtime, ref *value.HostObjectRef) *HostObject {
	return &HostObject{ref: ref, rt: rt}
}

// Ref returns the observed host object reference.
func (o *HostObject) Ref() *value.HostObjectRef { return o.ref }

func (o *HostObject) String() string { return o.ref.String() }
func (o *HostObject) Type() string   { return "host_object" }
func (o *HostObject) Freeze()        {}

func (o *HostObject) Truth() starlark.Bool { return starlark.Bool(o.ref.Alive()) }

func (o *HostObject) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", o.Type())
}

func (o *HostObject) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	same := o.ref.Same(y.(*HostObject).ref)
	switch op {
	case syntax.EQL:
		return same, nil
	case syntax.NEQ:
		return !same, nil
	}
	return false, fmt.Errorf("%s %s %s not implemented", o.Type(), op, y.Type())
}

func (o *HostObject) Attr(name string) (starlark.Value, error) {
	obj := o.ref.Get()
	if obj == nil {
		return nil, value.ErrDestroyed
	}
	if v, ok := obj.Property(name); ok {
		return o.rt.FromHost(v), nil
	}
	if obj.HasMethod(name) {
		return &HostMethod{obj: o, name: name}, nil
	}
	return nil, starlark.NoSuchAttrError(fmt.Sprintf("not a valid attribute: %s", name))
}

func (o *HostObject) AttrNames() []string {
	obj := o.ref.Get()
	if obj == nil {
		return nil
	}
	return obj.Names()
}

func (o *HostObject) SetField(name string, v starlark.Value) error {
	hv := o.rt.ToHost(v)
	err := o.ref.SetProperty(name, hv)
	if err != nil {
		hv.Release()
	}
	if errors.Is(err, value.ErrNoProperty) {
		return starlark.NoSuchAttrError(fmt.Sprintf("property does not exist: %s", name))
	}
	return err
}

// HostMethod is a method of a host object bound for calling from scripts.
type HostMethod struct {
	obj  *HostObject
	name string
}

var _ starlark.Callable = (*HostMethod)(nil)

func (m *HostMethod) Name() string { return m.name }
func (m *HostMethod) String() string {
	return fmt.Sprintf("<host method %s of %s>", m.name, m.obj.String())
}
func (m *HostMethod) Type() string         { return "host_method" }
func (m *HostMethod) Freeze()              {}
func (m *HostMethod) Truth() starlark.Bool { return starlark.True }
func (m *HostMethod) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", m.Type())
}

// CallInternal converts the arguments, invokes the host method with the GIL
// released, and converts the result back.
func (m *HostMethod) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: keyword arguments not supported", m.name)
	}
	method, err := m.obj.ref.Method(m.name)
	if err != nil {
		return nil, err
	}

	rt := m.obj.rt
	hostArgs := make([]value.Value, len(args))
	for i, a := range args {
		hostArgs[i] = rt.ToHost(a)
	}

	depth := rt.gil.Save()
	result, err := method.Call(hostArgs)
	rt.gil.Restore(depth)

	for _, a := range hostArgs {
		a.Release()
	}
	defer result.Release()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	return rt.FromHost(result), nil
}
