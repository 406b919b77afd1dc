package foreign

import (
	"runtime"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/value"
)

// Ref is an owned, counted reference to a Starlark object held by the
// host. Clone, Assign and Release adjust the runtime's count under the GIL.
// A Ref that becomes unreachable without Release is released by the
// garbage collector.
type Ref struct {
	rt      *Runtime
	id      uint64
	cleanup runtime.Cleanup
}

var _ value.ForeignHandle = (*Ref)(nil)

type refKey struct {
	rt *Runtime
	id uint64
}

func newRef(rt *Runtime, id uint64) *Ref {
	r := &Ref{rt: rt, id: id}
	r.track()
	return r
}

func (r *Ref) track() {
	r.cleanup = runtime.AddCleanup(r, func(k refKey) { k.rt.decref(k.id) }, refKey{r.rt, r.id})
}

// Value returns the referenced object. Using a released Ref is a bridge
// bug and panics.
func (r *Ref) Value() starlark.Value {
	if r == nil || r.id == 0 {
		panic("foreign: use of released Ref")
	}
	return r.rt.lookup(r.id)
}

// Valid reports whether r still holds a reference.
func (r *Ref) Valid() bool { return r != nil && r.id != 0 }

// TypeName returns the Starlark type of the referenced object.
func (r *Ref) TypeName() string {
	if !r.Valid() {
		return "released"
	}
	return r.Value().Type()
}

// Same reports whether h refers to the same Starlark object.
func (r *Ref) Same(h value.ForeignHandle) bool {
	o, ok := h.(*Ref)
	if !ok || !r.Valid() || !o.Valid() || r.rt != o.rt {
		return false
	}
	return r.id == o.id || sameObject(r.Value(), o.Value())
}

// Clone returns a new reference to the same object.
func (r *Ref) Clone() value.ForeignHandle {
	if !r.Valid() {
		return nil
	}
	return r.clone()
}

func (r *Ref) clone() *Ref {
	r.rt.gil.Ensure()
	defer r.rt.gil.Release()
	r.rt.increfID(r.id)
	return newRef(r.rt, r.id)
}

// Assign makes r refer to other's object, dropping r's previous reference.
func (r *Ref) Assign(other *Ref) {
	if r == other {
		return
	}
	if r.Valid() && other.Valid() && r.rt == other.rt && r.id == other.id {
		return
	}
	var rt *Runtime
	var id uint64
	if other.Valid() {
		rt, id = other.rt, other.id
		rt.gil.Do(func() { rt.increfID(id) })
	}
	r.Release()
	if id != 0 {
		r.rt, r.id = rt, id
		r.track()
	}
}

// Release drops the reference. Releasing twice is a no-op.
func (r *Ref) Release() {
	if !r.Valid() {
		return
	}
	r.cleanup.Stop()
	r.rt.gil.Do(func() { r.rt.decref(r.id) })
	r.id = 0
}

func (r *Ref) String() string {
	if !r.Valid() {
		return "<released ref>"
	}
	return "<ref " + r.TypeName() + ">"
}
