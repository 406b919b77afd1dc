package foreign

import (
	"fmt"
	"iter"
	"slices"
	"time"

	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/convert"
	"github.com/haivivi/starside/pkg/value"
)

// Converter maps Starlark values onto the value model. Values without a
// native host representation classify as TagForeign and cross the bridge
// as Refs.
type Converter struct {
	rt *Runtime
}

var (
	_ convert.Converter[starlark.Value]  = (*Converter)(nil)
	_ convert.Identifier[starlark.Value] = (*Converter)(nil)
)

func (c *Converter) Classify(v starlark.Value) value.Tag {
	switch v := v.(type) {
	case nil, starlark.NoneType:
		return value.TagNone
	case *HostObject:
		return value.TagHost
	case *HostMethod:
		c.rt.logger.Warn("foreign: host methods cannot be converted, using None", "method", v.Name())
		return value.TagNone
	case starlark.Bool:
		return value.TagBoolean
	case starlark.Int:
		if _, ok := v.Int64(); ok {
			return value.TagInteger
		}
		return value.TagForeign
	case starlark.Float:
		return value.TagFloating
	case starlark.String, starlark.Bytes:
		return value.TagString
	case Date:
		return value.TagDate
	case TimeOfDay:
		return value.TagTime
	case DateTime, starlarktime.Time:
		return value.TagDateTime
	case *starlark.List, starlark.Tuple, *starlark.Set:
		return value.TagList
	case *starlark.Dict:
		return value.TagDict
	case starlark.Sequence:
		// range() and other lazily materialized sequences.
		return value.TagList
	}
	return value.TagForeign
}

func (c *Converter) AsInteger(v starlark.Value) int64 {
	i, _ := v.(starlark.Int).Int64()
	return i
}

func (c *Converter) AsFloating(v starlark.Value) float64 {
	f, _ := starlark.AsFloat(v)
	return f
}

func (c *Converter) AsBoolean(v starlark.Value) bool { return bool(v.Truth()) }

func (c *Converter) AsString(v starlark.Value) string {
	switch v := v.(type) {
	case starlark.String:
		return string(v)
	case starlark.Bytes:
		return string(v)
	case nil:
		return "None"
	}
	return v.String()
}

func (c *Converter) AsDate(v starlark.Value) value.Date { return v.(Date).Date }

func (c *Converter) AsTime(v starlark.Value) value.Time { return v.(TimeOfDay).Time }

func (c *Converter) AsDateTime(v starlark.Value) value.DateTime {
	switch v := v.(type) {
	case DateTime:
		return v.DateTime
	case starlarktime.Time:
		return value.DateTimeFromTime(time.Time(v))
	}
	return value.DateTime{}
}

func (c *Converter) AsForeignHandle(v starlark.Value) value.ForeignHandle {
	return c.rt.NewRef(v)
}

func (c *Converter) AsHostHandle(v starlark.Value) *value.HostObjectRef {
	return v.(*HostObject).ref
}

// IterateList snapshots the elements so that scripts observing the source
// later are not affected by iteration state.
func (c *Converter) IterateList(v starlark.Value) (iter.Seq[starlark.Value], error) {
	var items []starlark.Value
	switch v := v.(type) {
	case *starlark.List:
		items = make([]starlark.Value, v.Len())
		for i := range items {
			items[i] = v.Index(i)
		}
	case starlark.Tuple:
		items = slices.Clone(v)
	case starlark.Iterable:
		it := v.Iterate()
		defer it.Done()
		var x starlark.Value
		for it.Next(&x) {
			items = append(items, x)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not iterable", convert.ErrMalformed, typeName(v))
	}
	return slices.Values(items), nil
}

// IdentityOf keys mutable containers by pointer so that Convert can stop
// at cycles.
func (c *Converter) IdentityOf(v starlark.Value) (any, bool) {
	switch v := v.(type) {
	case *starlark.List, *starlark.Dict, *starlark.Set:
		return v, true
	}
	return nil, false
}

func (c *Converter) IterateDict(v starlark.Value) (iter.Seq2[starlark.Value, starlark.Value], error) {
	d, ok := v.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a dict", convert.ErrMalformed, typeName(v))
	}
	entries := d.Items()
	return func(yield func(starlark.Value, starlark.Value) bool) {
		for _, kv := range entries {
			if !yield(kv[0], kv[1]) {
				return
			}
		}
	}, nil
}

func (c *Converter) None() starlark.Value                  { return starlark.None }
func (c *Converter) FromInteger(i int64) starlark.Value    { return starlark.MakeInt64(i) }
func (c *Converter) FromFloating(f float64) starlark.Value { return starlark.Float(f) }
func (c *Converter) FromBoolean(b bool) starlark.Value     { return starlark.Bool(b) }
func (c *Converter) FromString(s string) starlark.Value    { return starlark.String(s) }

func (c *Converter) FromDate(d value.Date) starlark.Value { return Date{d} }

func (c *Converter) FromTime(t value.Time) starlark.Value { return TimeOfDay{t} }

func (c *Converter) FromDateTime(dt value.DateTime) starlark.Value { return DateTime{dt} }

// FromForeignHandle unwraps h and releases it.
func (c *Converter) FromForeignHandle(h value.ForeignHandle) starlark.Value {
	r, ok := h.(*Ref)
	if !ok || !r.Valid() || r.rt != c.rt {
		c.rt.logger.Warn("foreign: handle does not belong to this runtime, using None")
		if h != nil {
			h.Release()
		}
		return starlark.None
	}
	v := r.Value()
	r.Release()
	return v
}

func (c *Converter) FromHostHandle(ref *value.HostObjectRef) starlark.Value {
	return &HostObject{ref: ref, rt: c.rt}
}

func (c *Converter) NewListBuilder() convert.ListBuilder[starlark.Value] {
	return &listBuilder{}
}

func (c *Converter) NewDictBuilder() convert.DictBuilder[starlark.Value] {
	return &dictBuilder{d: starlark.NewDict(0), rt: c.rt}
}

type listBuilder struct{ items []starlark.Value }

func (b *listBuilder) Append(v starlark.Value) { b.items = append(b.items, v) }
func (b *listBuilder) Build() starlark.Value   { return starlark.NewList(b.items) }

type dictBuilder struct {
	d  *starlark.Dict
	rt *Runtime
}

func (b *dictBuilder) Set(k, v starlark.Value) {
	if err := b.d.SetKey(k, v); err != nil {
		b.rt.logger.Warn("foreign: cannot set dict entry", "key", k.String(), "error", err)
	}
}

func (b *dictBuilder) Build() starlark.Value { return b.d }

func typeName(v starlark.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Type()
}
