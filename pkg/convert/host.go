package convert

import (
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/haivivi/starside/pkg/value"
)

// Host is the Converter for value.Value, the host side of the bridge.
var Host Converter[value.Value] = hostConverter{}

type hostConverter struct{}

func (hostConverter) Classify(v value.Value) value.Tag {
	tag := v.Tag()
	if !tag.Valid() {
		slog.Warn("convert: invalid host value tag, using None", "tag", tag)
		return value.TagNone
	}
	return tag
}

func (hostConverter) AsInteger(v value.Value) int64                   { return v.Int() }
func (hostConverter) AsFloating(v value.Value) float64                { return v.Float() }
func (hostConverter) AsBoolean(v value.Value) bool                    { return v.Bool() }
func (hostConverter) AsDate(v value.Value) value.Date                 { return v.Date() }
func (hostConverter) AsTime(v value.Value) value.Time                 { return v.Time() }
func (hostConverter) AsDateTime(v value.Value) value.DateTime         { return v.DateTime() }
func (hostConverter) AsHostHandle(v value.Value) *value.HostObjectRef { return v.HostRef() }

func (hostConverter) AsString(v value.Value) string {
	if v.Tag() == value.TagString {
		return v.Str()
	}
	return v.String()
}

func (hostConverter) AsForeignHandle(v value.Value) value.ForeignHandle {
	h := v.ForeignHandle()
	if h == nil {
		return nil
	}
	return h.Clone()
}

func (hostConverter) IterateList(v value.Value) (iter.Seq[value.Value], error) {
	if v.Tag() != value.TagList {
		return nil, fmt.Errorf("%w: %v is not a list", ErrMalformed, v.Tag())
	}
	return once(slices.Values(v.Items())), nil
}

func (hostConverter) IterateDict(v value.Value) (iter.Seq2[value.Value, value.Value], error) {
	if v.Tag() != value.TagDict {
		return nil, fmt.Errorf("%w: %v is not a dict", ErrMalformed, v.Tag())
	}
	m := v.Map()
	done := false
	return func(yield func(value.Value, value.Value) bool) {
		if done {
			return
		}
		done = true
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if !yield(value.Str(k), m[k]) {
				return
			}
		}
	}, nil
}

func (hostConverter) None() value.Value                          { return value.None() }
func (hostConverter) FromInteger(i int64) value.Value            { return value.Int(i) }
func (hostConverter) FromFloating(f float64) value.Value         { return value.Float(f) }
func (hostConverter) FromBoolean(b bool) value.Value             { return value.Bool(b) }
func (hostConverter) FromString(s string) value.Value            { return value.Str(s) }
func (hostConverter) FromDate(d value.Date) value.Value          { return value.DateOf(d) }
func (hostConverter) FromTime(t value.Time) value.Value          { return value.TimeOf(t) }
func (hostConverter) FromDateTime(dt value.DateTime) value.Value { return value.DateTimeOf(dt) }

func (hostConverter) FromForeignHandle(h value.ForeignHandle) value.Value {
	return value.Foreign(h)
}

func (hostConverter) FromHostHandle(r *value.HostObjectRef) value.Value {
	return value.Host(r)
}

func (hostConverter) NewListBuilder() ListBuilder[value.Value] { return &hostList{} }
func (hostConverter) NewDictBuilder() DictBuilder[value.Value] {
	return &hostDict{m: make(map[string]value.Value)}
}

type hostList struct{ items []value.Value }

func (b *hostList) Append(v value.Value) { b.items = append(b.items, v) }
func (b *hostList) Build() value.Value   { return value.List(b.items...) }

type hostDict struct{ m map[string]value.Value }

func (b *hostDict) Set(k, v value.Value) {
	key := k.Str()
	if k.Tag() != value.TagString {
		key = k.String()
	}
	b.m[key] = v
}

func (b *hostDict) Build() value.Value { return value.Dict(b.m) }

// once wraps seq so that it yields at most one pass.
func once[V any](seq iter.Seq[V]) iter.Seq[V] {
	done := false
	return func(yield func(V) bool) {
		if done {
			return
		}
		done = true
		seq(yield)
	}
}
