// Package value defines the host-side tagged value model shared by the
// interpreter bridge and the code that embeds it.
//
// A Value carries exactly one Tag. Scalars, lists and string-keyed dicts are
// plain data; the two handle tags wrap objects owned by one side of the
// bridge but visible to the other:
//
//   - TagForeign wraps a script object with no native host representation.
//   - TagHost wraps a host object exposed into the script runtime.
//
// Values are immutable once constructed. Lists and dicts returned by Items
// and Map must not be modified by callers.
package value

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Tag is the discriminator of a Value.
type Tag int

const (
	TagNone Tag = iota
	TagInteger
	TagFloating
	TagBoolean
	TagString
	TagList
	TagDict
	TagDate
	TagTime
	TagDateTime
	TagForeign
	TagHost
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagInteger:
		return "integer"
	case TagFloating:
		return "floating"
	case TagBoolean:
		return "boolean"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagDict:
		return "dict"
	case TagDate:
		return "date"
	case TagTime:
		return "time"
	case TagDateTime:
		return "datetime"
	case TagForeign:
		return "foreign"
	case TagHost:
		return "host"
	default:
		return fmt.Sprintf("tag(%d)", int(t))
	}
}

// Valid reports whether t is one of the defined tags.
func (t Tag) Valid() bool {
	return t >= TagNone && t <= TagHost
}

// ForeignHandle is an owned reference to a script runtime object.
//
// Clone returns a new independent reference to the same object; Release
// drops this reference. Same reports object identity.
type ForeignHandle interface {
	TypeName() string
	Same(other ForeignHandle) bool
	Clone() ForeignHandle
	Release()
}

// Value is an immutable tagged union. The zero Value is None.
type Value struct {
	tag Tag
	v   any
}

// None returns the None value.
func None() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{tag: TagInteger, v: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{tag: TagFloating, v: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{tag: TagBoolean, v: b} }

// Str returns a string value.
func Str(s string) Value { return Value{tag: TagString, v: s} }

// List returns a list value holding items in order.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{tag: TagList, v: items}
}

// Dict returns a dict value. The map is owned by the returned Value.
func Dict(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{tag: TagDict, v: m}
}

// DateOf returns a date value.
func DateOf(d Date) Value { return Value{tag: TagDate, v: d} }

// TimeOf returns a time-of-day value.
func TimeOf(t Time) Value { return Value{tag: TagTime, v: t} }

// DateTimeOf returns a datetime value.
func DateTimeOf(dt DateTime) Value { return Value{tag: TagDateTime, v: dt} }

// Foreign wraps an owned foreign handle. The Value takes ownership of h;
// a nil handle yields None.
func Foreign(h ForeignHandle) Value {
	if h == nil {
		return None()
	}
	return Value{tag: TagForeign, v: h}
}

// Host wraps a host object reference. A nil reference yields None.
func Host(ref *HostObjectRef) Value {
	if ref == nil {
		return None()
	}
	return Value{tag: TagHost, v: ref}
}

// HostObjectOf starts observing obj and wraps it as a host value.
func HostObjectOf(obj HostObject) Value {
	if obj == nil {
		return None()
	}
	return Host(NewHostObjectRef(obj))
}

// Tag returns the value's tag.
func (v Value) Tag() Tag { return v.tag }

// IsNone reports whether v is None.
func (v Value) IsNone() bool { return v.tag == TagNone }

// Int returns the integer payload, or 0 for other tags.
func (v Value) Int() int64 {
	i, _ := v.v.(int64)
	return i
}

// Float returns the floating payload. Integers are widened.
func (v Value) Float() float64 {
	switch x := v.v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

// Bool returns the boolean payload, or false for other tags.
func (v Value) Bool() bool {
	b, _ := v.v.(bool)
	return b
}

// Str returns the string payload, or "" for other tags.
func (v Value) Str() string {
	s, _ := v.v.(string)
	return s
}

// Items returns the list payload, or nil for other tags.
func (v Value) Items() []Value {
	l, _ := v.v.([]Value)
	return l
}

// Map returns the dict payload, or nil for other tags.
func (v Value) Map() map[string]Value {
	m, _ := v.v.(map[string]Value)
	return m
}

// Date returns the date payload. A datetime yields its date part.
func (v Value) Date() Date {
	switch x := v.v.(type) {
	case Date:
		return x
	case DateTime:
		return x.Date
	}
	return Date{}
}

// Time returns the time payload. A datetime yields its time part.
func (v Value) Time() Time {
	switch x := v.v.(type) {
	case Time:
		return x
	case DateTime:
		return x.Time
	}
	return Time{}
}

// DateTime returns the datetime payload. A date yields midnight.
func (v Value) DateTime() DateTime {
	switch x := v.v.(type) {
	case DateTime:
		return x
	case Date:
		return DateTime{Date: x}
	}
	return DateTime{}
}

// ForeignHandle returns the wrapped foreign handle, or nil. The handle is
// still owned by v.
func (v Value) ForeignHandle() ForeignHandle {
	h, _ := v.v.(ForeignHandle)
	return h
}

// HostRef returns the wrapped host object reference, or nil.
func (v Value) HostRef() *HostObjectRef {
	r, _ := v.v.(*HostObjectRef)
	return r
}

// Len returns the number of list items or dict entries.
func (v Value) Len() int {
	switch x := v.v.(type) {
	case []Value:
		return len(x)
	case map[string]Value:
		return len(x)
	}
	return 0
}

// Index returns the i'th list item, or None when out of range.
func (v Value) Index(i int) Value {
	l := v.Items()
	if i < 0 || i >= len(l) {
		return None()
	}
	return l[i]
}

// Get returns the dict entry for key.
func (v Value) Get(key string) (Value, bool) {
	x, ok := v.Map()[key]
	return x, ok
}

// Release drops every foreign handle reachable from v. v must not be used
// afterwards.
func (v Value) Release() {
	switch v.tag {
	case TagForeign:
		v.ForeignHandle().Release()
	case TagList:
		for _, x := range v.Items() {
			x.Release()
		}
	case TagDict:
		for _, x := range v.Map() {
			x.Release()
		}
	}
}

// Equal reports deep equality. Handles compare by identity; floats compare
// by bit pattern so that -0 and +0 differ and NaN equals itself.
func (v Value) Equal(o Value) bool {
	if v.tag != o.tag {
		return false
	}
	switch v.tag {
	case TagNone:
		return true
	case TagFloating:
		return math.Float64bits(v.Float()) == math.Float64bits(o.Float())
	case TagList:
		return slices.EqualFunc(v.Items(), o.Items(), Value.Equal)
	case TagDict:
		return maps.EqualFunc(v.Map(), o.Map(), Value.Equal)
	case TagForeign:
		return v.ForeignHandle().Same(o.ForeignHandle())
	case TagHost:
		return v.HostRef().Same(o.HostRef())
	default:
		return v.v == o.v
	}
}

// String renders v as text. Strings render unquoted at the top level and
// quoted inside containers.
func (v Value) String() string {
	if v.tag == TagString {
		return v.Str()
	}
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.tag {
	case TagNone:
		sb.WriteString("None")
	case TagInteger:
		sb.WriteString(strconv.FormatInt(v.Int(), 10))
	case TagFloating:
		sb.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case TagBoolean:
		if v.Bool() {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case TagString:
		sb.WriteString(strconv.Quote(v.Str()))
	case TagList:
		sb.WriteByte('[')
		for i, x := range v.Items() {
			if i > 0 {
				sb.WriteString(", ")
			}
			x.write(sb)
		}
		sb.WriteByte(']')
	case TagDict:
		m := v.Map()
		sb.WriteByte('{')
		for i, k := range slices.Sorted(maps.Keys(m)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			m[k].write(sb)
		}
		sb.WriteByte('}')
	case TagDate:
		sb.WriteString(v.Date().String())
	case TagTime:
		sb.WriteString(v.Time().String())
	case TagDateTime:
		sb.WriteString(v.DateTime().String())
	case TagForeign:
		fmt.Fprintf(sb, "<foreign %s>", v.ForeignHandle().TypeName())
	case TagHost:
		sb.WriteString(v.HostRef().String())
	}
}
