package foreign

import (
	"cmp"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/value"
)

// Date, TimeOfDay and DateTime are the Starlark representations of the
// value model's calendar types. They are immutable and hashable.
type (
	Date      struct{ value.Date }
	TimeOfDay struct{ value.Time }
	DateTime  struct{ value.DateTime }
)

var (
	_ starlark.TotallyOrdered = Date{}
	_ starlark.TotallyOrdered = TimeOfDay{}
	_ starlark.TotallyOrdered = DateTime{}
	_ starlark.HasAttrs       = Date{}
	_ starlark.HasAttrs       = TimeOfDay{}
	_ starlark.HasAttrs       = DateTime{}
)

func (d Date) String() string        { return d.Date.String() }
func (d Date) Type() string          { return "date" }
func (d Date) Freeze()               {}
func (d Date) Truth() starlark.Bool  { return starlark.True }
func (d Date) Hash() (uint32, error) { return starlark.String(d.String()).Hash() }

func (d Date) Cmp(y starlark.Value, depth int) (int, error) {
	return compareDate(d.Date, y.(Date).Date), nil
}

func (d Date) Attr(name string) (starlark.Value, error) {
	switch name {
	case "year":
		return starlark.MakeInt(d.Year), nil
	case "month":
		return starlark.MakeInt(d.Month), nil
	case "day":
		return starlark.MakeInt(d.Day), nil
	case "isoformat":
		return isoformat(d), nil
	}
	return nil, nil
}

func (d Date) AttrNames() []string { return []string{"day", "isoformat", "month", "year"} }

func (t TimeOfDay) String() string        { return t.Time.String() }
func (t TimeOfDay) Type() string          { return "time" }
func (t TimeOfDay) Freeze()               {}
func (t TimeOfDay) Truth() starlark.Bool  { return starlark.True }
func (t TimeOfDay) Hash() (uint32, error) { return starlark.String(t.String()).Hash() }

func (t TimeOfDay) Cmp(y starlark.Value, depth int) (int, error) {
	return compareTime(t.Time, y.(TimeOfDay).Time), nil
}

func (t TimeOfDay) Attr(name string) (starlark.Value, error) {
	switch name {
	case "hour":
		return starlark.MakeInt(t.Hour), nil
	case "minute":
		return starlark.MakeInt(t.Minute), nil
	case "second":
		return starlark.MakeInt(t.Second), nil
	case "millisecond":
		return starlark.MakeInt(t.Millisecond), nil
	case "isoformat":
		return isoformat(t), nil
	}
	return nil, nil
}

func (t TimeOfDay) AttrNames() []string {
	return []string{"hour", "isoformat", "millisecond", "minute", "second"}
}

func (dt DateTime) String() string        { return dt.DateTime.String() }
func (dt DateTime) Type() string          { return "datetime" }
func (dt DateTime) Freeze()               {}
func (dt DateTime) Truth() starlark.Bool  { return starlark.True }
func (dt DateTime) Hash() (uint32, error) { return starlark.String(dt.String()).Hash() }

func (dt DateTime) Cmp(y starlark.Value, depth int) (int, error) {
	o := y.(DateTime)
	if c := compareDate(dt.Date, o.Date); c != 0 {
		return c, nil
	}
	return compareTime(dt.Time, o.Time), nil
}

func (dt DateTime) Attr(name string) (starlark.Value, error) {
	switch name {
	case "date":
		return method(dt, "date", func() starlark.Value { return Date{dt.DateTime.Date} }), nil
	case "time":
		return method(dt, "time", func() starlark.Value { return TimeOfDay{dt.DateTime.Time} }), nil
	case "isoformat":
		return isoformat(dt), nil
	}
	if v, err := (Date{dt.DateTime.Date}).Attr(name); v != nil || err != nil {
		return v, err
	}
	return (TimeOfDay{dt.DateTime.Time}).Attr(name)
}

func (dt DateTime) AttrNames() []string {
	return []string{"date", "day", "hour", "isoformat", "millisecond", "minute", "month", "second", "time", "year"}
}

func compareDate(a, b value.Date) int {
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Month, b.Month); c != 0 {
		return c
	}
	return cmp.Compare(a.Day, b.Day)
}

func compareTime(a, b value.Time) int {
	ms := func(t value.Time) int {
		return ((t.Hour*60+t.Minute)*60+t.Second)*1000 + t.Millisecond
	}
	return cmp.Compare(ms(a), ms(b))
}

func isoformat(v fmt.Stringer) starlark.Value {
	return method(v.(starlark.Value), "isoformat", func() starlark.Value {
		return starlark.String(v.String())
	})
}

func method(recv starlark.Value, name string, fn func() starlark.Value) *starlark.Builtin {
	b := starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return fn(), nil
	})
	return b.BindReceiver(recv)
}
