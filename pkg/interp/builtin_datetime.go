package interp

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/foreign"
	"github.com/haivivi/starside/pkg/value"
)

// datetimeModule builds the calendar values that convert to the host's
// DATE, TIME and DATETIME tags.
func datetimeModule() starlark.Value {
	return module("datetime", starlark.StringDict{
		"date":     starlark.NewBuiltin("date", dtDate),
		"time":     starlark.NewBuiltin("time", dtTime),
		"datetime": starlark.NewBuiltin("datetime", dtDateTime),
		"now":      starlark.NewBuiltin("now", dtNow),
		"today":    starlark.NewBuiltin("today", dtToday),
	})
}

func dtDate(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var d value.Date
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "year", &d.Year, "month", &d.Month, "day", &d.Day); err != nil {
		return nil, err
	}
	if err := checkDate(d); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return foreign.Date{Date: d}, nil
}

func dtTime(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var t value.Time
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"hour?", &t.Hour, "minute?", &t.Minute, "second?", &t.Second, "millisecond?", &t.Millisecond); err != nil {
		return nil, err
	}
	if err := checkTime(t); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return foreign.TimeOfDay{Time: t}, nil
}

func dtDateTime(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var dt value.DateTime
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"year", &dt.Year, "month", &dt.Month, "day", &dt.Day,
		"hour?", &dt.Hour, "minute?", &dt.Minute, "second?", &dt.Second, "millisecond?", &dt.Millisecond); err != nil {
		return nil, err
	}
	if err := checkDate(dt.Date); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := checkTime(dt.Time); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return foreign.DateTime{DateTime: dt}, nil
}

func dtNow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return foreign.DateTime{DateTime: value.DateTimeFromTime(time.Now())}, nil
}

func dtToday(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return foreign.Date{Date: value.DateTimeFromTime(time.Now()).Date}, nil
}

func checkDate(d value.Date) error {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	if t.Year() != d.Year || int(t.Month()) != d.Month || t.Day() != d.Day || d.Year < 1 || d.Year > 9999 {
		return fmt.Errorf("invalid date %s", d)
	}
	return nil
}

func checkTime(t value.Time) error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 ||
		t.Second < 0 || t.Second > 59 || t.Millisecond < 0 || t.Millisecond > 999 {
		return fmt.Errorf("invalid time %s", t)
	}
	return nil
}
