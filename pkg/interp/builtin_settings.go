package interp

import (
	"context"
	"errors"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/settings"
)

// settingsModule exposes the settings store under dotted keys:
//
//	settings.set("window.width", 640)
//	settings.get("window.width", 480)
func (i *Interpreter) settingsModule() starlark.Value {
	return module("settings", starlark.StringDict{
		"get":    starlark.NewBuiltin("get", i.settingsGet),
		"set":    starlark.NewBuiltin("set", i.settingsSet),
		"delete": starlark.NewBuiltin("delete", i.settingsDelete),
		"keys":   starlark.NewBuiltin("keys", i.settingsKeys),
		"update": starlark.NewBuiltin("update", i.settingsUpdate),
		"clear":  starlark.NewBuiltin("clear", i.settingsClear),
	})
}

func (i *Interpreter) settingsGet(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "default?", &def); err != nil {
		return nil, err
	}
	v, err := i.settings.Get(context.Background(), settings.ParseKey(key))
	if errors.Is(err, settings.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return i.rt.FromHost(v), nil
}

func (i *Interpreter) settingsSet(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var v starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "value", &v); err != nil {
		return nil, err
	}
	hv := i.rt.ToHost(v)
	defer hv.Release()
	if err := i.settings.Set(context.Background(), settings.ParseKey(key), hv); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

func (i *Interpreter) settingsDelete(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key); err != nil {
		return nil, err
	}
	if err := i.settings.Delete(context.Background(), settings.ParseKey(key)); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

func (i *Interpreter) settingsKeys(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var prefix string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "prefix?", &prefix); err != nil {
		return nil, err
	}
	var keys []starlark.Value
	for e, err := range i.settings.List(context.Background(), settings.ParseKey(prefix)) {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		keys = append(keys, starlark.String(e.Key.String()))
		e.Value.Release()
	}
	return starlark.NewList(keys), nil
}

// settingsUpdate stores every entry of a dict in one batch.
func (i *Interpreter) settingsUpdate(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var d *starlark.Dict
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &d); err != nil {
		return nil, err
	}
	entries := make([]settings.Entry, 0, d.Len())
	for _, kv := range d.Items() {
		k, ok := starlark.AsString(kv[0])
		if !ok {
			return nil, fmt.Errorf("%s: key %s is not a string", b.Name(), kv[0])
		}
		entries = append(entries, settings.Entry{Key: settings.ParseKey(k), Value: i.rt.ToHost(kv[1])})
	}
	defer func() {
		for _, e := range entries {
			e.Value.Release()
		}
	}()
	if err := i.settings.BatchSet(context.Background(), entries); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

// settingsClear deletes every key under prefix, or everything, and
// returns how many were removed.
func (i *Interpreter) settingsClear(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var prefix string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "prefix?", &prefix); err != nil {
		return nil, err
	}
	ctx := context.Background()
	var keys []settings.Key
	for e, err := range i.settings.List(ctx, settings.ParseKey(prefix)) {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		keys = append(keys, e.Key)
		e.Value.Release()
	}
	if err := i.settings.BatchDelete(ctx, keys); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.MakeInt(len(keys)), nil
}
