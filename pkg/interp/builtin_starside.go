package interp

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/imageprovider"
	"github.com/haivivi/starside/pkg/value"
)

// starsideModule is the script side of the bridge:
//
//	load("starside", "send", "atexit", "set_image_provider")
//	send("progress", 0.5)
func (i *Interpreter) starsideModule() starlark.Value {
	m := starlark.StringDict{
		"send":               starlark.NewBuiltin("send", i.builtinSend),
		"atexit":             starlark.NewBuiltin("atexit", i.builtinAtexit),
		"set_image_provider": starlark.NewBuiltin("set_image_provider", i.builtinSetImageProvider),
		"version":            starlark.String(PluginVersion),
		"runtime_version":    starlark.String(i.RuntimeVersion()),
	}
	for _, f := range imageprovider.Formats {
		m["format_"+f.Name] = starlark.MakeInt(int(f.Format))
	}
	return module("starside", m)
}

func (i *Interpreter) builtinSend(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing event", b.Name())
	}

	var ev Event
	if name, ok := args[0].(starlark.String); ok {
		ev.Name = string(name)
		args = args[1:]
	}
	ev.Args = make([]value.Value, len(args))
	for n, a := range args {
		ev.Args[n] = i.rt.ToHost(a)
	}
	i.emit(ev)
	return starlark.None, nil
}

func (i *Interpreter) builtinAtexit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn, err := callableArg(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	i.atexit = fn
	return starlark.None, nil
}

func (i *Interpreter) builtinSetImageProvider(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn, err := callableArg(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	i.imageProvider = fn
	return starlark.None, nil
}

// callableArg unpacks a single callable argument. None yields nil.
func callableArg(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Callable, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	if v == starlark.None {
		return nil, nil
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s: %s is not callable", b.Name(), v.Type())
	}
	return fn, nil
}
