package interp

import (
	"fmt"
	"os"
	"path/filepath"

	"go.starlark.net/starlark"
)

func osModule() starlark.Value {
	path := module("os.path", starlark.StringDict{
		"join":     starlark.NewBuiltin("join", osPathJoin),
		"exists":   pathPredicate("exists", func(os.FileInfo) bool { return true }),
		"isdir":    pathPredicate("isdir", os.FileInfo.IsDir),
		"isfile":   pathPredicate("isfile", func(fi os.FileInfo) bool { return fi.Mode().IsRegular() }),
		"basename": pathFunc("basename", filepath.Base),
		"dirname":  pathFunc("dirname", filepath.Dir),
		"abspath":  pathFuncErr("abspath", filepath.Abs),
	})
	return module("os", starlark.StringDict{
		"getcwd":  starlark.NewBuiltin("getcwd", osGetcwd),
		"getenv":  starlark.NewBuiltin("getenv", osGetenv),
		"listdir": starlark.NewBuiltin("listdir", osListdir),
		"sep":     starlark.String(string(filepath.Separator)),
		"path":    path,
	})
}

func osGetcwd(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return starlark.String(wd), nil
}

func osGetenv(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "default?", &def); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(key); ok {
		return starlark.String(v), nil
	}
	return def, nil
}

func osListdir(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	dir := "."
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path?", &dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]starlark.Value, len(entries))
	for n, e := range entries {
		names[n] = starlark.String(e.Name())
	}
	return starlark.NewList(names), nil
}

func osPathJoin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	start := 0
	parts := make([]string, len(args))
	for n, a := range args {
		s, ok := starlark.AsString(a)
		if !ok {
			return nil, fmt.Errorf("%s: for parameter %d: got %s, want string", b.Name(), n+1, a.Type())
		}
		// An absolute component discards what precedes it.
		if filepath.IsAbs(s) {
			start = n
		}
		parts[n] = s
	}
	return starlark.String(filepath.Join(parts[start:]...)), nil
}

func pathPredicate(name string, pred func(os.FileInfo) bool) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var p string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &p); err != nil {
			return nil, err
		}
		fi, err := os.Stat(p)
		return starlark.Bool(err == nil && pred(fi)), nil
	})
}

func pathFunc(name string, fn func(string) string) *starlark.Builtin {
	return pathFuncErr(name, func(p string) (string, error) { return fn(p), nil })
}

func pathFuncErr(name string, fn func(string) (string, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var p string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &p); err != nil {
			return nil, err
		}
		out, err := fn(p)
		if err != nil {
			return nil, err
		}
		return starlark.String(out), nil
	})
}
