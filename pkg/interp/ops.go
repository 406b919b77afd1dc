package interp

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/value"
)

// AddImportPath prepends path to the module search path. A file:// prefix
// is stripped; paths that are not valid UTF-8 are logged and ignored.
func (i *Interpreter) AddImportPath(path string) {
	release, err := i.enter()
	if err != nil {
		return
	}
	defer release()

	if !utf8.ValidString(path) {
		i.logger.Warn("interp: ignoring import path with invalid encoding", "path", fmt.Sprintf("%q", path))
		return
	}
	path = strings.TrimPrefix(path, "file://")
	i.paths = slices.Insert(i.paths, 0, path)
}

// ImportPaths returns a copy of the module search path.
func (i *Interpreter) ImportPaths() []string {
	i.gil.Ensure()
	defer i.gil.Release()
	return slices.Clone(i.paths)
}

// ImportModule loads the named module and binds it in the shared namespace.
func (i *Interpreter) ImportModule(name string, mode ImportMode) error {
	release, err := i.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := i.importModule(name, mode); err != nil {
		return i.fail("import", fmt.Sprintf("Cannot import module: %s", name), err)
	}
	return nil
}

// ImportNames loads module and binds each of names from it in the shared
// namespace. Names the module does not define are skipped; the returned
// error joins one error per missing name, and the remaining names are
// still bound. A failure to load the module binds nothing.
func (i *Interpreter) ImportNames(module string, names []string) error {
	release, err := i.enter()
	if err != nil {
		return err
	}
	defer release()

	m, err := i.load(module)
	if err != nil {
		return i.fail("import", fmt.Sprintf("Cannot import module: %s", module), err)
	}
	all := members(m)

	var errs []error
	for _, name := range names {
		v, ok := all[name]
		if !ok || v == nil {
			errs = append(errs, &Error{
				Op:  "import",
				Msg: fmt.Sprintf("Object '%s' is not found in '%s'", name, module),
				Err: ErrNotFound,
			})
			continue
		}
		i.globals[name] = v
	}
	return errors.Join(errs...)
}

// Evaluate evaluates a single expression in the shared namespace and
// converts the result. On failure it returns None and an *Error carrying
// the formatted traceback.
func (i *Interpreter) Evaluate(expr string) (value.Value, error) {
	release, err := i.enter()
	if err != nil {
		return value.None(), err
	}
	defer release()

	v, err := starlark.EvalOptions(fileOptions, i.thread("evaluate"), "<eval>", expr, i.globals)
	if err != nil {
		return value.None(), i.fail("evaluate", fmt.Sprintf("Cannot evaluate '%s'", expr), err)
	}
	return i.rt.ToHost(v), nil
}

// Exec runs statements in the shared namespace. Bindings made before a
// failing statement are kept.
func (i *Interpreter) Exec(src string) error {
	return i.exec("<exec>", src)
}

// ExecFile runs a script file in the shared namespace.
func (i *Interpreter) ExecFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return &Error{Op: "exec", Msg: fmt.Sprintf("Cannot read '%s'", path), Err: err}
	}
	return i.exec(path, string(src))
}

func (i *Interpreter) exec(filename, src string) error {
	release, err := i.enter()
	if err != nil {
		return err
	}
	defer release()

	f, err := fileOptions.Parse(filename, src, 0)
	if err != nil {
		return i.fail("exec", fmt.Sprintf("Cannot parse '%s'", filename), err)
	}
	if err := starlark.ExecREPLChunk(f, i.thread("exec"), i.globals); err != nil {
		return i.fail("exec", fmt.Sprintf("Error executing '%s'", filename), err)
	}
	return nil
}

// Call invokes a callable with a list of arguments. callable is either a
// string naming a callable in the shared namespace (a dotted expression
// such as "os.getcwd" is evaluated), or a foreign handle to one.
func (i *Interpreter) Call(callable value.Value, args value.Value) (value.Value, error) {
	release, err := i.enter()
	if err != nil {
		return value.None(), err
	}
	defer release()

	fn, name, err := i.resolveCallable(callable)
	if err != nil {
		return value.None(), err
	}
	if args.Tag() != value.TagList && !args.IsNone() {
		return value.None(), i.fail("call",
			fmt.Sprintf("Not a parameter list in call to %s: %s", name, args), ErrBadArguments)
	}

	tuple := make(starlark.Tuple, args.Len())
	for n, a := range args.Items() {
		tuple[n] = i.rt.FromHost(a)
	}
	ret, err := starlark.Call(i.thread("call"), fn, tuple, nil)
	if err != nil {
		return value.None(), i.fail("call", fmt.Sprintf("Error calling %s", name), err)
	}
	return i.rt.ToHost(ret), nil
}

func (i *Interpreter) resolveCallable(callable value.Value) (starlark.Callable, string, error) {
	var v starlark.Value
	name := callable.String()
	if callable.Tag() == value.TagString {
		name = callable.Str()
		if g, ok := i.globals[name]; ok {
			v = g
		} else {
			ev, err := starlark.EvalOptions(fileOptions, i.thread("call"), "<call>", name, i.globals)
			if err != nil {
				return nil, name, i.fail("call", fmt.Sprintf("Function not found: '%s'", name),
					fmt.Errorf("%w: %w", ErrNotFound, err))
			}
			v = ev
		}
	} else {
		v = i.rt.FromHost(callable)
	}

	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, name, i.fail("call", fmt.Sprintf("Not a callable: %s", name), ErrNotCallable)
	}
	return fn, name, nil
}

// GetAttr reads an attribute of a script object.
func (i *Interpreter) GetAttr(obj value.Value, attr string) (value.Value, error) {
	release, err := i.enter()
	if err != nil {
		return value.None(), err
	}
	defer release()

	o := i.rt.FromHost(obj)
	v, err := starlark.Call(i.thread("getattr"), starlark.Universe["getattr"],
		starlark.Tuple{o, starlark.String(attr)}, nil)
	if err != nil {
		return value.None(), i.fail("getattr", fmt.Sprintf("Attribute not found: %s", attr),
			fmt.Errorf("%w: %w", ErrNotFound, err))
	}
	return i.rt.ToHost(v), nil
}

// Global returns a converted binding from the shared namespace.
func (i *Interpreter) Global(name string) (value.Value, bool) {
	release, err := i.enter()
	if err != nil {
		return value.None(), false
	}
	defer release()

	v, ok := i.globals[name]
	if !ok {
		return value.None(), false
	}
	return i.rt.ToHost(v), true
}

// SetGlobal binds a converted host value in the shared namespace.
func (i *Interpreter) SetGlobal(name string, v value.Value) error {
	release, err := i.enter()
	if err != nil {
		return err
	}
	defer release()

	i.globals[name] = i.rt.FromHost(v)
	return nil
}

// Globals lists the names bound in the shared namespace.
func (i *Interpreter) Globals() []string {
	release, err := i.enter()
	if err != nil {
		return nil
	}
	defer release()
	return i.globals.Keys()
}
