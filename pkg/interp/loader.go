package interp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// ImportMode selects how ImportModule binds a dotted module name in the
// shared namespace.
type ImportMode int

const (
	// ImportLeaf binds the innermost module under its full dotted name.
	ImportLeaf ImportMode = iota
	// ImportTopLevel binds the top-level package, with submodules reachable
	// as attributes.
	ImportTopLevel
)

// moduleExt is the file extension of script modules.
const moduleExt = ".star"

// load returns the module with the given dotted name, loading and caching
// it on first use. The caller holds the GIL.
func (i *Interpreter) load(name string) (starlark.Value, error) {
	if i.State() != Running {
		return nil, ErrTerminated
	}
	if err := validateModuleName(name); err != nil {
		return nil, err
	}
	if m, ok := i.modules[name]; ok {
		return m, nil
	}
	if i.loading[name] {
		i.logger.Warn("interp: circular import detected", "module", name)
		return nil, fmt.Errorf("%w: %s", ErrCircularImport, name)
	}
	i.loading[name] = true
	defer delete(i.loading, name)

	m, err := i.find(name)
	if err != nil {
		return nil, err
	}
	i.modules[name] = m
	return m, nil
}

func (i *Interpreter) find(name string) (starlark.Value, error) {
	if factory, ok := i.builtins[name]; ok {
		return factory(), nil
	}

	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, dir := range i.paths {
		candidates := []string{
			filepath.Join(dir, rel+moduleExt),
			filepath.Join(dir, rel, "__init__"+moduleExt),
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				return i.execModule(name, p)
			}
		}
		if st, err := os.Stat(filepath.Join(dir, rel)); err == nil && st.IsDir() {
			return &starlarkstruct.Module{Name: name, Members: starlark.StringDict{}}, nil
		}
	}

	// A submodule may be an attribute of its parent, e.g. os.path.
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		parent, err := i.load(name[:dot])
		if err != nil {
			return nil, err
		}
		if ha, ok := parent.(starlark.HasAttrs); ok {
			if v, err := ha.Attr(name[dot+1:]); err == nil && v != nil {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
}

func (i *Interpreter) execModule(name, path string) (starlark.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		i.logger.Error("interp: failed to read module", "path", path, "error", err)
		return nil, err
	}
	f, err := fileOptions.Parse(path, src, 0)
	if err != nil {
		return nil, err
	}
	globals := starlark.StringDict{}
	if err := starlark.ExecREPLChunk(f, i.thread(name), globals); err != nil {
		i.logger.Error("interp: failed to execute module", "path", path, "error", err)
		return nil, err
	}
	return &starlarkstruct.Module{Name: name, Members: globals}, nil
}

// importModule loads name and binds it into the shared namespace.
func (i *Interpreter) importModule(name string, mode ImportMode) error {
	if mode == ImportLeaf {
		m, err := i.load(name)
		if err != nil {
			return err
		}
		i.globals[name] = m
		return nil
	}

	parts := strings.Split(name, ".")
	var parent starlark.Value
	for n := range parts {
		m, err := i.load(strings.Join(parts[:n+1], "."))
		if err != nil {
			return err
		}
		if pm, ok := parent.(*starlarkstruct.Module); ok && pm.Members[parts[n]] == nil {
			pm.Members[parts[n]] = m
		}
		parent = m
	}
	top, _ := i.load(parts[0])
	i.globals[parts[0]] = top
	return nil
}

// loadMembers serves load statements. Both load("pkg/mod.star", ...) and
// load("pkg.mod", ...) name the same module.
func (i *Interpreter) loadMembers(module string) (starlark.StringDict, error) {
	name := strings.TrimSuffix(module, moduleExt)
	name = strings.ReplaceAll(name, "/", ".")
	m, err := i.load(name)
	if err != nil {
		return nil, err
	}
	return members(m), nil
}

func members(m starlark.Value) starlark.StringDict {
	if sm, ok := m.(*starlarkstruct.Module); ok {
		return sm.Members
	}
	out := starlark.StringDict{}
	if ha, ok := m.(starlark.HasAttrs); ok {
		for _, n := range ha.AttrNames() {
			if v, err := ha.Attr(n); err == nil && v != nil {
				out[n] = v
			}
		}
	}
	return out
}

// validateModuleName rejects names that could escape the import paths.
func validateModuleName(name string) error {
	if name == "" {
		return errors.New("module name cannot be empty")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("module name %q contains path traversal sequence", name)
	}
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("module name %q contains a path separator", name)
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return fmt.Errorf("module name %q has an empty component", name)
		}
	}
	return nil
}
