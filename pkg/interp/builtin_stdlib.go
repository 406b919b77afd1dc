package interp

import (
	"maps"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// registerBuiltins installs the modules available to load and ImportModule
// without a file on the import path.
func (i *Interpreter) registerBuiltins() {
	i.builtins = map[string]func() starlark.Value{
		"json":     func() starlark.Value { return cloneModule(json.Module) },
		"math":     func() starlark.Value { return cloneModule(math.Module) },
		"time":     func() starlark.Value { return cloneModule(starlarktime.Module) },
		"starside": i.starsideModule,
		"os":       osModule,
		"datetime": datetimeModule,
		"settings": i.settingsModule,
		"yaml":     i.yamlModule,
		"jq":       i.jqModule,
	}
}

// cloneModule copies a library module so attaching submodules to it never
// touches package state.
func cloneModule(m *starlarkstruct.Module) *starlarkstruct.Module {
	return &starlarkstruct.Module{Name: m.Name, Members: maps.Clone(m.Members)}
}

func module(name string, members starlark.StringDict) *starlarkstruct.Module {
	return &starlarkstruct.Module{Name: name, Members: members}
}
