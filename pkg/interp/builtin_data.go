package interp

import (
	"fmt"

	"github.com/itchyny/gojq"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"

	"github.com/haivivi/starside/pkg/value"
)

// yamlModule encodes and decodes YAML through the host value model, so
// dates and handles follow the same rules as every other conversion.
func (i *Interpreter) yamlModule() starlark.Value {
	return module("yaml", starlark.StringDict{
		"encode": starlark.NewBuiltin("encode", i.yamlEncode),
		"decode": starlark.NewBuiltin("decode", i.yamlDecode),
	})
}

func (i *Interpreter) yamlEncode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	hv := i.rt.ToHost(v)
	defer hv.Release()
	out, err := yaml.Marshal(hv.Native())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(out), nil
}

func (i *Interpreter) yamlDecode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var src string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &src); err != nil {
		return nil, err
	}
	var x any
	if err := yaml.Unmarshal([]byte(src), &x); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return i.rt.FromHost(value.Of(x)), nil
}

// jqModule runs jq programs over script data:
//
//	jq.query(".items[] | .name", data)
func (i *Interpreter) jqModule() starlark.Value {
	return module("jq", starlark.StringDict{
		"query": starlark.NewBuiltin("query", i.jqQuery),
		"first": starlark.NewBuiltin("first", i.jqFirst),
	})
}

func (i *Interpreter) jqQuery(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	results, err := i.jqRun(b, args, kwargs, -1)
	if err != nil {
		return nil, err
	}
	items := make([]starlark.Value, len(results))
	for n, r := range results {
		items[n] = i.rt.FromHost(value.Of(r))
	}
	return starlark.NewList(items), nil
}

// jqFirst returns the first result, or None when the program yields nothing.
func (i *Interpreter) jqFirst(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	results, err := i.jqRun(b, args, kwargs, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return starlark.None, nil
	}
	return i.rt.FromHost(value.Of(results[0])), nil
}

func (i *Interpreter) jqRun(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, limit int) ([]any, error) {
	var expr string
	var data starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "expr", &expr, "data", &data); err != nil {
		return nil, err
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	input := i.rt.ToHost(data)
	defer input.Release()

	var results []any
	iter := query.Run(jqInput(input.Native()))
	for limit < 0 || len(results) < limit {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

// jqInput rewrites int64 leaves as int, the integer type gojq accepts.
func jqInput(x any) any {
	switch x := x.(type) {
	case int64:
		return int(x)
	case []any:
		for n, e := range x {
			x[n] = jqInput(e)
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = jqInput(e)
		}
		return x
	}
	return x
}
