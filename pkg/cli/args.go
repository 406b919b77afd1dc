package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"gopkg.in/yaml.v3"

	"github.com/haivivi/starside/pkg/value"
)

// ParseArgs parses a call argument list. YAML files are read as YAML;
// everything else is JSON, and malformed JSON (single quotes, trailing
// commas, unquoted keys) is repaired before decoding. The result must be
// a list.
func ParseArgs(data []byte, filename string) (value.Value, error) {
	var (
		x   any
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &x); err != nil {
			return value.None(), fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if x, err = decodeJSON(data); err != nil {
			return value.None(), err
		}
	}
	if x == nil {
		return value.List(), nil
	}
	if _, ok := x.([]any); !ok {
		return value.None(), fmt.Errorf("arguments must be a list, got %T", x)
	}
	return value.Of(x), nil
}

// LoadArgs reads an argument list from path, or stdin when path is "-".
func LoadArgs(path string) (value.Value, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return value.None(), fmt.Errorf("failed to read arguments: %w", err)
	}
	return ParseArgs(data, path)
}

func decodeJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		data = []byte(fixed)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return numbers(x), nil
}

// numbers turns json.Number into int64 where it fits, float64 otherwise.
func numbers(x any) any {
	switch x := x.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for n, e := range x {
			x[n] = numbers(e)
		}
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
	}
	return x
}
