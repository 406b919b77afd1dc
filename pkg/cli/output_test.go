package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haivivi/starside/pkg/value"
)

func sample() value.Value {
	return value.Dict(map[string]value.Value{
		"name":  value.Str("test"),
		"value": value.Int(123),
		"tags":  value.List(value.Str("a"), value.None()),
	})
}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(sample(), OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if result["name"] != "test" || result["value"] != float64(123) {
		t.Errorf("result = %v", result)
	}
	if tags, _ := result["tags"].([]any); len(tags) != 2 || tags[1] != nil {
		t.Errorf("tags = %v", result["tags"])
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(sample(), OutputOptions{Format: FormatYAML, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "name: test") || !strings.Contains(output, "value: 123") {
		t.Errorf("unexpected YAML: %s", output)
	}
}

func TestOutput_Repr(t *testing.T) {
	tests := []struct {
		v      value.Value
		format OutputFormat
		want   string
	}{
		{value.List(value.Int(1), value.Bool(true), value.None()), FormatRepr, "[1, True, None]\n"},
		{value.Str("hi"), FormatRepr, "\"hi\"\n"},
		{value.Str("hi"), FormatRaw, "hi"},
		{value.Float(0.5), FormatRaw, "0.5\n"},
		{value.Int(7), "", "7\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := Output(tt.v, OutputOptions{Format: tt.format, Writer: &buf}); err != nil {
			t.Fatalf("Output(%v) error: %v", tt.v, err)
		}
		if buf.String() != tt.want {
			t.Errorf("Output(%v, %s) = %q, want %q", tt.v, tt.format, buf.String(), tt.want)
		}
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(value.Int(5), OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "5" {
		t.Errorf("file = %q", data)
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	err := Output(value.None(), OutputOptions{Format: "table", Writer: &bytes.Buffer{}})
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatRepr {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) succeeded")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.50 KB"},
		{3 * 1024 * 1024, "3.00 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
