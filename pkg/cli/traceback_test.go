package cli

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/haivivi/starside/pkg/interp"
)

func TestRenderError_Script(t *testing.T) {
	in := interp.New(interp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(in.Shutdown)

	_, err := in.Evaluate("1 // 0")
	if err == nil {
		t.Fatal("expected an error")
	}
	out := RenderError(err)
	if !strings.Contains(out, "Error: Cannot evaluate '1 // 0'") {
		t.Errorf("missing title: %s", out)
	}
	if !strings.Contains(out, "division by zero") {
		t.Errorf("missing traceback: %s", out)
	}
}

func TestRenderError_Plain(t *testing.T) {
	out := RenderError(errors.New("boom"))
	if !strings.Contains(out, "Error: ") || !strings.HasSuffix(out, "boom") {
		t.Errorf("RenderError = %q", out)
	}
	if RenderError(nil) != "" {
		t.Error("RenderError(nil) not empty")
	}
}
