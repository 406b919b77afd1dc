package interp

import (
	"errors"
	"strings"

	"go.starlark.net/starlark"
)

// Sentinel errors.
var (
	// ErrTerminated is returned by operations after Shutdown.
	ErrTerminated = errors.New("interp: interpreter terminated")

	// ErrModuleNotFound is returned when no builtin or file module matches.
	ErrModuleNotFound = errors.New("interp: module not found")

	// ErrCircularImport is returned when a module loads itself.
	ErrCircularImport = errors.New("interp: circular import")

	// ErrNotCallable is returned by Call for targets that cannot be called.
	ErrNotCallable = errors.New("interp: not a callable")

	// ErrNotFound is returned when a callable or attribute does not exist.
	ErrNotFound = errors.New("interp: not found")

	// ErrBadArguments is returned by Call when the arguments are not a list.
	ErrBadArguments = errors.New("interp: not a parameter list")

	// ErrNoImageProvider is returned by RequestImage before a script set one.
	ErrNoImageProvider = errors.New("interp: no image provider")

	// ErrBadImageResult is returned when an image provider returns the
	// wrong shape.
	ErrBadImageResult = errors.New("interp: image provider must return (bytes, (width, height), format)")
)

// Error is a failed interpreter operation. Traceback holds the formatted
// script backtrace when the failure came from running script code.
type Error struct {
	Op        string
	Msg       string
	Err       error
	Traceback string
}

func (e *Error) Error() string {
	detail := e.Traceback
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		return e.Msg
	}
	return e.Msg + " (" + detail + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// formatError renders err the way the runtime's traceback facility does:
// one line per frame followed by the error message.
func formatError(err error) string {
	if err == nil {
		return ""
	}
	var ee *starlark.EvalError
	if errors.As(err, &ee) {
		lines := strings.Split(strings.TrimRight(ee.Backtrace(), "\n"), "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight(l, " ")
		}
		return strings.Join(lines, "\n")
	}
	return err.Error()
}
