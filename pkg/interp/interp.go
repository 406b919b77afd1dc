// Package interp manages the process-wide Starlark interpreter shared by
// every bridge: its lifecycle, the shared global namespace, module imports,
// and the evaluate/call primitives built on the value converter.
//
// All operations hold the runtime's GIL for their duration. The GIL is
// free between operations, so host loops are never blocked by an idle
// interpreter.
package interp

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/haivivi/starside/pkg/convert"
	"github.com/haivivi/starside/pkg/foreign"
	"github.com/haivivi/starside/pkg/settings"
)

// PluginVersion is the bridge version reported to scripts as
// starside.version.
const PluginVersion = "1.5.1"

// State is the interpreter lifecycle state.
type State int32

const (
	Uninitialized State = iota
	Running
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// fileOptions enables the statement forms scripts written for a general
// purpose language expect at top level.
var fileOptions = &syntax.FileOptions{
	Set:               true,
	While:             true,
	TopLevelControl:   true,
	GlobalReassign:    true,
	LoadBindsGlobally: true,
	Recursion:         true,
}

// Interpreter is the embedded runtime with its shared namespace.
type Interpreter struct {
	rt     *foreign.Runtime
	gil    *foreign.GIL
	logger *slog.Logger
	state  atomic.Int32

	// Guarded by the GIL.
	globals       starlark.StringDict
	paths         []string
	modules       map[string]starlark.Value
	loading       map[string]bool
	builtins      map[string]func() starlark.Value
	pending       error
	atexit        starlark.Callable
	imageProvider starlark.Callable

	settings settings.Store
	print    func(thread, msg string)
	maxDepth int

	subsMu  sync.Mutex
	subs    map[uint64]func(Event)
	nextSub uint64
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithImportPaths sets the initial module search path.
func WithImportPaths(paths ...string) Option {
	return func(i *Interpreter) {
		i.paths = append(i.paths, paths...)
	}
}

// WithMaxDepth sets the conversion nesting limit.
func WithMaxDepth(depth int) Option {
	return func(i *Interpreter) {
		i.maxDepth = depth
	}
}

// WithLogger sets the logger for script diagnostics and unhandled errors.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithSettings backs the settings module with s. The interpreter closes
// it on Shutdown.
func WithSettings(s settings.Store) Option {
	return func(i *Interpreter) {
		i.settings = s
	}
}

// WithPrint handles the script print builtin.
func WithPrint(fn func(thread, msg string)) Option {
	return func(i *Interpreter) {
		i.print = fn
	}
}

var (
	instanceOnce sync.Once
	instance     *Interpreter
)

// Instance returns the process-wide interpreter, starting it on first use.
// Options only apply to the call that creates it.
func Instance(opts ...Option) *Interpreter {
	instanceOnce.Do(func() {
		instance = New(opts...)
	})
	return instance
}

// New creates and starts an interpreter independent of Instance.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		logger:   slog.Default(),
		maxDepth: convert.DefaultMaxDepth,
		modules:  make(map[string]starlark.Value),
		loading:  make(map[string]bool),
		subs:     make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.start()
	return i
}

func (i *Interpreter) start() {
	i.rt = foreign.NewRuntime(foreign.WithMaxDepth(i.maxDepth), foreign.WithLogger(i.logger))
	i.gil = i.rt.GIL()

	i.gil.Ensure()
	defer i.gil.Release()

	if i.settings == nil {
		i.settings = settings.NewMemory(nil)
	}
	if i.print == nil {
		i.print = func(thread, msg string) {
			i.logger.Info(msg, "thread", thread)
		}
	}
	i.globals = make(starlark.StringDict)
	i.registerBuiltins()
	i.state.Store(int32(Running))
}

// State returns the lifecycle state.
func (i *Interpreter) State() State { return State(i.state.Load()) }

// Runtime returns the foreign runtime backing the interpreter.
func (i *Interpreter) Runtime() *foreign.Runtime { return i.rt }

// Logger returns the interpreter's logger.
func (i *Interpreter) Logger() *slog.Logger { return i.logger }

// RuntimeVersion reports the version of the embedded Starlark module.
func (i *Interpreter) RuntimeVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "starlark (unknown)"
	}
	for _, dep := range info.Deps {
		if dep.Path == "go.starlark.net" {
			return "starlark " + dep.Version
		}
	}
	return "starlark (unknown)"
}

// PluginVersion reports the bridge version.
func (i *Interpreter) PluginVersion() string { return PluginVersion }

// SetShutdownCallback registers fn to be called once by Shutdown. A nil fn
// clears the callback.
func (i *Interpreter) SetShutdownCallback(fn starlark.Callable) {
	i.gil.Do(func() { i.atexit = fn })
}

// Shutdown runs the shutdown callback, drops every script reference held
// by the interpreter, and terminates it. Later calls are no-ops.
func (i *Interpreter) Shutdown() {
	if !i.state.CompareAndSwap(int32(Running), int32(ShuttingDown)) {
		return
	}

	i.gil.Ensure()
	defer i.gil.Release()

	if fn := i.atexit; fn != nil {
		i.atexit = nil
		if _, err := starlark.Call(i.thread("atexit"), fn, nil, nil); err != nil {
			i.logger.Error("interp: shutdown callback failed", "error", formatError(err))
		}
	}
	// A script suspended in a host method may still resume and touch these.
	i.imageProvider = nil
	i.globals = starlark.StringDict{}
	i.modules = map[string]starlark.Value{}
	i.pending = nil

	if i.settings != nil {
		if err := i.settings.Close(); err != nil {
			i.logger.Warn("interp: close settings", "error", err)
		}
	}
	i.state.Store(int32(Terminated))
}

// enter takes the GIL and checks that the interpreter is running. The
// returned function releases the GIL.
func (i *Interpreter) enter() (func(), error) {
	if i.State() != Running {
		return nil, ErrTerminated
	}
	i.gil.Ensure()
	if i.State() != Running {
		i.gil.Release()
		return nil, ErrTerminated
	}
	return i.gil.Release, nil
}

func (i *Interpreter) thread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(t *starlark.Thread, msg string) {
			i.print(t.Name, msg)
		},
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return i.loadMembers(module)
		},
	}
}

// fail records err as the pending exception and wraps it.
func (i *Interpreter) fail(op, msg string, err error) error {
	i.pending = err
	return &Error{Op: op, Msg: msg, Err: err, Traceback: formatError(err)}
}

// FormatException renders the pending script exception and clears it.
// It returns "" when nothing is pending.
func (i *Interpreter) FormatException() string {
	i.gil.Ensure()
	defer i.gil.Release()
	err := i.pending
	i.pending = nil
	return formatError(err)
}
