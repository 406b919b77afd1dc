// Package bridge is the host-facing object that scripts and UI code talk
// through. Each Bridge owns one worker goroutine that runs its
// asynchronous requests against the shared interpreter, and a completion
// queue the host drains on its own goroutine with Poll or Run. Results,
// script events and errors are therefore always delivered on the host's
// goroutine, in the order the worker produced them.
//
// Synchronous variants run on the caller's goroutine and block it for the
// duration of the script call.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/haivivi/starside/pkg/interp"
	"github.com/haivivi/starside/pkg/queue"
	"github.com/haivivi/starside/pkg/value"
)

// ErrClosed is returned by operations on a closed Bridge.
var ErrClosed = errors.New("bridge: closed")

// Continuation receives the result of an asynchronous request on the
// host's goroutine. The result is released after it returns; clone any
// handles that must outlive the call. A returned error is reported on the
// error channel.
type Continuation func(result value.Value) error

// Handler receives the arguments of a named script event.
type Handler func(args []value.Value) error

// Bridge connects host code to the shared interpreter.
type Bridge struct {
	in      *interp.Interpreter
	version Version
	logger  *slog.Logger

	requests    *queue.Queue[request]
	completions *queue.Queue[completion]
	unsubscribe func()
	workerDone  chan struct{}
	closed      atomic.Bool

	mu         sync.Mutex
	pending    map[uuid.UUID]Continuation
	handlers   map[string]Handler
	onError    func(msg string)
	onReceived func(data value.Value)
}

// request is one unit of work for the worker. The continuation stays on
// the host side, keyed by id.
type request struct {
	id  uuid.UUID
	op  string
	run func() (value.Value, error)
}

// completion is a finished request or a script event.
type completion struct {
	id     uuid.UUID
	op     string
	result value.Value
	err    error
	event  *interp.Event
}

// discard releases the handles c holds without delivering it.
func (c completion) discard() {
	c.result.Release()
	if c.event != nil {
		for _, a := range c.event.Args {
			a.Release()
		}
	}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithInterpreter runs the bridge against i instead of interp.Instance().
func WithInterpreter(i *interp.Interpreter) Option {
	return func(b *Bridge) {
		b.in = i
	}
}

// WithLogger sets the logger for unhandled errors.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a bridge speaking API version v and starts its worker.
func New(v Version, opts ...Option) (*Bridge, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, v)
	}
	b := &Bridge{
		version:     v,
		logger:      slog.Default(),
		requests:    queue.New[request](),
		completions: queue.New[completion](),
		workerDone:  make(chan struct{}),
		pending:     make(map[uuid.UUID]Continuation),
		handlers:    make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.in == nil {
		b.in = interp.Instance(interp.WithLogger(b.logger))
	}
	b.unsubscribe = b.in.Subscribe(b.enqueueEvent)
	go b.work()
	return b, nil
}

// Version returns the API version the bridge was created with.
func (b *Bridge) Version() Version { return b.version }

// Interpreter returns the interpreter the bridge runs against.
func (b *Bridge) Interpreter() *interp.Interpreter { return b.in }

func (b *Bridge) work() {
	defer close(b.workerDone)
	for {
		req, err := b.requests.Pop(context.Background())
		if err != nil {
			return
		}
		res, err := req.run()
		if perr := b.completions.Push(completion{id: req.id, op: req.op, result: res, err: err}); perr != nil {
			res.Release()
		}
	}
}

// enqueueEvent runs on the goroutine executing the script.
func (b *Bridge) enqueueEvent(ev interp.Event) {
	args := make([]value.Value, len(ev.Args))
	for n, a := range ev.Args {
		args[n] = cloneValue(a)
	}
	ev.Args = args
	if err := b.completions.Push(completion{event: &ev}); err != nil {
		for _, a := range args {
			a.Release()
		}
	}
}

func (b *Bridge) submit(op string, cont Continuation, run func() (value.Value, error)) error {
	if b.closed.Load() {
		return ErrClosed
	}
	id := uuid.New()
	if cont != nil {
		b.mu.Lock()
		b.pending[id] = cont
		b.mu.Unlock()
	}
	if err := b.requests.Push(request{id: id, op: op, run: run}); err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// Pending reports the number of submitted requests whose continuation has
// not run yet.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Poll delivers every queued completion and event on the calling
// goroutine and returns how many it delivered.
func (b *Bridge) Poll() int {
	items := b.completions.Drain()
	for _, c := range items {
		if b.closed.Load() {
			c.discard()
			continue
		}
		b.dispatch(c)
	}
	return len(items)
}

// Run delivers completions as they arrive until ctx is done or the bridge
// is closed.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		b.Poll()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.completions.Done():
			b.Poll()
			return nil
		case <-b.completions.Ready():
		}
	}
}

func (b *Bridge) dispatch(c completion) {
	if c.event != nil {
		b.deliver(*c.event)
		return
	}
	defer c.result.Release()

	if c.err != nil {
		b.report(c.err)
	}
	b.mu.Lock()
	cont := b.pending[c.id]
	delete(b.pending, c.id)
	b.mu.Unlock()
	if cont == nil {
		return
	}
	if err := cont(c.result); err != nil {
		b.callbackError(fmt.Sprintf("%s callback failed", c.op), err)
	}
}

// deliver routes a script event to its named handler, or to the received
// listener as [name, args...].
func (b *Bridge) deliver(ev interp.Event) {
	defer func() {
		for _, a := range ev.Args {
			a.Release()
		}
	}()

	b.mu.Lock()
	h := b.handlers[ev.Name]
	recv := b.onReceived
	b.mu.Unlock()

	if h != nil && ev.Name != "" {
		if err := h(ev.Args); err != nil {
			b.callbackError(fmt.Sprintf("starside.send() failed handler %q", ev.Name), err)
		}
		return
	}
	if recv == nil {
		b.logger.Debug("bridge: event not handled", "event", ev.Name)
		return
	}
	items := ev.Args
	if ev.Name != "" {
		items = append([]value.Value{value.Str(ev.Name)}, ev.Args...)
	}
	recv(value.List(items...))
}

// callbackError reports an error raised by host code called from the
// bridge. API 1.0 only logs them.
func (b *Bridge) callbackError(where string, err error) {
	msg := fmt.Sprintf("%s: %v", where, err)
	if !b.version.AtLeast(1, 2) {
		b.logger.Error("bridge: "+msg)
		return
	}
	b.emitError(msg)
}

// report emits err on the error channel, one message per joined error.
func (b *Bridge) report(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			b.emitError(e.Error())
		}
		return
	}
	b.emitError(err.Error())
}

func (b *Bridge) emitError(msg string) {
	b.mu.Lock()
	fn := b.onError
	b.mu.Unlock()
	if fn == nil {
		b.logger.Error("Unhandled starside error", "error", msg)
		return
	}
	fn(msg)
}

// OnError sets the error listener. Without one, errors are logged.
func (b *Bridge) OnError(fn func(msg string)) {
	b.mu.Lock()
	b.onError = fn
	b.mu.Unlock()
}

// OnReceived sets the listener for script events without a named handler.
func (b *Bridge) OnReceived(fn func(data value.Value)) {
	b.mu.Lock()
	b.onReceived = fn
	b.mu.Unlock()
}

// SetHandler routes events named event to h. A nil h removes the route.
func (b *Bridge) SetHandler(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h == nil {
		delete(b.handlers, event)
		return
	}
	b.handlers[event] = h
}

// Close stops the worker after the request in flight, drops queued
// requests and undelivered completions, and detaches from script events.
// The shared interpreter keeps running.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.unsubscribe()
	b.requests.CloseWithError(ErrClosed)
	<-b.workerDone

	// A push after Close fails and releases its own values.
	b.completions.Close()
	for _, c := range b.completions.Drain() {
		c.discard()
	}

	b.mu.Lock()
	clear(b.pending)
	b.mu.Unlock()
	return nil
}

// cloneValue gives the bridge its own references to any handles in v.
func cloneValue(v value.Value) value.Value {
	switch v.Tag() {
	case value.TagForeign:
		return value.Foreign(v.ForeignHandle().Clone())
	case value.TagList:
		items := v.Items()
		out := make([]value.Value, len(items))
		for n, x := range items {
			out[n] = cloneValue(x)
		}
		return value.List(out...)
	case value.TagDict:
		m := v.Map()
		out := make(map[string]value.Value, len(m))
		for k, x := range m {
			out[k] = cloneValue(x)
		}
		return value.Dict(out)
	}
	return v
}
