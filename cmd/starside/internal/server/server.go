// Package server exposes the shared interpreter to remote UIs over
// WebSocket. Every connection gets its own bridge. Requests are JSON
// frames answered in order; script events are pushed to every connection
// as they are sent.
//
// Request:
//
//	{"id": "1", "op": "call", "target": "math.floor", "args": [2.5]}
//
// Response and event:
//
//	{"type": "result", "id": "1", "ok": true, "value": 2}
//	{"type": "event", "event": "progress", "args": [0.5]}
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"reflect"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/haivivi/starside/pkg/bridge"
	"github.com/haivivi/starside/pkg/cli"
	"github.com/haivivi/starside/pkg/imageprovider"
	"github.com/haivivi/starside/pkg/interp"
	"github.com/haivivi/starside/pkg/value"
)

// Ops lists the request operations.
var Ops = []string{"evaluate", "exec", "import", "importNames", "call", "image", "version"}

// Request is a client frame.
type Request struct {
	ID     string          `json:"id,omitempty" jsonschema:"echoed in the response; assigned when empty"`
	Op     string          `json:"op" jsonschema:"operation to run"`
	Target string          `json:"target,omitempty" jsonschema:"expression, source, module, callable or image id"`
	Names  []string        `json:"names,omitempty" jsonschema:"names for importNames"`
	Args   json.RawMessage `json:"args,omitempty" jsonschema:"argument list for call, [width, height] for image"`
}

// Frame is a server frame.
type Frame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok,omitempty"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
	Event string `json:"event,omitempty"`
	Args  []any  `json:"args,omitempty"`
}

// RequestSchema returns the schema incoming frames are validated against.
func RequestSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[Request](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[json.RawMessage](): {Type: "array"},
		},
	})
	if err != nil {
		return nil, err
	}
	ops := make([]any, len(Ops))
	for n, op := range Ops {
		ops[n] = op
	}
	s.Properties["op"].Enum = ops
	return s, nil
}

// Server is an http.Handler upgrading requests to WebSocket sessions.
type Server struct {
	in       *interp.Interpreter
	version  bridge.Version
	logger   *slog.Logger
	schema   *jsonschema.Resolved
	upgrader websocket.Upgrader

	wg sync.WaitGroup
}

// New creates a server whose sessions speak API version v against in.
func New(in *interp.Interpreter, v bridge.Version, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := RequestSchema()
	if err != nil {
		return nil, fmt.Errorf("server: request schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("server: resolve schema: %w", err)
	}
	return &Server{
		in:      in,
		version: v,
		logger:  logger,
		schema:  resolved,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Wait blocks until every session has ended.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("server: upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	sess, err := s.newSession(ws)
	if err != nil {
		s.logger.Error("server: new session", "error", err)
		ws.Close()
		return
	}
	sess.serve(r.Context())
}

type session struct {
	srv *Server
	ws  *websocket.Conn
	b   *bridge.Bridge
	log *slog.Logger

	wmu sync.Mutex
}

func (s *Server) newSession(ws *websocket.Conn) (*session, error) {
	log := s.logger.With("remote", ws.RemoteAddr().String())
	b, err := bridge.New(s.version, bridge.WithInterpreter(s.in), bridge.WithLogger(log))
	if err != nil {
		return nil, err
	}
	sess := &session{srv: s, ws: ws, b: b, log: log}
	// Request errors are carried by the result frame.
	b.OnError(func(msg string) { log.Debug("server: script error", "error", msg) })
	b.OnReceived(sess.forward)
	return sess, nil
}

func (ss *session) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer ss.ws.Close()
	defer ss.b.Close()

	go ss.b.Run(ctx)

	ss.log.Info("server: session started")
	for {
		_, data, err := ss.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ss.log.Debug("server: read", "error", err)
			}
			ss.log.Info("server: session ended")
			return
		}
		ss.handle(data)
	}
}

func (ss *session) handle(data []byte) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		ss.write(Frame{Type: "error", Error: fmt.Sprintf("invalid frame: %v", err)})
		return
	}
	if err := ss.srv.schema.Validate(raw); err != nil {
		ss.write(Frame{Type: "error", Error: fmt.Sprintf("invalid frame: %v", err)})
		return
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		ss.write(Frame{Type: "error", Error: fmt.Sprintf("invalid frame: %v", err)})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	res, err := ss.run(req)
	f := Frame{Type: "result", ID: req.ID, OK: err == nil, Value: res}
	if err != nil {
		f.Error = err.Error()
	}
	ss.write(f)
}

func (ss *session) run(req Request) (any, error) {
	switch req.Op {
	case "evaluate":
		return native(ss.b.Evaluate(req.Target))
	case "exec":
		return nil, ss.b.Exec(req.Target)
	case "import":
		ok, err := ss.b.ImportModuleSync(req.Target)
		return ok, err
	case "importNames":
		ok, err := ss.b.ImportNamesSync(req.Target, req.Names)
		return ok, err
	case "call":
		args := value.List()
		if len(req.Args) > 0 {
			var err error
			if args, err = cli.ParseArgs(req.Args, ""); err != nil {
				return nil, err
			}
		}
		return native(ss.b.CallSync(value.Str(req.Target), args))
	case "image":
		return ss.image(req)
	case "version":
		return map[string]any{
			"plugin":  ss.b.PluginVersion(),
			"runtime": ss.b.RuntimeVersion(),
			"api":     ss.b.Version().String(),
		}, nil
	}
	return nil, fmt.Errorf("unknown op %q", req.Op)
}

// image returns the provider's image as a PNG data URL.
func (ss *session) image(req Request) (any, error) {
	var size imageprovider.Size
	if len(req.Args) > 0 {
		var wh []int
		if err := json.Unmarshal(req.Args, &wh); err != nil || len(wh) != 2 {
			return nil, fmt.Errorf("image args must be [width, height]")
		}
		size = imageprovider.Size{Width: wh[0], Height: wh[1]}
	}
	img, err := ss.b.RequestImage(req.Target, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// forward pushes a script event. data is [name, args...].
func (ss *session) forward(data value.Value) {
	items := data.Items()
	f := Frame{Type: "event"}
	if len(items) > 0 && items[0].Tag() == value.TagString {
		f.Event = items[0].Str()
		items = items[1:]
	}
	f.Args = make([]any, len(items))
	for n, x := range items {
		f.Args[n] = x.Native()
	}
	ss.write(f)
}

func (ss *session) write(f Frame) {
	ss.wmu.Lock()
	defer ss.wmu.Unlock()
	if err := ss.ws.WriteJSON(f); err != nil {
		ss.log.Debug("server: write", "error", err)
	}
}

func native(v value.Value, err error) (any, error) {
	defer v.Release()
	if err != nil {
		return nil, err
	}
	return v.Native(), nil
}
