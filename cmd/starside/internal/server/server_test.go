package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/starside/cmd/starside/internal/server"
	"github.com/haivivi/starside/pkg/bridge"
	"github.com/haivivi/starside/pkg/interp"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newServer(t *testing.T, src string) *httptest.Server {
	t.Helper()
	in := interp.New(interp.WithLogger(discard()))
	t.Cleanup(in.Shutdown)
	if src != "" {
		if err := in.Exec(src); err != nil {
			t.Fatalf("Exec: %v", err)
		}
	}
	srv, err := server.New(in, bridge.Latest, discard())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Wait()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req string) server.Frame {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) server.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f server.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestRequestSchema(t *testing.T) {
	s, err := server.RequestSchema()
	if err != nil {
		t.Fatalf("RequestSchema: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"op"`, `"importNames"`, `"required":["op"]`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("schema missing %s: %s", want, data)
		}
	}
}

func TestOps(t *testing.T) {
	ts := newServer(t, "def greet(name):\n    return \"hello \" + name\n")
	conn := dial(t, ts)

	tests := []struct {
		req   string
		ok    bool
		value any
		err   string
	}{
		{`{"id": "1", "op": "evaluate", "target": "[x*x for x in range(3)]"}`, true, []any{0.0, 1.0, 4.0}, ""},
		{`{"id": "2", "op": "call", "target": "greet", "args": ["world"]}`, true, "hello world", ""},
		{`{"id": "3", "op": "call", "target": "len", "args": ["abcd"]}`, true, 4.0, ""},
		{`{"id": "4", "op": "import", "target": "math"}`, true, true, ""},
		{`{"id": "5", "op": "exec", "target": "y = math.floor(2.5)"}`, true, nil, ""},
		{`{"id": "6", "op": "evaluate", "target": "y"}`, true, 2.0, ""},
		{`{"id": "7", "op": "importNames", "target": "math", "names": ["pi", "nope"]}`, false, true, "Object 'nope' is not found"},
		{`{"id": "8", "op": "call", "target": "nope"}`, false, nil, "Function not found: 'nope'"},
	}
	for _, tt := range tests {
		f := roundTrip(t, conn, tt.req)
		if f.Type != "result" || f.OK != tt.ok {
			t.Fatalf("%s: frame = %+v", tt.req, f)
		}
		got, _ := json.Marshal(f.Value)
		want, _ := json.Marshal(tt.value)
		if string(got) != string(want) {
			t.Errorf("%s: value = %s, want %s", tt.req, got, want)
		}
		if !strings.Contains(f.Error, tt.err) {
			t.Errorf("%s: error = %q, want %q", tt.req, f.Error, tt.err)
		}
	}
}

func TestInvalidFrames(t *testing.T) {
	ts := newServer(t, "")
	conn := dial(t, ts)

	for _, req := range []string{
		`not json`,
		`{"target": "1"}`,
		`{"op": "drop"}`,
		`{"op": "call", "target": "len", "args": "abc"}`,
		`{"op": "evaluate", "extra": 1}`,
	} {
		f := roundTrip(t, conn, req)
		if f.Type != "error" || !strings.HasPrefix(f.Error, "invalid frame") {
			t.Errorf("%s: frame = %+v", req, f)
		}
	}
}

func TestAssignsID(t *testing.T) {
	ts := newServer(t, "")
	conn := dial(t, ts)

	f := roundTrip(t, conn, `{"op": "version"}`)
	if f.ID == "" || !f.OK {
		t.Fatalf("frame = %+v", f)
	}
	v, _ := f.Value.(map[string]any)
	if v["plugin"] != interp.PluginVersion || v["api"] != bridge.Latest.String() {
		t.Fatalf("version = %v", f.Value)
	}
}

func TestEventsReachEveryConnection(t *testing.T) {
	ts := newServer(t, "load(\"starside\", \"send\")\n")
	a := dial(t, ts)
	b := dial(t, ts)
	// Both sessions exist once each has answered a request.
	roundTrip(t, b, `{"op": "version"}`)

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"id": "s", "op": "exec", "target": "send(\"progress\", 0.5)"}`)); err != nil {
		t.Fatal(err)
	}
	var sawEvent, sawResult bool
	for !sawEvent || !sawResult {
		f := read(t, a)
		switch f.Type {
		case "event":
			if f.Event != "progress" || len(f.Args) != 1 || f.Args[0] != 0.5 {
				t.Fatalf("event = %+v", f)
			}
			sawEvent = true
		case "result":
			sawResult = f.ID == "s" && f.OK
		}
	}

	f := read(t, b)
	if f.Type != "event" || f.Event != "progress" {
		t.Fatalf("second connection got %+v", f)
	}
}

func TestImage(t *testing.T) {
	ts := newServer(t, `load("starside", "set_image_provider", "format_rgb888")

def provide(id, size):
    w, h = size
    return ("ABC" * (w * h), (w, h), format_rgb888)

set_image_provider(provide)
`)
	conn := dial(t, ts)

	f := roundTrip(t, conn, `{"op": "image", "target": "tile", "args": [2, 2]}`)
	s, _ := f.Value.(string)
	if !f.OK || !strings.HasPrefix(s, "data:image/png;base64,") {
		t.Fatalf("frame = %+v", f)
	}
	f = roundTrip(t, conn, `{"op": "image", "target": "tile", "args": [2]}`)
	if f.OK || !strings.Contains(f.Error, "[width, height]") {
		t.Fatalf("frame = %+v", f)
	}
}
