package lsp

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tidwall/gjson"
)

// fakeServer is an in-process language server for tests.
type fakeServer struct {
	capabilities map[string]any
	onExit       func()

	conn *jsonrpc2.Conn

	mu       sync.Mutex
	handlers map[string]func(params gjson.Result) (any, error)
	notes    []string
	texts    map[string]string
	cancels  []int64
}

func newFakeServer(capabilities map[string]any) *fakeServer {
	return &fakeServer{
		capabilities: capabilities,
		handlers:     make(map[string]func(gjson.Result) (any, error)),
		texts:        make(map[string]string),
	}
}

// on sets the handler for a request method.
func (f *fakeServer) on(method string, h func(params gjson.Result) (any, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeServer) serve(rwc io.ReadWriteCloser) {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	f.conn = jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(f.handle))
}

func (f *fakeServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	var params gjson.Result
	if req.Params != nil {
		params = gjson.ParseBytes(*req.Params)
	}

	if req.Notif {
		f.mu.Lock()
		f.notes = append(f.notes, req.Method)
		switch req.Method {
		case "textDocument/didOpen":
			f.texts[params.Get("textDocument.uri").String()] = params.Get("textDocument.text").String()
		case "textDocument/didChange":
			f.texts[params.Get("textDocument.uri").String()] = params.Get("contentChanges.0.text").String()
		case "$/cancelRequest":
			f.cancels = append(f.cancels, params.Get("id").Int())
		}
		f.mu.Unlock()
		if req.Method == "exit" && f.onExit != nil {
			f.onExit()
		}
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		return map[string]any{
			"capabilities": f.capabilities,
			"serverInfo":   map[string]any{"name": "fake", "version": "1.0"},
		}, nil
	case "shutdown":
		return nil, nil
	}

	f.mu.Lock()
	h := f.handlers[req.Method]
	f.mu.Unlock()
	if h == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method}
	}
	return h(params)
}

func (f *fakeServer) notifications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notes...)
}

func (f *fakeServer) text(uri string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[uri]
}

func (f *fakeServer) cancelled() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cancels...)
}

// newPair connects an initialized Client to a fakeServer.
func newPair(t *testing.T, capabilities map[string]any) (*Client, *fakeServer) {
	t.Helper()
	clientSide, serverSide := net.Pipe()

	f := newFakeServer(capabilities)
	f.on("test/echo", func(params gjson.Result) (any, error) {
		return json.RawMessage(params.Raw), nil
	})
	f.serve(serverSide)

	c := NewClient(context.Background(), clientSide)
	t.Cleanup(func() {
		c.Close()
		f.conn.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Initialize(ctx, InitializeParams{RootURI: "file:///ws"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return c, f
}

// flush returns once the server has handled everything the client sent
// before it.
func flush(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Request(ctx, "test/echo", map[string]any{}); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
