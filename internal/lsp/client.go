package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tidwall/gjson"

	"github.com/dshills/featurehost/internal/feature"
)

// Client speaks JSON-RPC 2.0 with Content-Length framing to one language
// server. It performs the initialize handshake, keeps the server's view of
// documents current and forwards requests.
type Client struct {
	conn   *jsonrpc2.Conn
	logger *slog.Logger

	mu          sync.RWMutex
	caps        Capabilities
	initialized bool
	shutdown    bool

	// Synced document versions by URI.
	docsMu sync.Mutex
	docs   map[string]int

	nextID atomic.Uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for server messages and protocol events.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient starts a JSON-RPC connection over rwc. The connection lives
// until Close, Shutdown or the stream ends.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, opts ...ClientOption) *Client {
	c := &Client{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		docs:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}

	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(c.handle))
	return c
}

// InitializeParams are the inputs of the initialize handshake.
type InitializeParams struct {
	// RootURI is the workspace root, or empty for none.
	RootURI string
	// Options is sent as initializationOptions.
	Options any
}

type initializeRequest struct {
	ProcessID             int               `json:"processId"`
	ClientInfo            clientInfo        `json:"clientInfo"`
	RootURI               *string           `json:"rootUri"`
	Capabilities          map[string]any    `json:"capabilities"`
	InitializationOptions any               `json:"initializationOptions,omitempty"`
	WorkspaceFolders      []workspaceFolder `json:"workspaceFolders,omitempty"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type workspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// ClientName is reported to servers in clientInfo.
const ClientName = "featurehost"

// Initialize performs the initialize handshake and returns the server's
// capabilities.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (Capabilities, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return Capabilities{}, ErrShutdown
	}
	if c.initialized {
		return c.caps, nil
	}

	req := initializeRequest{
		ProcessID:             os.Getpid(),
		ClientInfo:            clientInfo{Name: ClientName},
		Capabilities:          clientCapabilities(),
		InitializationOptions: params.Options,
	}
	if params.RootURI != "" {
		root := params.RootURI
		req.RootURI = &root
		req.WorkspaceFolders = []workspaceFolder{{URI: root, Name: root}}
	}

	var result json.RawMessage
	if err := c.conn.Call(ctx, "initialize", req, &result); err != nil {
		return Capabilities{}, fmt.Errorf("initialize request: %w", err)
	}
	if err := c.conn.Notify(ctx, "initialized", struct{}{}); err != nil {
		return Capabilities{}, fmt.Errorf("initialized notification: %w", err)
	}

	c.caps = ParseCapabilities(result)
	c.initialized = true
	c.logger.Debug("language server initialized",
		"server", c.caps.ServerName, "version", c.caps.ServerVersion, "kinds", len(c.caps.Kinds()))
	return c.caps, nil
}

// clientCapabilities declares what featurehost understands in results.
func clientCapabilities() map[string]any {
	markup := []string{"markdown", "plaintext"}
	return map[string]any{
		"textDocument": map[string]any{
			"synchronization": map[string]any{"dynamicRegistration": false},
			"hover":           map[string]any{"contentFormat": markup},
			"completion": map[string]any{
				"completionItem": map[string]any{
					"snippetSupport":      false,
					"documentationFormat": markup,
					"resolveSupport": map[string]any{
						"properties": []string{"documentation", "detail"},
					},
				},
			},
			"signatureHelp": map[string]any{
				"signatureInformation": map[string]any{"documentationFormat": markup},
				"contextSupport":       true,
			},
			"documentSymbol": map[string]any{"hierarchicalDocumentSymbolSupport": true},
			"codeAction": map[string]any{
				"codeActionLiteralSupport": map[string]any{
					"codeActionKind": map[string]any{
						"valueSet": []string{"quickfix", "refactor", "refactor.extract", "refactor.inline", "refactor.rewrite", "source", "source.organizeImports"},
					},
				},
			},
			"rename":            map[string]any{"prepareSupport": true},
			"definition":        map[string]any{"linkSupport": true},
			"references":        map[string]any{},
			"documentHighlight": map[string]any{},
			"codeLens":          map[string]any{},
			"formatting":        map[string]any{},
			"rangeFormatting":   map[string]any{},
			"onTypeFormatting":  map[string]any{},
		},
		"workspace": map[string]any{
			"symbol":           map[string]any{},
			"executeCommand":   map[string]any{},
			"workspaceFolders": true,
			"configuration":    true,
		},
	}
}

// Capabilities returns the capabilities from the initialize result.
func (c *Client) Capabilities() Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

// Sync makes the server's copy of doc current: didOpen the first time a
// URI is seen, didChange with the full text when its version moved.
func (c *Client) Sync(ctx context.Context, doc feature.Document) error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.Capabilities().NoSync {
		return nil
	}

	c.docsMu.Lock()
	defer c.docsMu.Unlock()

	uri := doc.URI()
	version, open := c.docs[uri]
	switch {
	case !open:
		err := c.conn.Notify(ctx, "textDocument/didOpen", map[string]any{
			"textDocument": map[string]any{
				"uri":        uri,
				"languageId": doc.LanguageID(),
				"version":    doc.Version(),
				"text":       feature.DocumentText(doc),
			},
		})
		if err != nil {
			return fmt.Errorf("didOpen: %w", err)
		}
	case version != doc.Version():
		err := c.conn.Notify(ctx, "textDocument/didChange", map[string]any{
			"textDocument":   map[string]any{"uri": uri, "version": doc.Version()},
			"contentChanges": []map[string]any{{"text": feature.DocumentText(doc)}},
		})
		if err != nil {
			return fmt.Errorf("didChange: %w", err)
		}
	default:
		return nil
	}
	c.docs[uri] = doc.Version()
	return nil
}

// CloseDocument tells the server the document at uri is no longer open.
func (c *Client) CloseDocument(ctx context.Context, uri string) error {
	c.docsMu.Lock()
	defer c.docsMu.Unlock()

	if _, open := c.docs[uri]; !open {
		return nil
	}
	delete(c.docs, uri)
	return c.conn.Notify(ctx, "textDocument/didClose", map[string]any{
		"textDocument": map[string]any{"uri": uri},
	})
}

// Request sends method and returns the raw result. When ctx ends first the
// server is sent $/cancelRequest for it.
func (c *Client) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	id := jsonrpc2.ID{Num: c.nextID.Add(1)}
	var result json.RawMessage
	err := c.conn.Call(ctx, method, params, &result, jsonrpc2.PickID(id))
	if ctxErr := ctx.Err(); ctxErr != nil {
		_ = c.conn.Notify(context.Background(), "$/cancelRequest", map[string]any{"id": id.Num})
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

// ExecuteCommand runs a server command through workspace/executeCommand.
func (c *Client) ExecuteCommand(ctx context.Context, command string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}
	raw, err := c.Request(ctx, "workspace/executeCommand", map[string]any{
		"command":   command,
		"arguments": args,
	})
	if err != nil {
		return nil, err
	}
	return gjson.ParseBytes(raw).Value(), nil
}

// Shutdown asks the server to shut down, sends exit and closes the
// connection.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	wasInitialized := c.initialized
	c.mu.Unlock()

	var err error
	if wasInitialized {
		if err = c.conn.Call(ctx, "shutdown", nil, nil); err == nil {
			err = c.conn.Notify(ctx, "exit", nil)
		}
	}
	if cerr := c.conn.Close(); err == nil && cerr != nil && cerr != jsonrpc2.ErrClosed {
		err = cerr
	}
	return err
}

// Close closes the connection without the shutdown handshake.
func (c *Client) Close() error {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()

	if err := c.conn.Close(); err != nil && err != jsonrpc2.ErrClosed {
		return err
	}
	return nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

func (c *Client) ready() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return ErrShutdown
	case !c.initialized:
		return ErrNotInitialized
	}
	select {
	case <-c.conn.DisconnectNotify():
		return ErrShutdown
	default:
		return nil
	}
}

// handle answers requests and notifications sent by the server.
func (c *Client) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	var params []byte
	if req.Params != nil {
		params = *req.Params
	}

	switch req.Method {
	case "window/logMessage", "window/showMessage":
		msg := gjson.GetBytes(params, "message").String()
		c.logger.Log(ctx, messageLevel(gjson.GetBytes(params, "type").Int()), msg, "source", "server")
		return nil, nil

	case "workspace/configuration":
		items := gjson.GetBytes(params, "items").Array()
		return make([]any, len(items)), nil

	case "workspace/applyEdit":
		return map[string]any{"applied": false, "failureReason": "edits are not applied by featurehost"}, nil

	case "window/workDoneProgress/create", "client/registerCapability", "client/unregisterCapability":
		return nil, nil

	case "textDocument/publishDiagnostics", "$/progress", "$/logTrace", "telemetry/event":
		return nil, nil
	}

	if req.Notif {
		return nil, nil
	}
	return nil, &jsonrpc2.Error{
		Code:    jsonrpc2.CodeMethodNotFound,
		Message: fmt.Sprintf("method not supported: %s", req.Method),
	}
}

// messageLevel maps an LSP MessageType to a log level.
func messageLevel(t int64) slog.Level {
	switch t {
	case 1:
		return slog.LevelError
	case 2:
		return slog.LevelWarn
	case 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
