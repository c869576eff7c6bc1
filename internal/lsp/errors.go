package lsp

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
)

// Standard errors returned by the LSP client.
var (
	// ErrNotStarted indicates the server process has not been started.
	ErrNotStarted = errors.New("lsp server not started")

	// ErrAlreadyStarted indicates the server is already running.
	ErrAlreadyStarted = errors.New("lsp server already started")

	// ErrNotInitialized indicates a request before the initialize handshake.
	ErrNotInitialized = errors.New("lsp client not initialized")

	// ErrShutdown indicates the client has been shut down.
	ErrShutdown = errors.New("lsp client shut down")

	// ErrNotSupported indicates the server does not support the requested feature.
	ErrNotSupported = errors.New("feature not supported by server")

	// ErrServerCrashed indicates the server process terminated unexpectedly.
	ErrServerCrashed = errors.New("server crashed")
)

// LSP-specific error codes, next to the JSON-RPC ones in jsonrpc2.
const (
	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
)

// ServerError represents an error related to one configured server.
type ServerError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is the server's answer to a cancelled
// or outdated request.
func IsCancelled(err error) bool {
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == CodeRequestCancelled || rpcErr.Code == CodeContentModified
}
