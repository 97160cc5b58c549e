// Package rpc implements JSON-RPC 2.0 over HTTP for the ops-center data
// plane: a Client that talks to a remote data server, and a Server handler
// that exposes the local store under the same contract.
package rpc

import "encoding/json"

// JSON-RPC 2.0 error codes used on this wire.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)

// Request is a JSON-RPC 2.0 request.  Params is kept raw so the server can
// decode it per method.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.  Result is kept raw so the client can
// decode it into the caller's typed value.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error field in a JSON-RPC 2.0 response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *ResponseError) Error() string { return e.Message }
