package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cleared-dev/bukubesar/internal/journal"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/store"
	"github.com/cleared-dev/bukubesar/internal/users"
)

// Version is the only protocol version accepted.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request. A request without an id is a
// notification and gets no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

func (r Request) notification() bool { return len(r.ID) == 0 }

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error is
// set; a nil ID encodes as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is a JSON-RPC error object. Handlers may return one directly to
// pick the code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Error codes. The -32xxx range below -32099 is reserved by JSON-RPC; the
// application codes sit in the server-error range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	CodeUnauthorized = -32001
	CodeForbidden    = -32003
	CodeNotFound     = -32004
	CodeConflict     = -32009
	CodeValidation   = -32010
	CodePosted       = -32011
)

func newError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// errorFor maps a service error onto a JSON-RPC error. The second result is
// false for unexpected errors, whose message is not passed to the client.
func errorFor(err error) (*Error, bool) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	var verrs journal.ValidationErrors
	if errors.As(err, &verrs) {
		return &Error{Code: CodeValidation, Message: "transaction failed validation", Data: []journal.ValidationError(verrs)}, true
	}

	switch {
	case errors.Is(err, journal.ErrPosted), errors.Is(err, store.ErrNotDraft):
		return &Error{Code: CodePosted, Message: err.Error()}, true
	case errors.Is(err, store.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}, true
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrReferenced),
		errors.Is(err, store.ErrSequenceExhausted),
		errors.Is(err, journal.ErrAlreadyReversed),
		errors.Is(err, users.ErrLastAdmin):
		return &Error{Code: CodeConflict, Message: err.Error()}, true
	case errors.Is(err, model.ErrInvalid):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}, true
	case errors.Is(err, users.ErrInvalidCredentials):
		return &Error{Code: CodeUnauthorized, Message: err.Error()}, true
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeInternal, Message: "request timed out"}, true
	}
	return &Error{Code: CodeInternal, Message: "internal error"}, false
}
