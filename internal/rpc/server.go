// Package rpc serves the bookkeeping services as JSON-RPC 2.0 over HTTP.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/session"
)

// Public marks a method that needs no login.
const Public model.Role = ""

// DefaultMaxBodyBytes caps a request body when no limit is configured.
const DefaultMaxBodyBytes = 4 << 20

// Sessions resolves bearer tokens.
type Sessions interface {
	Validate(token string) (session.Session, bool, error)
}

type method struct {
	role model.Role
	call func(ctx context.Context, params json.RawMessage) (any, error)
}

// Server dispatches JSON-RPC calls to registered methods.
type Server struct {
	methods  map[string]method
	sessions Sessions
	log      *zap.Logger
	maxBody  int64
}

// NewServer creates a Server with no methods. A nil logger discards output.
func NewServer(sessions Sessions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		methods:  make(map[string]method),
		sessions: sessions,
		log:      logger.Named("rpc"),
		maxBody:  DefaultMaxBodyBytes,
	}
}

// SetMaxBodyBytes changes the request size limit.
func (s *Server) SetMaxBodyBytes(n int64) {
	if n > 0 {
		s.maxBody = n
	}
}

// Handle registers fn as method name. Params are decoded strictly into P;
// absent or null params leave P at its zero value. Callers below role get
// a forbidden error; role Public skips authentication.
func Handle[P, R any](s *Server, name string, role model.Role, fn func(ctx context.Context, p P) (R, error)) {
	if _, dup := s.methods[name]; dup {
		panic("duplicate rpc method: " + name)
	}
	s.methods[name] = method{
		role: role,
		call: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p P
			if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
				dec := json.NewDecoder(bytes.NewReader(raw))
				dec.DisallowUnknownFields()
				if err := dec.Decode(&p); err != nil {
					return nil, newError(CodeInvalidParams, "invalid params: %v", err)
				}
			}
			return fn(ctx, p)
		},
	}
}

// Methods lists the registered method names.
func (s *Server) Methods() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServeHTTP handles POST /rpc with a single request or a batch.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(nil, newError(CodeInvalidRequest, "request body exceeds %d bytes", s.maxBody)))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse(nil, newError(CodeParseError, "reading request: %v", err)))
		return
	}

	ctx, err := s.authenticate(r)
	if err != nil {
		s.log.Error("validating session", zap.Error(err))
		writeJSON(w, http.StatusOK, errorResponse(nil, &Error{Code: CodeInternal, Message: "internal error"}))
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		writeJSON(w, http.StatusOK, errorResponse(nil, newError(CodeParseError, "parse error")))
		return
	}

	if body[0] != '[' {
		if resp := s.call(ctx, body); resp != nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil || len(batch) == 0 {
		writeJSON(w, http.StatusOK, errorResponse(nil, newError(CodeInvalidRequest, "empty batch")))
		return
	}
	responses := make([]*Response, 0, len(batch))
	for _, raw := range batch {
		if resp := s.call(ctx, raw); resp != nil {
			responses = append(responses, resp)
		}
	}
	if len(responses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// call runs one request. It returns nil for notifications.
func (s *Server) call(ctx context.Context, raw json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, newError(CodeInvalidRequest, "invalid request"))
	}
	if req.JSONRPC != Version || req.Method == "" {
		return errorResponse(req.ID, newError(CodeInvalidRequest, "invalid request"))
	}

	start := time.Now()
	result, rpcErr := s.dispatch(ctx, req)
	s.log.Debug("rpc call",
		zap.String("method", req.Method),
		zap.String("request_id", middleware.GetReqID(ctx)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", rpcErr == nil))

	if req.notification() {
		return nil
	}
	if rpcErr != nil {
		return errorResponse(req.ID, rpcErr)
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.log.Error("encoding result", zap.String("method", req.Method), zap.Error(err))
		return errorResponse(req.ID, &Error{Code: CodeInternal, Message: "internal error"})
	}
	return &Response{JSONRPC: Version, Result: data, ID: req.ID}
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, *Error) {
	m, ok := s.methods[req.Method]
	if !ok {
		return nil, newError(CodeMethodNotFound, "method %q not found", req.Method)
	}
	if m.role != Public {
		sess, ok := SessionFrom(ctx)
		if !ok {
			return nil, newError(CodeUnauthorized, "login required")
		}
		if !sess.Role.Allows(m.role) {
			return nil, newError(CodeForbidden, "%s requires the %s role", req.Method, m.role)
		}
	}

	result, err := m.call(ctx, req.Params)
	if err != nil {
		rpcErr, known := errorFor(err)
		if !known {
			s.log.Error("rpc method failed", zap.String("method", req.Method), zap.Error(err))
		}
		return nil, rpcErr
	}
	return result, nil
}

// authenticate attaches the session named by the bearer token, if any, to
// the request context. Unknown or expired tokens leave the caller anonymous.
func (s *Server) authenticate(r *http.Request) (context.Context, error) {
	ctx := r.Context()
	token, ok := bearerToken(r)
	if !ok || s.sessions == nil {
		return ctx, nil
	}
	sess, ok, err := s.sessions.Validate(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, sessionKey{}, sess), nil
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type sessionKey struct{}

// SessionFrom returns the caller's session.
func SessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

// actor names the caller in audit entries.
func actor(ctx context.Context) string {
	if sess, ok := SessionFrom(ctx); ok {
		return sess.Username
	}
	return "anonymous"
}

func errorResponse(id json.RawMessage, e *Error) *Response {
	return &Response{JSONRPC: Version, Error: e, ID: id}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
