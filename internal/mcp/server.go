package mcp

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"n8napp/internal/dashboard"
)

// Minimal JSON-RPC 2.0 handler that supports:
// - initialize
// - tools/list
// - tools/call
//
// Every tool drives the same dashboard controller, so all callers share one
// operator session.

type ServerOptions struct {
	Dashboard *dashboard.Controller
	Log       *zap.Logger
}

type Server struct {
	dash  *dashboard.Controller
	log   *zap.Logger
	tools []Tool
}

type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

func NewServer(opts ServerOptions) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{dash: opts.Dashboard, log: log, tools: toolset()}
}

type rpcReq struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResp struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object; the client returns it as an error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

const (
	codeParse          = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req rpcReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, rpcResp{JSONRPC: "2.0", ID: nil, Error: &RPCError{Code: codeParse, Message: "invalid JSON"}})
		return
	}

	switch req.Method {
	case "initialize":
		writeJSON(w, rpcResp{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"server": map[string]any{
				"name":    "n8napp",
				"version": "0.1",
			},
			"capabilities": map[string]any{
				"tools": true,
			},
			"time": time.Now().UTC().Format(time.RFC3339),
		}})
		return

	case "tools/list":
		writeJSON(w, rpcResp{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": s.tools}})
		return

	case "tools/call":
		var p struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
			writeJSON(w, rpcResp{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: codeInvalidParams, Message: "invalid params"}})
			return
		}

		res, err := s.callTool(r.Context(), p.Name, p.Arguments)
		if err != nil {
			s.log.Info("tool call failed", zap.String("tool", p.Name), zap.Error(err))
			code := codeToolFailed
			var pe *paramsError
			if errors.As(err, &pe) {
				code = codeInvalidParams
			}
			writeJSON(w, rpcResp{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: code, Message: err.Error()}})
			return
		}
		writeJSON(w, rpcResp{JSONRPC: "2.0", ID: req.ID, Result: res})
		return
	default:
		writeJSON(w, rpcResp{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: codeMethodNotFound, Message: "method not found"}})
		return
	}
}

// Handler mounts the tool endpoint and a health check.
func Handler(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/mcp", s)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
