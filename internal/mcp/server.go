// Package mcp exposes the reminders gateway over the Model Context
// Protocol: JSON-RPC 2.0 with Content-Length framing on stdio, or one
// request per HTTP POST body. Tool failures are reported in-band as
// isError results carrying the structured fault; protocol-level errors
// use JSON-RPC error objects.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"remindgate/internal/fault"
	"remindgate/internal/service"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "remindgate"

	maxHTTPBody = 1 << 20
)

type Server struct {
	In  io.Reader
	Out io.Writer

	svc          *service.Service
	logger       *slog.Logger
	version      string
	authRequired bool
	tracer       trace.Tracer
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		if v := strings.TrimSpace(version); v != "" {
			s.version = v
		}
	}
}

// WithAuthRequired records whether the outer transport enforces bearer
// auth; it is surfaced in server_health and the status resource.
func WithAuthRequired(required bool) Option {
	return func(s *Server) {
		s.authRequired = required
	}
}

func NewServer(svc *service.Service, in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		In:      in,
		Out:     out,
		svc:     svc,
		logger:  slog.Default(),
		version: "0.0.0-dev",
		tracer:  otel.Tracer("remindgate/internal/mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads framed JSON-RPC requests from In until EOF. A malformed
// frame is answered with a parse error and the loop continues; only an
// unwritable Out ends the session early.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("nil mcp server")
	}
	if s.In == nil {
		return errors.New("nil input reader")
	}
	if s.Out == nil {
		return errors.New("nil output writer")
	}

	r := bufio.NewReader(s.In)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := readFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			resp := rpcResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: -32700, Message: "parse error"},
			}
			_ = writeFrame(s.Out, resp)
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			resp := rpcResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: -32700, Message: "parse error"},
			}
			_ = writeFrame(s.Out, resp)
			continue
		}

		resp := s.handleRequest(ctx, req)
		if resp == nil {
			continue
		}
		if err := writeFrame(s.Out, resp); err != nil {
			return err
		}
	}
}

// ServeHTTP handles one JSON-RPC request per POST body. Notifications
// are acknowledged with 202 and an empty body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxHTTPBody+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if len(body) > maxHTTPBody {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONResponse(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}

	resp := s.handleRequest(r.Context(), req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolsListResult struct {
	Tools []toolDescriptor `json:"tools"`
}

type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type toolsCallResult struct {
	Content           []toolContent `json:"content"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError,omitempty"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *Server) handleRequest(ctx context.Context, req rpcRequest) *rpcResponse {
	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, -32600, "invalid request")
	}

	switch req.Method {
	case "initialize":
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: initializeResult{
				ProtocolVersion: protocolVersion,
				Capabilities: map[string]any{
					"tools":     map[string]any{},
					"resources": map[string]any{},
				},
				ServerInfo: serverInfo{
					Name:    serverName,
					Version: s.version,
				},
			},
		}
	case "notifications/initialized":
		return nil
	case "ping":
		if req.ID == nil {
			return nil
		}
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{},
		}
	case "tools/list":
		if req.ID == nil {
			return nil
		}
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  toolsListResult{Tools: s.toolDescriptors()},
		}
	case "tools/call":
		if req.ID == nil {
			return nil
		}
		var params toolsCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.errorResponse(req.ID, -32602, "invalid params")
		}
		if strings.TrimSpace(params.Name) == "" {
			return s.errorResponse(req.ID, -32602, "invalid params: missing tool name")
		}
		if params.Arguments == nil {
			params.Arguments = map[string]any{}
		}

		result := s.callTool(ctx, params.Name, params.Arguments)
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  result,
		}
	case "resources/list":
		if req.ID == nil {
			return nil
		}
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  resourcesListResult{Resources: s.resourceDescriptors()},
		}
	case "resources/templates/list":
		if req.ID == nil {
			return nil
		}
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  resourceTemplatesResult{ResourceTemplates: s.resourceTemplates()},
		}
	case "resources/read":
		if req.ID == nil {
			return nil
		}
		var params resourcesReadParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.errorResponse(req.ID, -32602, "invalid params")
		}
		result, err := s.readResource(ctx, params.URI)
		if err != nil {
			return s.errorResponse(req.ID, -32002, err.Error())
		}
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  result,
		}
	default:
		if req.ID == nil {
			return nil
		}
		return s.errorResponse(req.ID, -32601, "method not found")
	}
}

func (s *Server) errorResponse(id any, code int, msg string) *rpcResponse {
	return &rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &rpcError{
			Code:    code,
			Message: msg,
		},
	}
}

func (s *Server) callTool(ctx context.Context, name string, args map[string]any) toolsCallResult {
	ctx, span := s.tracer.Start(ctx, "tools/call",
		trace.WithAttributes(attribute.String("mcp.tool", name)))
	defer span.End()

	handler, ok := toolHandlers[name]
	if !ok {
		return toolErrorf("unknown tool %q", name)
	}

	out, err := handler(s, ctx, args)
	if err != nil {
		span.SetAttributes(attribute.String("mcp.error_kind", string(fault.KindOf(err))))
		s.logger.Warn("tool_failed",
			slog.String("tool", name),
			slog.String("kind", string(fault.KindOf(err))),
			slog.String("error", err.Error()))
		return toolFault(err)
	}
	return toolSuccess(out)
}

func toolSuccess(out any) toolsCallResult {
	return toolsCallResult{
		Content: []toolContent{
			{Type: "text", Text: formatToolText(out)},
		},
		StructuredContent: out,
	}
}

func toolErrorf(format string, args ...any) toolsCallResult {
	msg := fmt.Sprintf(format, args...)
	return toolsCallResult{
		Content: []toolContent{
			{Type: "text", Text: msg},
		},
		StructuredContent: map[string]any{
			"error": map[string]any{
				"kind":    string(fault.KindInvalidInput),
				"message": msg,
			},
		},
		IsError: true,
	}
}

// toolFault maps a classified error to the in-band error result. The
// candidate set for ambiguous references rides along so callers can
// retry with a longer prefix.
func toolFault(err error) toolsCallResult {
	obj := map[string]any{
		"kind":    string(fault.KindOf(err)),
		"message": err.Error(),
	}
	if candidates := fault.CandidatesOf(err); len(candidates) > 0 {
		obj["candidates"] = candidates
	}
	return toolsCallResult{
		Content: []toolContent{
			{Type: "text", Text: err.Error()},
		},
		StructuredContent: map[string]any{"error": obj},
		IsError:           true,
	}
}

func formatToolText(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out
}

func validateAllowedKeys(args map[string]any, allowed map[string]struct{}, scope string) error {
	if len(args) == 0 || len(allowed) == 0 {
		return nil
	}

	unknown := make([]string, 0)
	for key := range args {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	if len(unknown) == 1 {
		return fault.Invalid("%s contains unknown key %q", scope, unknown[0])
	}
	return fault.Invalid("%s contains unknown keys: %s", scope, strings.Join(unknown, ", "))
}

func parseString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", fault.Invalid("%s must be a string", key)
	}
	return strings.TrimSpace(v), nil
}

func parseBool(args map[string]any, key string) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return false, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fault.Invalid("%s must be a boolean", key)
	}
	return v, nil
}

func parseOptionalBool(args map[string]any, key string) (*bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return nil, fault.Invalid("%s must be a boolean", key)
	}
	return &v, nil
}

func parseStringList(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fault.Invalid("%s must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		v, ok := item.(string)
		if !ok {
			return nil, fault.Invalid("%s[%d] must be a string", key, i)
		}
		out = append(out, v)
	}
	return out, nil
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:colon])
		val := strings.TrimSpace(line[colon+1:])
		if strings.EqualFold(key, "Content-Length") {
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return nil, errors.New("invalid content length")
			}
			contentLength = n
		}
	}
	if contentLength < 0 {
		return nil, errors.New("missing content length")
	}
	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeFrame(w io.Writer, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}
