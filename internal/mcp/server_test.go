package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"remindgate/internal/fault"
	"remindgate/internal/pending"
	"remindgate/internal/remindctl"
	"remindgate/internal/service"
)

type scriptedRunner struct {
	status    remindctl.Status
	statusErr error
	lists     []remindctl.List
	reminders []remindctl.Reminder
	writeOut  any
	writeErr  error
}

func (f *scriptedRunner) ReadJSON(_ context.Context, args []string, out any) error {
	switch args[0] {
	case "status":
		if f.statusErr != nil {
			return f.statusErr
		}
		return reply(out, f.status)
	case "list":
		return reply(out, f.lists)
	case "show":
		return reply(out, f.reminders)
	default:
		return fault.Process(1, "unexpected read verb "+args[0])
	}
}

func (f *scriptedRunner) WriteJSON(_ context.Context, _ []string, out any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return reply(out, f.writeOut)
}

func (f *scriptedRunner) WriteDiscard(context.Context, []string) error {
	return f.writeErr
}

func reply(out, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func newTestServer(runner *scriptedRunner) *Server {
	svc := service.New(runner, pending.NewMemoryStore())
	return NewServer(svc, nil, nil, WithVersion("1.2.3-test"), WithAuthRequired(true))
}

func baseRunner() *scriptedRunner {
	return &scriptedRunner{
		status: remindctl.Status{Authorized: true, Status: "authorized"},
		lists: []remindctl.List{
			{ID: "LIST-AAAA", Title: "Groceries"},
		},
		reminders: []remindctl.Reminder{
			{ID: "AB12-CD34", Title: "milk"},
			{ID: "AB12-EF56", Title: "eggs"},
		},
	}
}

func callRPC(t *testing.T, s *Server, method string, params any) *rpcResponse {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		raw = b
	}
	return s.handleRequest(context.Background(), rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  raw,
	})
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) toolsCallResult {
	t.Helper()
	resp := callRPC(t, s, "tools/call", toolsCallParams{Name: name, Arguments: args})
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/call response = %+v", resp)
	}
	result, ok := resp.Result.(toolsCallResult)
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	return result
}

func structuredError(t *testing.T, result toolsCallResult) map[string]any {
	t.Helper()
	if !result.IsError {
		t.Fatalf("expected isError result, got %+v", result)
	}
	sc, ok := result.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("structuredContent type %T", result.StructuredContent)
	}
	obj, ok := sc["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error object in %v", sc)
	}
	return obj
}

func TestInitialize(t *testing.T) {
	s := newTestServer(baseRunner())
	resp := callRPC(t, s, "initialize", nil)
	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	init, ok := resp.Result.(initializeResult)
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	if init.ProtocolVersion != protocolVersion {
		t.Fatalf("protocolVersion = %q", init.ProtocolVersion)
	}
	if init.ServerInfo.Name != "remindgate" || init.ServerInfo.Version != "1.2.3-test" {
		t.Fatalf("serverInfo = %+v", init.ServerInfo)
	}
}

func TestToolsListCoversSurface(t *testing.T) {
	s := newTestServer(baseRunner())
	resp := callRPC(t, s, "tools/list", nil)
	list, ok := resp.Result.(toolsListResult)
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}

	want := []string{
		"server_health", "lists_list", "reminders_list",
		"reminder_add", "reminder_edit", "reminder_complete", "reminder_delete",
		"list_create", "list_rename", "list_delete",
		"pending_list", "process_pending_actions",
	}
	got := make(map[string]bool, len(list.Tools))
	for _, tool := range list.Tools {
		got[tool.Name] = true
		if tool.InputSchema["additionalProperties"] != false {
			t.Fatalf("tool %s schema allows unknown keys", tool.Name)
		}
	}
	for _, name := range want {
		if !got[name] {
			t.Fatalf("tools/list is missing %s", name)
		}
	}
	if len(list.Tools) != len(want) {
		t.Fatalf("tool count = %d, want %d", len(list.Tools), len(want))
	}
}

func TestRemindersListTool(t *testing.T) {
	s := newTestServer(baseRunner())
	result := callTool(t, s, "reminders_list", map[string]any{})
	if result.IsError {
		t.Fatalf("result = %+v", result)
	}
	sc, ok := result.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("structuredContent type %T", result.StructuredContent)
	}
	if sc["count"] != 2 {
		t.Fatalf("count = %v", sc["count"])
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v", result.Content)
	}
}

func TestToolRejectsUnknownKeys(t *testing.T) {
	s := newTestServer(baseRunner())
	result := callTool(t, s, "reminders_list", map[string]any{"fliter": "today"})
	obj := structuredError(t, result)
	if obj["kind"] != string(fault.KindInvalidInput) {
		t.Fatalf("kind = %v", obj["kind"])
	}
	if !strings.Contains(obj["message"].(string), "fliter") {
		t.Fatalf("message = %v", obj["message"])
	}
}

func TestAmbiguousCompleteSurfacesCandidates(t *testing.T) {
	s := newTestServer(baseRunner())
	result := callTool(t, s, "reminder_complete", map[string]any{"reminderId": "AB12"})
	obj := structuredError(t, result)
	if obj["kind"] != string(fault.KindAmbiguous) {
		t.Fatalf("kind = %v", obj["kind"])
	}
	candidates, ok := obj["candidates"].([]string)
	if !ok || len(candidates) != 2 {
		t.Fatalf("candidates = %v", obj["candidates"])
	}
}

func TestUnknownTool(t *testing.T) {
	s := newTestServer(baseRunner())
	result := callTool(t, s, "does_not_exist", map[string]any{})
	if !result.IsError {
		t.Fatalf("result = %+v", result)
	}
}

func TestReminderAddQueuedAck(t *testing.T) {
	runner := baseRunner()
	runner.statusErr = fault.Unavailable("remindctl gone", nil)
	s := newTestServer(runner)

	result := callTool(t, s, "reminder_add", map[string]any{"title": "buy milk"})
	if result.IsError {
		t.Fatalf("result = %+v", result)
	}
	ack, ok := result.StructuredContent.(*service.QueuedAck)
	if !ok {
		t.Fatalf("structuredContent type %T", result.StructuredContent)
	}
	if !ack.Queued || ack.Op != service.OpReminderAdd {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestServerHealthTool(t *testing.T) {
	s := newTestServer(baseRunner())
	result := callTool(t, s, "server_health", map[string]any{})
	sc := result.StructuredContent.(map[string]any)
	if sc["available"] != true || sc["authorized"] != true {
		t.Fatalf("health = %v", sc)
	}
	if sc["authRequired"] != true {
		t.Fatalf("authRequired = %v", sc["authRequired"])
	}
	if sc["pendingActions"] != 0 {
		t.Fatalf("pendingActions = %v", sc["pendingActions"])
	}
}

func TestResourcesRead(t *testing.T) {
	s := newTestServer(baseRunner())

	resp := callRPC(t, s, "resources/read", resourcesReadParams{URI: resourceStatusURI})
	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	read, ok := resp.Result.(resourcesReadResult)
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	if len(read.Contents) != 1 || read.Contents[0].MimeType != "application/json" {
		t.Fatalf("contents = %+v", read.Contents)
	}
	var status map[string]any
	if err := json.Unmarshal([]byte(read.Contents[0].Text), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status["available"] != true {
		t.Fatalf("status = %v", status)
	}

	resp = callRPC(t, s, "resources/read", resourcesReadParams{URI: "remindgate://nope"})
	if resp.Error == nil {
		t.Fatal("expected rpc error for unknown resource")
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	s := newTestServer(baseRunner())
	resp := s.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	if resp != nil {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestServeHTTP(t *testing.T) {
	s := newTestServer(baseRunner())

	body := `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Result struct {
			Tools []toolDescriptor `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Result.Tools) != 12 {
		t.Fatalf("tools = %d, want 12", len(resp.Result.Tools))
	}

	req = httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}
}

func TestServeFraming(t *testing.T) {
	runner := baseRunner()
	svc := service.New(runner, pending.NewMemoryStore())

	var in, out bytes.Buffer
	if err := writeFrame(&in, rpcRequest{JSONRPC: "2.0", ID: 1, Method: "ping"}); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	s := NewServer(svc, &in, &out)
	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	raw := out.String()
	if !strings.HasPrefix(raw, "Content-Length: ") {
		t.Fatalf("output = %q", raw)
	}
	payload := raw[strings.Index(raw, "\r\n\r\n")+4:]
	var resp map[string]any
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["jsonrpc"] != "2.0" {
		t.Fatalf("resp = %v", resp)
	}
}
