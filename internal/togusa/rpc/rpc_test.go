package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bdobrica/Togusa/internal/togusa/rpc"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

// newLoopback starts a Server over a fresh temp database and returns a Client
// pointed at it, so each test exercises the full wire round-trip.
func newLoopback(t *testing.T) (*rpc.Client, *store.Store) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "togusa-rpc-test-*.db")
	if err != nil {
		t.Fatalf("create temp db file: %v", err)
	}
	f.Close()

	st, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mux := http.NewServeMux()
	mux.Handle("/rpc", rpc.NewServer(st))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return rpc.NewClient(ts.URL), st
}

func TestPing(t *testing.T) {
	client, _ := newLoopback(t)

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestAgentsOverTheWire(t *testing.T) {
	client, _ := newLoopback(t)
	ctx := context.Background()

	if err := client.CreateAgent(ctx, "alice"); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if err := client.CreateAgent(ctx, "bob"); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}

	err := client.CreateAgent(ctx, "alice")
	if err == nil {
		t.Fatal("duplicate CreateAgent succeeded")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("duplicate error: got %q, want the store message verbatim", err)
	}

	agents, err := client.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if len(agents) != 2 || agents[0] != "alice" || agents[1] != "bob" {
		t.Errorf("ListAgents: got %v, want [alice bob]", agents)
	}

	count, err := client.CountAgents(ctx)
	if err != nil {
		t.Fatalf("CountAgents: %v", err)
	}
	if count != 2 {
		t.Errorf("CountAgents: got %d, want 2", count)
	}
}

func TestWorkbenchRolesOverTheWire(t *testing.T) {
	client, _ := newLoopback(t)
	ctx := context.Background()

	wb, err := client.CreateWorkbench(ctx, "Dispute", "Handle disputes")
	if err != nil {
		t.Fatalf("CreateWorkbench: %v", err)
	}
	if wb.ID <= 0 || wb.Name != "Dispute" {
		t.Fatalf("CreateWorkbench returned %+v", wb)
	}

	// The server canonicalizes role spellings before hitting the store.
	if err := client.AssignRole(ctx, "alice", wb.ID, "reviewer", "test"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	rm, err := client.GetWorkbenchRoles(ctx, wb.ID)
	if err != nil {
		t.Fatalf("GetWorkbenchRoles: %v", err)
	}
	if len(rm.Roles["Reviewer"]) != 1 || rm.Roles["Reviewer"][0].Agent != "alice" {
		t.Errorf("Roles[Reviewer]: got %+v, want alice", rm.Roles["Reviewer"])
	}
	if rm.TotalAssignments != 1 {
		t.Errorf("TotalAssignments: got %d, want 1", rm.TotalAssignments)
	}

	agentRoles, err := client.GetAgentRoles(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAgentRoles: %v", err)
	}
	if len(agentRoles) != 1 || agentRoles[0].Role != "Reviewer" {
		t.Errorf("GetAgentRoles: got %+v, want one Reviewer row", agentRoles)
	}

	list, err := client.ListWorkbenches(ctx)
	if err != nil {
		t.Fatalf("ListWorkbenches: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Dispute" {
		t.Errorf("ListWorkbenches: got %+v", list)
	}

	report, err := client.CoverageReport(ctx)
	if err != nil {
		t.Fatalf("CoverageReport: %v", err)
	}
	if report.TotalWorkbenches != 1 || report.TotalRoleGaps != 3 {
		t.Errorf("CoverageReport: got %+v, want 1 workbench with 3 gaps", report)
	}
}

func TestTasksOverTheWire(t *testing.T) {
	client, _ := newLoopback(t)
	ctx := context.Background()

	task, err := client.CreateTask(ctx, 42, "alice", -1)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != "assigned" || task.TaskID != 42 {
		t.Errorf("CreateTask: got %+v", task)
	}

	done, err := client.UpdateTaskStatus(ctx, 42, "", "completed")
	if err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if done.CompletedAt == nil {
		t.Error("UpdateTaskStatus: CompletedAt not stamped")
	}

	recent, err := client.ListRecentTasks(ctx, "alice", 5)
	if err != nil {
		t.Fatalf("ListRecentTasks: %v", err)
	}
	if len(recent) != 1 || recent[0].TaskID != 42 {
		t.Errorf("ListRecentTasks: got %+v", recent)
	}

	stats, err := client.GetAgentStats(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAgentStats: %v", err)
	}
	if stats.CompletionRate != 100 {
		t.Errorf("CompletionRate: got %v, want 100", stats.CompletionRate)
	}
}

// postRaw sends a raw body to the server and decodes the JSON-RPC response.
func postRaw(t *testing.T, url, body string) rpc.Response {
	t.Helper()
	resp, err := http.Post(url+"/rpc", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /rpc: %v", err)
	}
	defer resp.Body.Close()

	var out rpc.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestServerProtocolErrors(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "togusa-rpc-test-*.db")
	if err != nil {
		t.Fatalf("create temp db file: %v", err)
	}
	f.Close()
	st, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mux := http.NewServeMux()
	mux.Handle("/rpc", rpc.NewServer(st))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"parse error", `{not json`, rpc.CodeParseError},
		{"method not found", `{"jsonrpc":"2.0","id":1,"method":"does_not_exist"}`, rpc.CodeMethodNotFound},
		{"missing params", `{"jsonrpc":"2.0","id":2,"method":"get_agent_roles"}`, rpc.CodeInvalidParams},
		{"wrong param type", `{"jsonrpc":"2.0","id":3,"method":"get_workbench_roles","params":{"workbench_id":"abc"}}`, rpc.CodeInvalidParams},
		{"store error", `{"jsonrpc":"2.0","id":4,"method":"get_workbench_roles","params":{"workbench_id":99}}`, rpc.CodeServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := postRaw(t, ts.URL, tc.body)
			if out.Error == nil {
				t.Fatalf("expected an error response, got result %s", out.Result)
			}
			if out.Error.Code != tc.wantCode {
				t.Errorf("code: got %d, want %d", out.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestServerRejectsNonPost(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "togusa-rpc-test-*.db")
	if err != nil {
		t.Fatalf("create temp db file: %v", err)
	}
	f.Close()
	st, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := rpc.NewServer(st)
	req := httptest.NewRequest(http.MethodGet, "/rpc", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
