package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bdobrica/Togusa/common/trace"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

const defaultTimeout = 10 * time.Second

// Client is a JSON-RPC client for a remote ops-center data server.  It
// implements the same data-access surface as the local store, so the engine
// can run against either without knowing which one it has.
type Client struct {
	baseURL    string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewClient creates a client targeting the given base URL
// (e.g. "http://10.0.0.5:9000").  The "/rpc" path is appended per call.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// --- method params and results shared with the server ---

type agentParams struct {
	Agent string `json:"agent"`
}

type workbenchParams struct {
	WorkbenchID int64 `json:"workbench_id"`
}

type assignRoleParams struct {
	Agent       string `json:"agent"`
	WorkbenchID int64  `json:"workbench_id"`
	Role        string `json:"role"`
	AssignedBy  string `json:"assigned_by,omitempty"`
}

type createAgentParams struct {
	AgentName string `json:"agent_name"`
}

type createWorkbenchParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type createTaskParams struct {
	TaskID      *int64 `json:"task_id"`
	Agent       string `json:"agent,omitempty"`
	WorkbenchID *int64 `json:"workbench_id,omitempty"`
}

type updateTaskParams struct {
	TaskID int64  `json:"task_id"`
	Agent  string `json:"agent,omitempty"`
	Status string `json:"status,omitempty"`
}

type recentTasksParams struct {
	Agent string `json:"agent"`
	Limit int    `json:"limit,omitempty"`
}

type countAgentsResult struct {
	TotalAgents int `json:"total_agents"`
}

type listAgentsResult struct {
	Agents []string `json:"agents"`
}

type createAgentResult struct {
	Message string `json:"message"`
	Agent   string `json:"agent"`
}

type pingResult struct {
	Status string `json:"status"`
}

// --- data access methods ---

// CountAgents returns the number of distinct agents known to the server.
func (c *Client) CountAgents(ctx context.Context) (int, error) {
	var res countAgentsResult
	if err := c.call(ctx, "count_agents", nil, &res); err != nil {
		return 0, err
	}
	return res.TotalAgents, nil
}

// ListAgents returns all agent names.
func (c *Client) ListAgents(ctx context.Context) ([]string, error) {
	var res listAgentsResult
	if err := c.call(ctx, "list_agents", nil, &res); err != nil {
		return nil, err
	}
	return res.Agents, nil
}

// GetAgentRoles returns every active role assignment for an agent.
func (c *Client) GetAgentRoles(ctx context.Context, agent string) ([]store.RoleAssignment, error) {
	var res []store.RoleAssignment
	if err := c.call(ctx, "get_agent_roles", agentParams{Agent: agent}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListWorkbenches returns all workbenches.
func (c *Client) ListWorkbenches(ctx context.Context) ([]store.Workbench, error) {
	var res []store.Workbench
	if err := c.call(ctx, "list_workbenches", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetWorkbenchRoles returns the role map for a workbench.
func (c *Client) GetWorkbenchRoles(ctx context.Context, workbenchID int64) (*store.RoleMap, error) {
	var res store.RoleMap
	if err := c.call(ctx, "get_workbench_roles", workbenchParams{WorkbenchID: workbenchID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AssignRole assigns a standard role to an agent in a workbench.
func (c *Client) AssignRole(ctx context.Context, agent string, workbenchID int64, role, assignedBy string) error {
	return c.call(ctx, "assign_role", assignRoleParams{
		Agent:       agent,
		WorkbenchID: workbenchID,
		Role:        role,
		AssignedBy:  assignedBy,
	}, nil)
}

// CreateAgent registers a new agent name.
func (c *Client) CreateAgent(ctx context.Context, name string) error {
	var res createAgentResult
	return c.call(ctx, "create_agent", createAgentParams{AgentName: name}, &res)
}

// CreateWorkbench creates a workbench and returns it with its assigned id.
func (c *Client) CreateWorkbench(ctx context.Context, name, description string) (*store.Workbench, error) {
	var res store.Workbench
	if err := c.call(ctx, "create_workbench", createWorkbenchParams{Name: name, Description: description}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateTask records a new task, optionally bound to an agent and workbench.
// A negative workbenchID means unbound, matching the store convention.
func (c *Client) CreateTask(ctx context.Context, taskID int64, agent string, workbenchID int64) (*store.Task, error) {
	params := createTaskParams{TaskID: &taskID, Agent: agent}
	if workbenchID >= 0 {
		params.WorkbenchID = &workbenchID
	}
	var res store.Task
	if err := c.call(ctx, "create_task", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CoverageReport returns the staffing coverage report across all workbenches.
func (c *Client) CoverageReport(ctx context.Context) (*store.CoverageReport, error) {
	var res store.CoverageReport
	if err := c.call(ctx, "coverage_report", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateTaskStatus changes a task's status, stamping completed_at when the
// status becomes "completed".
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID int64, agent, status string) (*store.Task, error) {
	var res store.Task
	err := c.call(ctx, "update_task_status", updateTaskParams{TaskID: taskID, Agent: agent, Status: status}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRecentTasks returns an agent's most recently completed tasks.
func (c *Client) ListRecentTasks(ctx context.Context, agent string, limit int) ([]store.Task, error) {
	var res []store.Task
	if err := c.call(ctx, "list_recent_tasks", recentTasksParams{Agent: agent, Limit: limit}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetAgentStats returns task totals and the completion rate for an agent.
func (c *Client) GetAgentStats(ctx context.Context, agent string) (*store.AgentStats, error) {
	var res store.AgentStats
	if err := c.call(ctx, "get_agent_stats", agentParams{Agent: agent}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ping checks that the remote server is reachable and answering.
func (c *Client) Ping(ctx context.Context) error {
	var res pingResult
	if err := c.call(ctx, "ping", nil, &res); err != nil {
		return err
	}
	if res.Status != "ok" {
		return fmt.Errorf("rpc ping: unexpected status %q", res.Status)
	}
	return nil
}

// --- internal ---

// call posts a single JSON-RPC request and decodes the result into out.
// A JSON-RPC error response is returned as *ResponseError with the server's
// message verbatim.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("rpc %s: marshal params: %w", method, err)
		}
		raw = b
	}

	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return fmt.Errorf("rpc %s: marshal request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if traceID := trace.FromContext(ctx); traceID != "" {
		httpReq.Header.Set("X-Trace-ID", traceID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("rpc %s: read response: %w", method, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: status %d", method, httpResp.StatusCode)
	}

	var resp Response
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return fmt.Errorf("rpc %s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("rpc %s: decode result: %w", method, err)
		}
	}
	return nil
}
