package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bdobrica/Togusa/internal/togusa/intent"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

// Server exposes the local store as a JSON-RPC 2.0 endpoint.  Mount it at
// POST /rpc; every request returns exactly one response object, with store
// errors surfaced verbatim under code -32000.
type Server struct {
	store *store.Store
}

// NewServer creates a Server over the given store.
func NewServer(st *store.Store) *Server {
	return &Server{store: st}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, Response{
			JSONRPC: "2.0",
			Error:   &ResponseError{Code: CodeParseError, Message: "Parse error"},
		})
		return
	}

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	result, err := s.handle(r.Context(), req.Method, req.Params)
	if err != nil {
		resp.Error = asResponseError(err)
		slog.Debug("rpc request failed", "method", req.Method, "code", resp.Error.Code, "err", resp.Error.Message)
		writeResponse(w, resp)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = &ResponseError{Code: CodeServerError, Message: err.Error()}
		writeResponse(w, resp)
		return
	}
	resp.Result = raw
	writeResponse(w, resp)
}

// handle runs a single method against the store and returns its result value.
func (s *Server) handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "ping":
		return pingResult{Status: "ok"}, nil

	case "count_agents":
		n, err := s.store.CountAgents(ctx)
		if err != nil {
			return nil, err
		}
		return countAgentsResult{TotalAgents: n}, nil

	case "list_agents":
		agents, err := s.store.ListAgents(ctx)
		if err != nil {
			return nil, err
		}
		if agents == nil {
			agents = []string{}
		}
		return listAgentsResult{Agents: agents}, nil

	case "get_agent_roles":
		var p agentParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Agent == "" {
			return nil, invalidParams("agent is required")
		}
		roles, err := s.store.GetAgentRoles(ctx, p.Agent)
		if err != nil {
			return nil, err
		}
		if roles == nil {
			roles = []store.RoleAssignment{}
		}
		return roles, nil

	case "list_workbenches":
		list, err := s.store.ListWorkbenches(ctx)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []store.Workbench{}
		}
		return list, nil

	case "get_workbench_roles":
		var p workbenchParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return s.store.GetWorkbenchRoles(ctx, p.WorkbenchID)

	case "assign_role":
		var p assignRoleParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Agent == "" || p.Role == "" {
			return nil, invalidParams("agent and role are required")
		}
		// Accept any spelling of a standard role; the store enforces
		// membership on whatever survives canonicalization.
		role := p.Role
		if canonical := intent.CanonicalRole(role); canonical != "" {
			role = canonical
		}
		if err := s.store.AssignRole(ctx, p.Agent, p.WorkbenchID, role, p.AssignedBy); err != nil {
			return nil, err
		}
		return map[string]any{
			"message": fmt.Sprintf("Assigned %s to %s in workbench %d", role, p.Agent, p.WorkbenchID),
		}, nil

	case "create_agent":
		var p createAgentParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.AgentName == "" {
			return nil, invalidParams("agent_name is required")
		}
		if err := s.store.CreateAgent(ctx, p.AgentName); err != nil {
			return nil, err
		}
		return createAgentResult{
			Message: fmt.Sprintf("Agent '%s' created successfully", p.AgentName),
			Agent:   p.AgentName,
		}, nil

	case "create_workbench":
		var p createWorkbenchParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Name == "" {
			return nil, invalidParams("name is required")
		}
		return s.store.CreateWorkbench(ctx, p.Name, p.Description)

	case "create_task":
		var p createTaskParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.TaskID == nil {
			return nil, invalidParams("task_id is required")
		}
		workbenchID := int64(-1)
		if p.WorkbenchID != nil {
			workbenchID = *p.WorkbenchID
		}
		return s.store.CreateTask(ctx, *p.TaskID, p.Agent, workbenchID)

	case "coverage_report":
		return s.store.CoverageReport(ctx)

	case "update_task_status":
		var p updateTaskParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		status := p.Status
		if status == "" {
			status = "completed"
		}
		return s.store.UpdateTaskStatus(ctx, p.TaskID, p.Agent, status)

	case "list_recent_tasks":
		var p recentTasksParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Agent == "" {
			return nil, invalidParams("agent is required")
		}
		tasks, err := s.store.ListRecentTasks(ctx, p.Agent, p.Limit)
		if err != nil {
			return nil, err
		}
		if tasks == nil {
			tasks = []store.Task{}
		}
		return tasks, nil

	case "get_agent_stats":
		var p agentParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Agent == "" {
			return nil, invalidParams("agent is required")
		}
		return s.store.GetAgentStats(ctx, p.Agent)

	default:
		return nil, &ResponseError{Code: CodeMethodNotFound, Message: "Method not found"}
	}
}

// decodeParams unmarshals raw params into out, mapping failures to the
// invalid-params error code.
func decodeParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return invalidParams("missing params")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalidParams("invalid params: " + err.Error())
	}
	return nil
}

func invalidParams(msg string) *ResponseError {
	return &ResponseError{Code: CodeInvalidParams, Message: msg}
}

// asResponseError passes protocol errors through and wraps everything else
// (store failures included) as a server error with the message verbatim.
func asResponseError(err error) *ResponseError {
	if re, ok := err.(*ResponseError); ok {
		return re
	}
	return &ResponseError{Code: CodeServerError, Message: err.Error()}
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("rpc: failed to encode response", "err", err)
	}
}
