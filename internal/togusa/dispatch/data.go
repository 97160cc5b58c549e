package dispatch

import (
	"context"

	"github.com/bdobrica/Togusa/internal/togusa/store"
)

// DataAccess is the data layer the executor runs actions against. The local
// SQLite store and the remote JSON-RPC client both implement it, so the engine
// never knows which one it has. Errors cross this boundary verbatim; the
// executor surfaces their messages unchanged in collaborator-error results.
type DataAccess interface {
	CountAgents(ctx context.Context) (int, error)
	ListAgents(ctx context.Context) ([]string, error)
	GetAgentRoles(ctx context.Context, agent string) ([]store.RoleAssignment, error)
	ListWorkbenches(ctx context.Context) ([]store.Workbench, error)
	GetWorkbenchRoles(ctx context.Context, workbenchID int64) (*store.RoleMap, error)
	AssignRole(ctx context.Context, agent string, workbenchID int64, role, assignedBy string) error
	CreateAgent(ctx context.Context, name string) error
	CreateWorkbench(ctx context.Context, name, description string) (*store.Workbench, error)
	CreateTask(ctx context.Context, taskID int64, agent string, workbenchID int64) (*store.Task, error)
	CoverageReport(ctx context.Context) (*store.CoverageReport, error)
}

// AuditSink receives one entry per executed action. The SQLite store
// implements it; a nil sink disables auditing.
type AuditSink interface {
	WriteAudit(ctx context.Context, traceID, sessionID, action, target, result string, payload store.AuditPayload, errorMsg string) error
}
