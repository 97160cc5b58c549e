package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdobrica/Togusa/internal/togusa/envelope"
	"github.com/bdobrica/Togusa/internal/togusa/intent"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

func (x *Executor) handleListAgents(ctx context.Context, _ intent.Args) envelope.Result {
	agents, err := x.data.ListAgents(ctx)
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionListAgents, err)
	}
	if agents == nil {
		agents = []string{}
	}
	total, err := x.data.CountAgents(ctx)
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionListAgents, err)
	}
	return envelope.OK(intent.ActionListAgents,
		fmt.Sprintf("There are %d agents in the system", total),
		map[string]any{
			"agents":       agents,
			"total_agents": total,
		})
}

func (x *Executor) handleListWorkbenches(ctx context.Context, _ intent.Args) envelope.Result {
	workbenches, err := x.data.ListWorkbenches(ctx)
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionListWorkbenches, err)
	}
	if workbenches == nil {
		workbenches = []store.Workbench{}
	}
	return envelope.OK(intent.ActionListWorkbenches,
		fmt.Sprintf("There are %d workbenches", len(workbenches)),
		map[string]any{
			"workbenches":       workbenches,
			"total_workbenches": len(workbenches),
		})
}

func (x *Executor) handleShowWorkbenchRoles(ctx context.Context, args intent.Args) envelope.Result {
	rm, err := x.data.GetWorkbenchRoles(ctx, args.Int("workbench_id"))
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionShowWorkbenchRoles, err)
	}
	msg := fmt.Sprintf("Workbench '%s' has %d role assignments", rm.WorkbenchName, rm.TotalAssignments)
	if len(rm.MissingRoles) > 0 {
		msg += fmt.Sprintf(" (missing: %s)", strings.Join(rm.MissingRoles, ", "))
	}
	return envelope.OK(intent.ActionShowWorkbenchRoles, msg,
		map[string]any{"workbench_roles": rm})
}

func (x *Executor) handleShowAgentRoles(ctx context.Context, args intent.Args) envelope.Result {
	agent := args.String("agent")
	roles, err := x.data.GetAgentRoles(ctx, agent)
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionShowAgentRoles, err)
	}
	if roles == nil {
		roles = []store.RoleAssignment{}
	}
	msg := fmt.Sprintf("%s has %d role assignments", agent, len(roles))
	if len(roles) == 0 {
		msg = fmt.Sprintf("%s has no role assignments", agent)
	}
	return envelope.OK(intent.ActionShowAgentRoles, msg,
		map[string]any{
			"agent": agent,
			"roles": roles,
		})
}

func (x *Executor) handleCreateAgent(ctx context.Context, args intent.Args) envelope.Result {
	name := args.String("name")
	if err := x.data.CreateAgent(ctx, name); err != nil {
		return envelope.CollaboratorFailure(intent.ActionCreateAgent, err)
	}
	return envelope.OK(intent.ActionCreateAgent,
		fmt.Sprintf("Agent '%s' created successfully", name),
		map[string]any{"agent": name})
}

func (x *Executor) handleCreateWorkbench(ctx context.Context, args intent.Args) envelope.Result {
	wb, err := x.data.CreateWorkbench(ctx, args.String("name"), args.String("description"))
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionCreateWorkbench, err)
	}
	return envelope.OK(intent.ActionCreateWorkbench,
		fmt.Sprintf("Workbench '%s' created with id %d", wb.Name, wb.ID),
		map[string]any{
			"workbench_id": wb.ID,
			"name":         wb.Name,
			"description":  wb.Description,
		})
}

func (x *Executor) handleCreateTask(ctx context.Context, args intent.Args) envelope.Result {
	workbenchID := int64(-1)
	if args.Has("workbench_id") {
		workbenchID = args.Int("workbench_id")
	}
	task, err := x.data.CreateTask(ctx, args.Int("task_id"), args.String("agent"), workbenchID)
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionCreateTask, err)
	}
	msg := fmt.Sprintf("Task %d created", task.TaskID)
	if task.Agent != "" {
		msg = fmt.Sprintf("Task %d assigned to %s", task.TaskID, task.Agent)
	}
	return envelope.OK(intent.ActionCreateTask, msg,
		map[string]any{"task": task})
}

func (x *Executor) handleAssignRole(ctx context.Context, args intent.Args) envelope.Result {
	agent := args.String("agent")
	role := args.String("role")
	workbenchID := args.Int("workbench_id")
	if err := x.data.AssignRole(ctx, agent, workbenchID, role, args.String("assigned_by")); err != nil {
		return envelope.CollaboratorFailure(intent.ActionAssignRole, err)
	}
	return envelope.OK(intent.ActionAssignRole,
		fmt.Sprintf("✅ Assigned %s to %s in workbench %d", role, agent, workbenchID),
		map[string]any{
			"agent":        agent,
			"role":         role,
			"workbench_id": workbenchID,
		})
}

func (x *Executor) handleCoverageReport(ctx context.Context, _ intent.Args) envelope.Result {
	report, err := x.data.CoverageReport(ctx)
	if err != nil {
		return envelope.CollaboratorFailure(intent.ActionCoverageReport, err)
	}
	return envelope.OK(intent.ActionCoverageReport,
		fmt.Sprintf("%d of %d workbenches fully covered, %d role gaps",
			report.FullyCoveredWorkbenches, report.TotalWorkbenches, report.TotalRoleGaps),
		map[string]any{
			"workbenches":               report.Workbenches,
			"total_workbenches":         report.TotalWorkbenches,
			"total_role_gaps":           report.TotalRoleGaps,
			"fully_covered_workbenches": report.FullyCoveredWorkbenches,
		})
}

// handleAgentWorkbenchSummary answers follow-ups like "their assigned
// workbenches". The engine injects the agent names from the conversation
// context; without them there is nothing to summarise.
func (x *Executor) handleAgentWorkbenchSummary(ctx context.Context, args intent.Args) envelope.Result {
	names := args.Strings("agents")
	if len(names) == 0 {
		return envelope.Rejected(intent.ActionAgentWorkbenchSummary,
			"nothing has been listed yet to summarise",
			[]string{"list agents"})
	}
	summaries := make([]map[string]any, 0, len(names))
	for _, name := range names {
		roles, err := x.data.GetAgentRoles(ctx, name)
		if err != nil {
			return envelope.CollaboratorFailure(intent.ActionAgentWorkbenchSummary, err)
		}
		if roles == nil {
			roles = []store.RoleAssignment{}
		}
		summaries = append(summaries, map[string]any{
			"agent": name,
			"roles": roles,
		})
	}
	return envelope.OK(intent.ActionAgentWorkbenchSummary,
		fmt.Sprintf("Workbench assignments for %d agents", len(names)),
		map[string]any{"summaries": summaries})
}

func (x *Executor) handleHelp(_ context.Context, _ intent.Args) envelope.Result {
	return envelope.OK(intent.ActionHelp, "Available commands",
		map[string]any{"commands": intent.UsageLines()})
}
