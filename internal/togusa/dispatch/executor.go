package dispatch

import (
	"context"
	"fmt"

	"github.com/bdobrica/Togusa/internal/togusa/envelope"
	"github.com/bdobrica/Togusa/internal/togusa/intent"
)

// HandlerFunc executes one canonical action with validated arguments and
// packages the outcome as an envelope result.
type HandlerFunc func(ctx context.Context, args intent.Args) envelope.Result

// Executor maps canonical action names to handlers. Every action in the
// closed enum has exactly one handler, registered at construction.
type Executor struct {
	data     DataAccess
	handlers map[string]HandlerFunc
}

// NewExecutor builds an executor with a handler registered for every
// canonical action.
func NewExecutor(data DataAccess) *Executor {
	x := &Executor{
		data:     data,
		handlers: make(map[string]HandlerFunc),
	}
	x.register(intent.ActionListAgents, x.handleListAgents)
	x.register(intent.ActionListWorkbenches, x.handleListWorkbenches)
	x.register(intent.ActionShowWorkbenchRoles, x.handleShowWorkbenchRoles)
	x.register(intent.ActionShowAgentRoles, x.handleShowAgentRoles)
	x.register(intent.ActionCreateAgent, x.handleCreateAgent)
	x.register(intent.ActionCreateWorkbench, x.handleCreateWorkbench)
	x.register(intent.ActionCreateTask, x.handleCreateTask)
	x.register(intent.ActionAssignRole, x.handleAssignRole)
	x.register(intent.ActionCoverageReport, x.handleCoverageReport)
	x.register(intent.ActionAgentWorkbenchSummary, x.handleAgentWorkbenchSummary)
	x.register(intent.ActionHelp, x.handleHelp)
	return x
}

func (x *Executor) register(action string, h HandlerFunc) {
	x.handlers[action] = h
}

// Execute runs the handler for action. Arguments must already be validated;
// the executor does not re-check them.
func (x *Executor) Execute(ctx context.Context, action string, args intent.Args) envelope.Result {
	h, ok := x.handlers[action]
	if !ok {
		return envelope.Rejected(action, fmt.Sprintf("no handler registered for action %q", action), nil)
	}
	return h(ctx, args)
}
