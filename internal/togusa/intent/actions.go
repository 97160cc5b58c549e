// Package intent turns one line of free-form chat text into a canonical
// action with validated arguments, or a no-match carrying suggestions.
//
// The pipeline is deterministic: an ordered pattern library is tried entry by
// entry (specific before generic, first match wins), slot values are pulled
// out of the raw text by anchor words and positions, and a validator rejects
// placeholder names and malformed ids before anything reaches the data layer.
package intent

import (
	"fmt"
	"strconv"
)

// Canonical action names. The set is closed; the generative backend may only
// propose actions from this list and every action has exactly one argument
// signature.
const (
	ActionListAgents            = "list_agents"
	ActionListWorkbenches       = "list_workbenches"
	ActionShowWorkbenchRoles    = "show_workbench_roles"
	ActionShowAgentRoles        = "show_agent_roles"
	ActionCreateAgent           = "create_agent"
	ActionCreateWorkbench       = "create_workbench"
	ActionCreateTask            = "create_task"
	ActionAssignRole            = "assign_role"
	ActionCoverageReport        = "coverage_report"
	ActionAgentWorkbenchSummary = "agent_workbench_summary"
	ActionHelp                  = "help"
)

// SlotType describes how a slot value is extracted and validated.
type SlotType int

const (
	// SlotName is a single-token name (agent or workbench name).
	SlotName SlotType = iota
	// SlotID is a non-negative integer id.
	SlotID
	// SlotQuoted is an optional double-quoted free-text value.
	SlotQuoted
	// SlotRole is one of the standard workbench roles.
	SlotRole
)

// Slot describes one argument of a canonical action.
type Slot struct {
	Name     string
	Type     SlotType
	Required bool
	// Anchors are words whose following token supplies the value
	// ("create agent named bob"). Position-based extraction applies when no
	// anchor is present.
	Anchors []string
}

// Signature is the fixed argument signature of a canonical action.
type Signature struct {
	Action      string
	Slots       []Slot
	Description string
	// Examples are canned corrective invocations (at most 4) shown when
	// validation rejects an argument, and listed by the help action.
	Examples []string
}

// StandardRoles are the four workbench roles every coverage computation is
// measured against. Order matters: reports list them in this order.
var StandardRoles = []string{"Assessor", "Reviewer", "Team Lead", "Viewer"}

// CanonicalRole maps a case-insensitive role spelling ("team lead",
// "team-lead", "TEAMLEAD") to its canonical form, or "" when the word is not
// a standard role.
func CanonicalRole(word string) string {
	squash := func(s string) string {
		out := make([]rune, 0, len(s))
		for _, r := range s {
			switch {
			case r >= 'A' && r <= 'Z':
				out = append(out, r+('a'-'A'))
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				out = append(out, r)
			}
		}
		return string(out)
	}
	w := squash(word)
	for _, role := range StandardRoles {
		if squash(role) == w {
			return role
		}
	}
	return ""
}

var signatures = map[string]Signature{
	ActionListAgents: {
		Action:      ActionListAgents,
		Description: "List every agent known to the system.",
		Examples:    []string{"agents", "list agents", "how many agents are there?"},
	},
	ActionListWorkbenches: {
		Action:      ActionListWorkbenches,
		Description: "List every workbench with its description.",
		Examples:    []string{"workbenches", "list workbenches"},
	},
	ActionShowWorkbenchRoles: {
		Action: ActionShowWorkbenchRoles,
		Slots: []Slot{
			{Name: "workbench_id", Type: SlotID, Required: true},
		},
		Description: "Show the role assignments of one workbench.",
		Examples:    []string{"roles 1", "show roles for workbench 2"},
	},
	ActionShowAgentRoles: {
		Action: ActionShowAgentRoles,
		Slots: []Slot{
			{Name: "agent", Type: SlotName, Required: true, Anchors: []string{"about", "for", "of", "does"}},
		},
		Description: "Show every workbench role held by one agent.",
		Examples:    []string{"agent-roles alice", "what roles does alice have?"},
	},
	ActionCreateAgent: {
		Action: ActionCreateAgent,
		Slots: []Slot{
			{Name: "name", Type: SlotName, Required: true, Anchors: []string{"named", "called"}},
		},
		Description: "Register a new agent.",
		Examples:    []string{"create agent alice", "add agent named bob"},
	},
	ActionCreateWorkbench: {
		Action: ActionCreateWorkbench,
		Slots: []Slot{
			{Name: "name", Type: SlotName, Required: true, Anchors: []string{"named", "called"}},
			{Name: "description", Type: SlotQuoted},
		},
		Description: "Create a workbench, optionally with a quoted description.",
		Examples: []string{
			"create workbench Support",
			`create workbench CustomerService "Handle customer inquiries"`,
		},
	},
	ActionCreateTask: {
		Action: ActionCreateTask,
		Slots: []Slot{
			{Name: "task_id", Type: SlotID, Required: true},
			{Name: "agent", Type: SlotName, Anchors: []string{"for", "to"}},
			{Name: "workbench_id", Type: SlotID},
		},
		Description: "Create a task, optionally assigned to an agent and a workbench.",
		Examples: []string{
			"create task 42",
			"assign task 42 to alice",
			"create task 42 for alice in workbench 3",
		},
	},
	ActionAssignRole: {
		Action: ActionAssignRole,
		Slots: []Slot{
			{Name: "agent", Type: SlotName, Required: true, Anchors: []string{"to"}},
			{Name: "workbench_id", Type: SlotID, Required: true},
			{Name: "role", Type: SlotRole, Required: true},
		},
		Description: "Assign a standard role to an agent in a workbench.",
		Examples: []string{
			"assign-role alice 1 Reviewer",
			"assign role Team Lead to alice in workbench 2",
		},
	},
	ActionCoverageReport: {
		Action:      ActionCoverageReport,
		Description: "Report role coverage and gaps across all workbenches.",
		Examples:    []string{"coverage", "coverage report"},
	},
	ActionAgentWorkbenchSummary: {
		Action:      ActionAgentWorkbenchSummary,
		Description: "Summarise workbench assignments for the agents just listed.",
		Examples:    []string{"their assigned workbenches", "where are they assigned?"},
	},
	ActionHelp: {
		Action:      ActionHelp,
		Description: "Show the available commands.",
		Examples:    []string{"help"},
	},
}

// SignatureFor returns the argument signature of a canonical action.
func SignatureFor(action string) (Signature, bool) {
	sig, ok := signatures[action]
	return sig, ok
}

// KnownAction reports whether name is one of the canonical actions.
func KnownAction(name string) bool {
	_, ok := signatures[name]
	return ok
}

// Actions returns the canonical action names in presentation order.
func Actions() []string {
	return []string{
		ActionListAgents,
		ActionListWorkbenches,
		ActionShowWorkbenchRoles,
		ActionShowAgentRoles,
		ActionCreateAgent,
		ActionCreateWorkbench,
		ActionCreateTask,
		ActionAssignRole,
		ActionCoverageReport,
		ActionAgentWorkbenchSummary,
		ActionHelp,
	}
}

// Examples returns the corrective usage examples for an action (at most 4).
func Examples(action string) []string {
	sig, ok := signatures[action]
	if !ok {
		return nil
	}
	if len(sig.Examples) > 4 {
		return sig.Examples[:4]
	}
	return sig.Examples
}

// Args holds the extracted (and, after validation, typed) argument values of
// one resolved action, keyed by slot name.
type Args map[string]any

// String returns the string value for key, or "".
func (a Args) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer value for key, or -1 when absent.
func (a Args) Int(key string) int64 {
	switch v := a[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return -1
}

// Strings returns the string-slice value for key, or nil.
func (a Args) Strings(key string) []string {
	if v, ok := a[key].([]string); ok {
		return v
	}
	return nil
}

// Has reports whether key carries a value.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a Args) set(key string, v any) { a[key] = v }

// usageLine renders one help line for an action.
func usageLine(action string) string {
	sig := signatures[action]
	example := ""
	if len(sig.Examples) > 0 {
		example = sig.Examples[0]
	}
	return fmt.Sprintf("%s - %s (e.g. %q)", action, sig.Description, example)
}

// UsageLines returns one help line per canonical action, in presentation
// order.
func UsageLines() []string {
	actions := Actions()
	lines := make([]string, 0, len(actions))
	for _, a := range actions {
		lines = append(lines, usageLine(a))
	}
	return lines
}
