package intent

import (
	"testing"

	"github.com/bdobrica/Togusa/internal/togusa/session"
)

// TestResolve_Equivalences verifies that for every canonical action at least
// one literal phrasing and one natural phrasing resolve to the same action
// and arguments.
func TestResolve_Equivalences(t *testing.T) {
	lib := NewLibrary()
	cases := []struct {
		name       string
		input      string
		wantAction string
		wantArgs   map[string]string
	}{
		// --- listings ---
		{name: "agents literal", input: "agents", wantAction: ActionListAgents},
		{name: "agents natural", input: "show list of all agents", wantAction: ActionListAgents},
		{name: "agents question", input: "how many agents are there?", wantAction: ActionListAgents},
		{name: "agents count", input: "count agents", wantAction: ActionListAgents},
		{name: "agents trailing period", input: "list agents.", wantAction: ActionListAgents},
		{name: "workbenches literal", input: "workbenches", wantAction: ActionListWorkbenches},
		{name: "workbenches natural", input: "please list workbenches", wantAction: ActionListWorkbenches},

		// --- role views ---
		{
			name:       "workbench roles literal",
			input:      "roles 1",
			wantAction: ActionShowWorkbenchRoles,
			wantArgs:   map[string]string{"workbench_id": "1"},
		},
		{
			name:       "workbench roles natural",
			input:      "show roles for workbench 1",
			wantAction: ActionShowWorkbenchRoles,
			wantArgs:   map[string]string{"workbench_id": "1"},
		},
		{
			name:       "agent roles literal",
			input:      "agent-roles alice",
			wantAction: ActionShowAgentRoles,
			wantArgs:   map[string]string{"agent": "alice"},
		},
		{
			name:       "agent roles natural",
			input:      "what roles does alice have?",
			wantAction: ActionShowAgentRoles,
			wantArgs:   map[string]string{"agent": "alice"},
		},

		// --- creation ---
		{
			name:       "create agent literal",
			input:      "create agent bob",
			wantAction: ActionCreateAgent,
			wantArgs:   map[string]string{"name": "bob"},
		},
		{
			name:       "create agent anchored",
			input:      "add agent named bob",
			wantAction: ActionCreateAgent,
			wantArgs:   map[string]string{"name": "bob"},
		},
		{
			name:       "create workbench plain",
			input:      "create workbench Support",
			wantAction: ActionCreateWorkbench,
			wantArgs:   map[string]string{"name": "Support"},
		},
		{
			name:       "create workbench with description",
			input:      `create workbench CustomerService "Handle customer inquiries"`,
			wantAction: ActionCreateWorkbench,
			wantArgs:   map[string]string{"name": "CustomerService", "description": "Handle customer inquiries"},
		},
		{
			name:       "create task bare",
			input:      "create task 42",
			wantAction: ActionCreateTask,
			wantArgs:   map[string]string{"task_id": "42"},
		},
		{
			name:       "assign task to agent",
			input:      "assign task 42 to alice",
			wantAction: ActionCreateTask,
			wantArgs:   map[string]string{"task_id": "42", "agent": "alice"},
		},
		{
			name:       "create task full",
			input:      "create task 42 for alice in workbench 3",
			wantAction: ActionCreateTask,
			wantArgs:   map[string]string{"task_id": "42", "agent": "alice", "workbench_id": "3"},
		},

		// --- role assignment ---
		{
			name:       "assign role positional",
			input:      "assign-role alice 1 Reviewer",
			wantAction: ActionAssignRole,
			wantArgs:   map[string]string{"agent": "alice", "workbench_id": "1", "role": "Reviewer"},
		},
		{
			name:       "assign role natural",
			input:      "assign role Team Lead to alice in workbench 2",
			wantAction: ActionAssignRole,
			wantArgs:   map[string]string{"agent": "alice", "workbench_id": "2", "role": "Team Lead"},
		},

		// --- coverage and help ---
		{name: "coverage literal", input: "coverage", wantAction: ActionCoverageReport},
		{name: "coverage natural", input: "coverage report", wantAction: ActionCoverageReport},
		{name: "help literal", input: "help", wantAction: ActionHelp},
		{name: "help natural", input: "what can you do?", wantAction: ActionHelp},

		// --- generic single-word defaults ---
		{name: "bare show", input: "show", wantAction: ActionListAgents},
		{name: "bare list", input: "list", wantAction: ActionListAgents},
		{name: "bare get", input: "get", wantAction: ActionListWorkbenches},
		{name: "bare fetch", input: "fetch", wantAction: ActionListWorkbenches},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, miss := lib.Resolve(tc.input, nil)
			if miss != nil {
				t.Fatalf("Resolve(%q) = NoMatch %+v, want action %s", tc.input, miss, tc.wantAction)
			}
			if res.Action != tc.wantAction {
				t.Errorf("Resolve(%q) action = %s, want %s", tc.input, res.Action, tc.wantAction)
			}
			for k, want := range tc.wantArgs {
				if got := res.Args.String(k); got != want {
					t.Errorf("Resolve(%q) args[%s] = %q, want %q", tc.input, k, got, want)
				}
			}
		})
	}
}

// TestResolve_GenericWordsAreExact verifies the single-verb defaults only
// fire when the verb is the whole message.
func TestResolve_GenericWordsAreExact(t *testing.T) {
	lib := NewLibrary()
	if res, miss := lib.Resolve("show the blue thing", nil); miss == nil {
		t.Errorf("Resolve(show the blue thing) = %s, want NoMatch", res.Action)
	}
	if res, miss := lib.Resolve("get everything now", nil); miss == nil {
		t.Errorf("Resolve(get everything now) = %s, want NoMatch", res.Action)
	}
}

// TestResolve_ContextualFollowUp exercises the order dependence of "their"
// wordings: NoMatch before a listing, a summary immediately after one, and
// no reuse of an incompatible context kind.
func TestResolve_ContextualFollowUp(t *testing.T) {
	lib := NewLibrary()

	res, miss := lib.Resolve("their assigned workbenches", nil)
	if miss == nil {
		t.Fatalf("Resolve without context = %s, want NoMatch", res.Action)
	}
	if !miss.MissingContext {
		t.Errorf("NoMatch.MissingContext = false, want true")
	}
	if len(miss.Suggestions) == 0 || miss.Suggestions[0] != "list agents" {
		t.Errorf("NoMatch.Suggestions = %v, want listing suggestion first", miss.Suggestions)
	}

	agentsCtx := &session.Context{Kind: session.KindAgentsListed, Items: []string{"alice", "bob"}}
	res, miss = lib.Resolve("their assigned workbenches", agentsCtx)
	if miss != nil {
		t.Fatalf("Resolve with agents context = NoMatch %+v, want %s", miss, ActionAgentWorkbenchSummary)
	}
	if res.Action != ActionAgentWorkbenchSummary {
		t.Errorf("Resolve with agents context = %s, want %s", res.Action, ActionAgentWorkbenchSummary)
	}

	wbCtx := &session.Context{Kind: session.KindWorkbenchesListed, Items: []string{"Support"}}
	if res, miss := lib.Resolve("their assigned workbenches", wbCtx); miss == nil {
		t.Errorf("Resolve with workbench context = %s, want NoMatch", res.Action)
	}

	for _, phrasing := range []string{"where are they assigned?", "their roles", "their workbenches"} {
		res, miss := lib.Resolve(phrasing, agentsCtx)
		if miss != nil {
			t.Errorf("Resolve(%q) = NoMatch %+v, want %s", phrasing, miss, ActionAgentWorkbenchSummary)
			continue
		}
		if res.Action != ActionAgentWorkbenchSummary {
			t.Errorf("Resolve(%q) = %s, want %s", phrasing, res.Action, ActionAgentWorkbenchSummary)
		}
	}
}

// TestResolve_Suggestions verifies near-miss inputs surface the canonical
// phrasing of the closest entries, at most three, and that unrelated input
// gets none.
func TestResolve_Suggestions(t *testing.T) {
	lib := NewLibrary()

	_, miss := lib.Resolve("workbenchs list", nil)
	if miss == nil {
		t.Fatal("Resolve(workbenchs list) matched, want NoMatch")
	}
	if len(miss.Suggestions) == 0 || len(miss.Suggestions) > 3 {
		t.Fatalf("Suggestions = %v, want between 1 and 3", miss.Suggestions)
	}
	found := false
	for _, s := range miss.Suggestions {
		if s == "list workbenches" {
			found = true
		}
	}
	if !found {
		t.Errorf("Suggestions = %v, want %q among them", miss.Suggestions, "list workbenches")
	}

	_, miss = lib.Resolve("xyzzy plugh", nil)
	if miss == nil {
		t.Fatal("Resolve(xyzzy plugh) matched, want NoMatch")
	}
	if len(miss.Suggestions) != 0 {
		t.Errorf("Suggestions for unrelated input = %v, want none", miss.Suggestions)
	}
}

// TestResolve_EmptyInput covers blank and punctuation-only messages.
func TestResolve_EmptyInput(t *testing.T) {
	lib := NewLibrary()
	for _, input := range []string{"", "   ", "?", " . "} {
		if res, miss := lib.Resolve(input, nil); miss == nil {
			t.Errorf("Resolve(%q) = %s, want NoMatch", input, res.Action)
		}
	}
}

// TestResolve_NegativeIDReachesValidator verifies extraction passes a
// negative id through so the validator can reject it rather than dropping it.
func TestResolve_NegativeIDReachesValidator(t *testing.T) {
	lib := NewLibrary()
	res, miss := lib.Resolve("roles -1", nil)
	if miss != nil {
		t.Fatalf("Resolve(roles -1) = NoMatch %+v, want match", miss)
	}
	if got := res.Args.String("workbench_id"); got != "-1" {
		t.Fatalf("extracted workbench_id = %q, want %q", got, "-1")
	}
	if _, rej := Validate(res.Action, res.Args); rej == nil {
		t.Error("Validate accepted a negative workbench id")
	}
}

// TestResolve_QuotedDescriptionDoesNotShadowName verifies the quoted span is
// lifted out before tokenization.
func TestResolve_QuotedDescriptionDoesNotShadowName(t *testing.T) {
	lib := NewLibrary()
	res, miss := lib.Resolve(`create workbench Billing "Invoices and payment disputes"`, nil)
	if miss != nil {
		t.Fatalf("Resolve = NoMatch %+v, want match", miss)
	}
	if got := res.Args.String("name"); got != "Billing" {
		t.Errorf("name = %q, want %q", got, "Billing")
	}
	if got := res.Args.String("description"); got != "Invoices and payment disputes" {
		t.Errorf("description = %q, want full quoted text", got)
	}
}

func TestFold(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"how many agents are there?", "how many agents are there"},
		{"list agents.", "list agents"},
		{"  roles 1  ", "roles 1"},
		{"coverage?.", "coverage"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := fold(tc.in); got != tc.want {
			t.Errorf("fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitQuoted(t *testing.T) {
	rest, quoted := splitQuoted(`create workbench X "a b c"`)
	if quoted != "a b c" {
		t.Errorf("quoted = %q, want %q", quoted, "a b c")
	}
	if tokens := tokenise(rest); len(tokens) != 3 {
		t.Errorf("rest tokens = %v, want 3 tokens", tokens)
	}

	rest, quoted = splitQuoted(`no quotes here`)
	if quoted != "" || rest != "no quotes here" {
		t.Errorf("splitQuoted(no quotes) = %q, %q", rest, quoted)
	}

	_, quoted = splitQuoted(`dangling "quote`)
	if quoted != "" {
		t.Errorf("unbalanced quote extracted %q, want none", quoted)
	}
}
