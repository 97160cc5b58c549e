package intent

import (
	"strings"

	"github.com/bdobrica/Togusa/internal/togusa/session"
)

// Entry is one row of the pattern library. An entry fires on either a
// contiguous phrase or an unordered keyword set, never both.
type Entry struct {
	Action string
	// Phrases fire when one of them appears as a contiguous token sequence
	// in the input. Matching is case-insensitive.
	Phrases []string
	// Keywords fire when every keyword appears somewhere in the input,
	// in any order. Ignored when Phrases is non-empty for the same trigger;
	// an entry carries one or the other.
	Keywords []string
	// ContextKinds restricts the entry to inputs arriving while the session
	// context has one of these kinds. Empty means the entry always applies.
	ContextKinds []session.Kind
	// Exact restricts the entry to inputs consisting of nothing but the
	// trigger itself. The generic single-verb defaults use it so "show" alone
	// lists agents but "show the blue thing" stays unmatched.
	Exact bool
	// Usage is the canonical phrasing surfaced in suggestions.
	Usage string
	// FromPack names the pattern pack that contributed the entry, or "" for
	// built-in entries.
	FromPack string
}

// Contextual reports whether the entry only applies with session context.
func (e *Entry) Contextual() bool {
	return len(e.ContextKinds) > 0
}

// AppliesTo reports whether the entry may fire given the current context.
// Non-contextual entries always apply.
func (e *Entry) AppliesTo(ctx *session.Context) bool {
	if !e.Contextual() {
		return true
	}
	return ctx.OneOf(e.ContextKinds...)
}

// triggerTokens returns the union of the entry's phrase and keyword tokens,
// lower-cased, used for suggestion scoring.
func (e *Entry) triggerTokens() map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range e.Phrases {
		for _, t := range tokenise(strings.ToLower(p)) {
			set[t] = struct{}{}
		}
	}
	for _, k := range e.Keywords {
		set[strings.ToLower(k)] = struct{}{}
	}
	return set
}

// Library is an ordered pattern table. Order is the whole contract: entries
// are tried top to bottom and the first hit wins, so specific wordings sit
// above the generic single-word defaults.
type Library struct {
	entries []Entry
}

// NewLibrary returns the built-in library. Specific entries come first,
// pack-contributed entries (if any) are inserted between the specific and
// generic tiers by WithPacks, and the generic single-word defaults close the
// table.
func NewLibrary() *Library {
	lib := &Library{}
	lib.entries = append(lib.entries, specificEntries()...)
	lib.entries = append(lib.entries, genericEntries()...)
	return lib
}

// WithPacks inserts pack entries between the specific and generic tiers, so
// packs can add synonyms without shadowing the built-in wordings and without
// being shadowed by the catch-all defaults.
func (l *Library) WithPacks(packs ...*Pack) *Library {
	if len(packs) == 0 {
		return l
	}
	split := len(l.entries) - len(genericEntries())
	merged := make([]Entry, 0, len(l.entries)+8)
	merged = append(merged, l.entries[:split]...)
	for _, p := range packs {
		merged = append(merged, p.Entries...)
	}
	merged = append(merged, l.entries[split:]...)
	return &Library{entries: merged}
}

// Entries returns the table in match order.
func (l *Library) Entries() []Entry {
	return l.entries
}

// Match holds a library hit: the entry that fired plus the input tokens left
// over once the trigger tokens are consumed. Tail tokens keep their original
// casing so extracted names round-trip verbatim.
type Match struct {
	Entry *Entry
	Tail  []string
	// Quoted is the first double-quoted substring of the raw input, already
	// stripped of its quotes, or "".
	Quoted string
}

// specificEntries is the first tier: exact command words, multi-word
// phrasings, keyword combinations, and the contextual follow-ups. Within the
// tier, earlier entries shadow later ones, so combinations that mention a
// workbench outrank agent wordings that would otherwise swallow them.
func specificEntries() []Entry {
	return []Entry{
		// Contextual follow-ups. These only fire when the session context
		// kind matches; otherwise matching falls through.
		{
			Action: ActionAgentWorkbenchSummary,
			Phrases: []string{
				"their assigned workbenches",
				"their workbenches",
				"their assignments",
				"their roles",
				"where are they assigned",
				"what are they assigned to",
			},
			ContextKinds: []session.Kind{session.KindAgentsListed, session.KindAgentDetails},
			Usage:        "their assigned workbenches",
		},

		// Help.
		{
			Action:  ActionHelp,
			Phrases: []string{"help", "commands", "what can you do", "usage"},
			Usage:   "help",
		},

		// Coverage.
		{
			Action:  ActionCoverageReport,
			Phrases: []string{"coverage report", "coverage", "role coverage", "staffing gaps"},
			Usage:   "coverage report",
		},

		// Creation commands. "create workbench" must outrank the bare
		// workbench listing keywords below.
		{
			Action:  ActionCreateWorkbench,
			Phrases: []string{"create workbench", "add workbench", "new workbench", "create a workbench", "add a workbench"},
			Usage:   "create workbench <name>",
		},
		{
			Action:  ActionCreateAgent,
			Phrases: []string{"create agent", "add agent", "new agent", "register agent", "create an agent", "add an agent"},
			Usage:   "create agent <name>",
		},
		{
			Action:  ActionCreateTask,
			Phrases: []string{"create task", "add task", "new task", "assign task", "create a task"},
			Usage:   "create task <id>",
		},

		// Role assignment. The hyphenated command form survives as a single
		// token, the spelled-out form fires on the keyword pair.
		{
			Action:  ActionAssignRole,
			Phrases: []string{"assign-role"},
			Usage:   "assign-role <agent> <workbench-id> <role>",
		},
		{
			Action:   ActionAssignRole,
			Keywords: []string{"assign", "role"},
			Usage:    "assign-role <agent> <workbench-id> <role>",
		},

		// Role views. Workbench wordings outrank agent wordings, which
		// outrank the bare "roles <id>" command.
		{
			Action:   ActionShowWorkbenchRoles,
			Keywords: []string{"workbench", "roles"},
			Usage:    "roles <workbench-id>",
		},
		{
			Action:  ActionShowAgentRoles,
			Phrases: []string{"agent-roles", "agent roles", "what roles does", "roles of", "roles for"},
			Usage:   "agent-roles <agent>",
		},
		{
			Action:  ActionShowWorkbenchRoles,
			Phrases: []string{"roles"},
			Usage:   "roles <workbench-id>",
		},

		// Listings.
		{
			Action:  ActionListAgents,
			Phrases: []string{"list agents", "list all agents", "show agents", "count agents", "agents"},
			Usage:   "list agents",
		},
		{
			Action:   ActionListAgents,
			Keywords: []string{"agents"},
			Usage:    "list agents",
		},
		{
			Action:  ActionListWorkbenches,
			Phrases: []string{"list workbenches", "list all workbenches", "show workbenches", "workbenches"},
			Usage:   "list workbenches",
		},
		{
			Action:   ActionListWorkbenches,
			Keywords: []string{"workbenches"},
			Usage:    "list workbenches",
		},
	}
}

// genericEntries is the last tier: bare verbs that default to a listing when
// nothing more specific matched. "show"/"list"/"display"/"view" default to
// the agent listing, "get"/"fetch" to the workbench listing.
func genericEntries() []Entry {
	return []Entry{
		{
			Action:  ActionListAgents,
			Phrases: []string{"show", "list", "display", "view"},
			Exact:   true,
			Usage:   "list agents",
		},
		{
			Action:  ActionListWorkbenches,
			Phrases: []string{"get", "fetch"},
			Exact:   true,
			Usage:   "list workbenches",
		},
	}
}
