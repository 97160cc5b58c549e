package intent

import (
	"strings"
	"unicode"

	"github.com/bdobrica/Togusa/internal/togusa/session"
)

// Resolution is a successful normalization: the entry that fired plus the raw
// arguments extracted for its action. Raw arguments still need Validate.
type Resolution struct {
	Action string
	Entry  *Entry
	Args   Args
}

// NoMatch is the no-hit outcome. It is data, not an error: the caller renders
// the reason and suggestions into a normal reply.
type NoMatch struct {
	Reason      string
	Suggestions []string
	// MissingContext is set when a contextual wording matched but the session
	// had no compatible context.
	MissingContext bool
}

// Resolve runs the library against one line of input. ctx is the session's
// current conversation context and may be nil.
//
// Entries are tried strictly in table order and the first hit wins. A
// contextual wording that matches textually while the required context is
// absent stops the walk and resolves to NoMatch; the text never falls through
// to a later entry.
func (l *Library) Resolve(text string, ctx *session.Context) (*Resolution, *NoMatch) {
	working, quoted := splitQuoted(fold(text))
	tokens := tokenise(working)
	if len(tokens) == 0 {
		return nil, &NoMatch{
			Reason:      "empty message",
			Suggestions: []string{"help"},
		}
	}
	lowered := make([]string, len(tokens))
	for i, t := range tokens {
		lowered[i] = strings.ToLower(t)
	}

	for i := range l.entries {
		e := &l.entries[i]
		tail, ok := matchEntry(e, tokens, lowered)
		if !ok {
			continue
		}
		if !e.AppliesTo(ctx) {
			return nil, &NoMatch{
				Reason:         "that looks like a follow-up, but nothing has been listed yet",
				Suggestions:    followUpSuggestions(e),
				MissingContext: true,
			}
		}
		sig, _ := SignatureFor(e.Action)
		return &Resolution{
			Action: e.Action,
			Entry:  e,
			Args:   extract(sig, &Match{Entry: e, Tail: tail, Quoted: quoted}),
		}, nil
	}

	return nil, &NoMatch{
		Reason:      "no command matched",
		Suggestions: l.Suggest(lowered, 3),
	}
}

// fold trims whitespace and strips trailing question or period punctuation so
// question-style and imperative-style phrasing match the same entries.
func fold(text string) string {
	text = strings.TrimSpace(text)
	for len(text) > 0 {
		last := text[len(text)-1]
		if last != '?' && last != '.' {
			break
		}
		text = strings.TrimSpace(text[:len(text)-1])
	}
	return text
}

// tokenise splits text into tokens of letters, digits, and hyphens, keeping
// the original casing so extracted names round-trip verbatim.
func tokenise(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// splitQuoted lifts the first double-quoted substring out of text, returning
// the text with the quoted span removed plus the quoted content. Quoted
// values feed description slots and must not pollute name extraction.
func splitQuoted(text string) (rest, quoted string) {
	open := strings.IndexByte(text, '"')
	if open < 0 {
		return text, ""
	}
	end := strings.IndexByte(text[open+1:], '"')
	if end < 0 {
		return text, ""
	}
	end += open + 1
	quoted = text[open+1 : end]
	rest = text[:open] + " " + text[end+1:]
	return rest, quoted
}

// matchEntry tries one entry against the token list. On a hit it returns the
// tokens following the trigger, minus any trigger tokens, preserving input
// order and casing. Slot extraction only ever looks at this tail.
func matchEntry(e *Entry, tokens, lowered []string) ([]string, bool) {
	if e.Exact && len(tokens) != 1 {
		return nil, false
	}
	for _, phrase := range e.Phrases {
		want := tokenise(strings.ToLower(phrase))
		if len(want) == 0 {
			continue
		}
		if at := indexPhrase(lowered, want); at >= 0 {
			return tokens[at+len(want):], true
		}
	}
	if len(e.Keywords) > 0 {
		used := make(map[int]bool, len(e.Keywords))
		first := len(lowered)
		for _, kw := range e.Keywords {
			kw = strings.ToLower(kw)
			found := -1
			for i, t := range lowered {
				if !used[i] && t == kw {
					found = i
					break
				}
			}
			if found < 0 {
				return nil, false
			}
			used[found] = true
			if found < first {
				first = found
			}
		}
		tail := make([]string, 0, len(tokens)-first-1)
		for i := first + 1; i < len(tokens); i++ {
			if !used[i] {
				tail = append(tail, tokens[i])
			}
		}
		return tail, true
	}
	return nil, false
}

// indexPhrase returns the index where want appears as a contiguous
// subsequence of lowered, or -1.
func indexPhrase(lowered, want []string) int {
	for i := 0; i+len(want) <= len(lowered); i++ {
		hit := true
		for j, w := range want {
			if lowered[i+j] != w {
				hit = false
				break
			}
		}
		if hit {
			return i
		}
	}
	return -1
}

// contextProducers maps each context kind to the canonical phrasing of a
// command that establishes it.
var contextProducers = map[session.Kind]string{
	session.KindAgentsListed:      "list agents",
	session.KindWorkbenchesListed: "list workbenches",
	session.KindAgentDetails:      "agent-roles <agent>",
	session.KindWorkbenchRoles:    "roles <workbench-id>",
}

// followUpSuggestions suggests the listing commands that would establish the
// context a skipped contextual entry needs.
func followUpSuggestions(e *Entry) []string {
	out := make([]string, 0, 3)
	seen := make(map[string]struct{}, len(e.ContextKinds))
	for _, k := range e.ContextKinds {
		p, ok := contextProducers[k]
		if !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "list agents")
	}
	return out
}
