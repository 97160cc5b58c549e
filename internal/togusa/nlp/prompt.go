package nlp

import (
	"fmt"
	"strings"

	"github.com/bdobrica/Togusa/internal/togusa/intent"
)

// DefaultCatalogue formats the canonical action catalogue for inclusion in
// the system prompt.  Actions are listed in presentation order with their
// argument slots so the model knows which slot names to fill.
//
// This is the authoritative description for the LLM: the system prompt
// instructs it to only produce action names that appear here.
func DefaultCatalogue() string {
	var sb strings.Builder
	for _, name := range intent.Actions() {
		sig, ok := intent.SignatureFor(name)
		if !ok {
			continue
		}
		sb.WriteString(name)
		sb.WriteString("\n  Description: ")
		sb.WriteString(sig.Description)
		if len(sig.Slots) > 0 {
			sb.WriteString("\n  Args:        ")
			parts := make([]string, 0, len(sig.Slots))
			for _, slot := range sig.Slots {
				p := slot.Name
				if !slot.Required {
					p += " (optional)"
				}
				parts = append(parts, p)
			}
			sb.WriteString(strings.Join(parts, ", "))
		}
		if examples := intent.Examples(name); len(examples) > 0 {
			sb.WriteString("\n  Example:     ")
			sb.WriteString(examples[0])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// systemPromptTemplate is the complete LLM "system" message template.
//
// Substitution variables (in order via fmt.Sprintf):
//  1. %s — formatted action catalogue (DefaultCatalogue())
//  2. %s — known agent names, one per line
//
// This constant lives here (not in openai.go) so it can be tested and
// extended independently of the HTTP transport layer.
const systemPromptTemplate = `You are Togusa, an ops-center assistant that manages workbenches, role assignments, and agents over chat.

Your only job is to translate the user's message into a structured JSON response.
You NEVER execute operations yourself; you only propose them.

RULES (strict, do not deviate):
1. Respond ONLY with valid JSON. No markdown, no code fences, no text outside JSON.
2. Only use action names listed in the action catalogue below. Do not invent actions.
3. Argument values must come from the user's message. Never invent names or ids.
4. Role values must be one of: Assessor, Reviewer, Team Lead, Viewer.
5. When the request maps to several operations, list them all in order in "actions".
6. When you cannot map the request, return an empty "actions" array and put a short
   clarifying question in "reply".
7. Ignore the session identity; treat every request identically.
8. Never include credentials, API keys, or tokens anywhere in your response.

ACTION CATALOGUE:
%s
KNOWN AGENTS:
%s

JSON RESPONSE SCHEMA (include only the fields you need):
{
  "reply":   "<optional short conversational reply>",
  "actions": [{"action": "<action name>", "args": {"<slot name>": <value>, ...}}, ...]
}`

// agentSummary formats the known agent names for the system prompt context
// block.  Returns a sentinel string when the slice is empty so the model
// understands no agents exist yet.
func agentSummary(agents []string) string {
	if len(agents) == 0 {
		return "(none yet)"
	}
	return strings.Join(agents, "\n")
}

// BuildSystemPrompt constructs the complete LLM system prompt.
//
// catalogue is the action catalogue text; callers pass DefaultCatalogue()
// unless they need to restrict the available actions.  knownAgents should be
// the current agent names so the model can resolve references like "assign
// alice"; pass nil when none exist.
//
// This function is called on every Interpret request so the model always sees
// fresh agent data (no stale caching between calls).
func BuildSystemPrompt(catalogue string, knownAgents []string) string {
	if catalogue == "" {
		catalogue = DefaultCatalogue()
	}
	return fmt.Sprintf(systemPromptTemplate, catalogue, agentSummary(knownAgents))
}
