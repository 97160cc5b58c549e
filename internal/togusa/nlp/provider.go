// Package nlp provides the generative interpretation layer for Togusa.
//
// The layer sits between the raw chat message and the rule-based normalizer.
// Its sole responsibility is translation: convert a free-form sentence into a
// structured InterpretResponse (reply text + proposed actions) that the
// dispatch engine can validate and execute.
//
// Invariants (unchanged by this layer):
//   - The LLM only proposes actions; it never executes them.
//   - Every proposed action still flows through argument validation before it
//     reaches the executor.
//   - The LLM is shown the action catalogue and agent names only; it never
//     sees credentials or internal state.
//   - Rate limiting and the daily token budget prevent runaway spend per
//     session.
package nlp

import (
	"context"
	"errors"
)

// ErrRateLimit is returned by a Provider when the upstream LLM API reports a
// rate-limiting condition (e.g. HTTP 429 Too Many Requests).  Callers should
// surface a user-visible message instead of silently falling back to pattern
// matching, because the user's request was understood but cannot be fulfilled
// right now.
var ErrRateLimit = errors.New("nlp: upstream rate limit exceeded")

// ErrMalformedOutput is returned by a Provider when the LLM returns a
// structurally valid HTTP response whose body cannot be interpreted as an
// InterpretResponse (JSON parse failure or schema violation).  Callers treat
// this the same as any other backend failure and fall back to the normalizer.
var ErrMalformedOutput = errors.New("nlp: malformed response from LLM")

// HistoryMessage is a single prior turn in the conversation, injected into
// the LLM context window so the model has continuity across messages.
type HistoryMessage struct {
	// Role is "user" or "assistant".
	Role string
	// Content is the message text.
	Content string
}

// InterpretRequest is the input to a single interpretation call.
//
// The caller populates the context fields (action catalogue, agent list) on
// each request.  These are cheap string slices and are intentionally not
// cached inside the provider so that stale data is not returned.
type InterpretRequest struct {
	// Message is the raw text sent by the user.
	Message string

	// ActionCatalogue is the text block describing all canonical actions.
	// The LLM uses this to understand what operations are possible.
	ActionCatalogue string

	// KnownAgents is the list of agent names currently in the system.
	KnownAgents []string

	// SessionID identifies the chat session.  Present for traceability; the
	// system prompt instructs the model to ignore it.
	SessionID string

	// History contains prior turns from the current session, oldest first.
	// May be nil when the session is fresh.
	History []HistoryMessage
}

// ProposedAction is one action the LLM proposes in response to a message.
// The engine validates the action name and args exactly as it validates
// rule-matched input; nothing here is trusted.
type ProposedAction struct {
	// Action is a canonical action name, e.g. "assign_role".
	Action string `json:"action"`
	// Args maps slot names to raw values (strings or numbers as the model
	// produced them).
	Args map[string]any `json:"args,omitempty"`
}

// InterpretResponse is the structured output produced by the provider.
type InterpretResponse struct {
	// Reply is an optional short conversational reply, shown before any
	// action results.
	Reply string `json:"reply,omitempty"`

	// Actions are the proposed operations, in the order they should run.
	// Empty when the model could not map the request; Reply then carries a
	// clarifying question.
	Actions []ProposedAction `json:"actions,omitempty"`

	// Usage holds the token counts reported by the underlying LLM provider
	// for this call.  Nil when the provider does not report usage data (e.g.
	// stub implementations in tests).  Callers use this to enforce the daily
	// token budget and to write cost entries to the audit trail.
	Usage *TokenUsage `json:"-"`
}

// TokenUsage carries the token counts reported by the upstream LLM API for a
// single interpretation call.  Fields are zero-valued when the provider does
// not report usage data.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input (system prompt,
	// history, and user message).
	PromptTokens int
	// CompletionTokens is the number of tokens in the LLM's response.
	CompletionTokens int
	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
	// Model is the model name as reported by the provider (may be empty for
	// providers that do not echo it back).
	Model string
	// LatencyMS is the observed HTTP round-trip time in milliseconds.
	LatencyMS int64
}

// RateLimitMessage is the reply sent to sessions that exceed the per-minute
// interpretation call limit.  Defined here so callers do not hard-code it.
const RateLimitMessage = "⏳ I'm handling too many requests from you right now. Please try again in a moment, or type `help` to see the direct commands."

// APIRateLimitMessage is the reply sent when the upstream LLM API reports a
// rate-limit condition (HTTP 429).  Unlike RateLimitMessage (a per-session
// client-side limit), this means the provider is globally throttled.
const APIRateLimitMessage = "⏳ The assistant is temporarily rate-limited by the upstream provider. Direct commands still work; type `help` to see them."

// TokenBudgetExceededMessage is the reply surfaced to a session that has
// exhausted its daily token allowance.
const TokenBudgetExceededMessage = "I've reached my daily conversation limit for this session. Direct commands still work; type `help` to see them."

// Provider turns free-form user messages into structured action proposals.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// When an implementation is unavailable (network error, malformed output),
// it returns a descriptive error; the engine degrades to the rule-based
// normalizer.
type Provider interface {
	// Interpret sends the user message to the underlying LLM and returns a
	// structured InterpretResponse.
	Interpret(ctx context.Context, req InterpretRequest) (*InterpretResponse, error)
}
