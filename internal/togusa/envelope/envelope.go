// Package envelope defines the response envelope produced once per chat
// input line. It carries either success payloads or structured error
// descriptors for every action the line resolved to; transports render it
// (Matrix as markdown, the web endpoint as JSON) — the envelope itself never
// contains markup.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorKind classifies a failed result.
type ErrorKind string

const (
	// KindNoMatch means the input did not resolve to any action.
	KindNoMatch ErrorKind = "no_match"
	// KindValidationRejected means an extracted argument failed validation.
	KindValidationRejected ErrorKind = "validation_rejected"
	// KindCollaboratorError means the data-access layer reported a failure.
	KindCollaboratorError ErrorKind = "collaborator_error"
)

// Envelope is the single structured result of processing one input line.
type Envelope struct {
	// ID uniquely identifies this envelope.
	ID string `json:"id"`

	// TraceID correlates the envelope with log and audit entries.
	TraceID string `json:"trace_id,omitempty"`

	// SessionID names the conversation session the input belonged to.
	SessionID string `json:"session_id"`

	// Reply is the generative backend's free-text reply, kept for display
	// when the backend path succeeded. Empty on the rule-based path.
	Reply string `json:"reply,omitempty"`

	// Results holds one entry per resolved action, in resolution order.
	// A line that resolved to nothing carries a single no_match result.
	Results []Result `json:"results"`

	// CreatedAt is the UTC time the envelope was produced.
	CreatedAt time.Time `json:"created_at"`
}

// Result is the outcome of one canonical action (or the no-match outcome for
// the whole line). Exactly one of {Message+Data, Error} side is meaningful.
type Result struct {
	// Action is the canonical action name, e.g. "list_agents". Empty for
	// no_match results.
	Action string `json:"action,omitempty"`

	// Message is a short human-readable summary of a successful result.
	Message string `json:"message,omitempty"`

	// Data holds the action-specific payload (agent lists, role maps, ...).
	Data map[string]any `json:"data,omitempty"`

	// Error describes a failed result.
	Error *Problem `json:"error,omitempty"`
}

// Problem is the structured error descriptor carried by a failed result.
type Problem struct {
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`

	// Suggestions holds up to 3 canonical phrasings for no_match problems.
	Suggestions []string `json:"suggestions,omitempty"`

	// Examples holds up to 4 corrective usage examples for
	// validation_rejected problems.
	Examples []string `json:"examples,omitempty"`
}

// New returns an empty envelope for the given session and trace.
func New(sessionID, traceID string) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		TraceID:   traceID,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
}

// Add appends a result, preserving resolution order.
func (e *Envelope) Add(r Result) *Envelope {
	e.Results = append(e.Results, r)
	return e
}

// OK builds a successful result.
func OK(action, message string, data map[string]any) Result {
	return Result{Action: action, Message: message, Data: data}
}

// NoMatch builds the result for input that resolved to no action.
func NoMatch(reason string, suggestions []string) Result {
	return Result{Error: &Problem{
		Kind:        KindNoMatch,
		Reason:      reason,
		Suggestions: suggestions,
	}}
}

// Rejected builds the result for an argument that failed validation.
func Rejected(action, reason string, examples []string) Result {
	return Result{Action: action, Error: &Problem{
		Kind:     KindValidationRejected,
		Reason:   reason,
		Examples: examples,
	}}
}

// CollaboratorFailure builds the result for a data-layer error. The message
// is passed through verbatim with the originating action name attached.
func CollaboratorFailure(action string, err error) Result {
	return Result{Action: action, Error: &Problem{
		Kind:   KindCollaboratorError,
		Reason: err.Error(),
	}}
}

// Failed reports whether any result in the envelope carries an error.
func (e *Envelope) Failed() bool {
	for _, r := range e.Results {
		if r.Error != nil {
			return true
		}
	}
	return false
}

// Validate checks that an envelope is structurally complete: identified,
// attributed to a session, and carrying at least one result.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("envelope must not be nil")
	}
	if e.ID == "" {
		return fmt.Errorf("id must not be empty")
	}
	if e.SessionID == "" {
		return fmt.Errorf("session_id must not be empty")
	}
	if len(e.Results) == 0 {
		return fmt.Errorf("results must not be empty")
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("created_at must not be zero")
	}
	return nil
}

// Parse decodes a JSON-encoded envelope and validates it. It is the
// canonical entry point for deserialising envelopes from HTTP bodies.
func Parse(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("envelope parse: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("envelope validate: %w", err)
	}
	return &e, nil
}
