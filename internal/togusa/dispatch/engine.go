// Package dispatch contains the hybrid interpretation engine: every chat line
// runs through an optional generative backend attempt and a deterministic
// pattern fallback, then through validation and the action executor, producing
// exactly one response envelope.
//
// The state machine per line is fixed: a backend attempt either succeeds or
// fails as a whole, failure of any kind falls back to the pattern library, and
// actions proposed by the backend pass through the same validator as
// pattern-matched ones. Lines of the same session are processed strictly in
// order; distinct sessions run concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bdobrica/Togusa/common/redact"
	"github.com/bdobrica/Togusa/common/trace"
	"github.com/bdobrica/Togusa/internal/togusa/envelope"
	"github.com/bdobrica/Togusa/internal/togusa/intent"
	"github.com/bdobrica/Togusa/internal/togusa/nlp"
	"github.com/bdobrica/Togusa/internal/togusa/observability"
	"github.com/bdobrica/Togusa/internal/togusa/session"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

// DefaultBackendTimeout bounds one generative backend attempt. A slower
// answer is treated as a failed attempt and the line falls back to the
// pattern library.
const DefaultBackendTimeout = 10 * time.Second

// upstreamCooldown is how long backend attempts are skipped after the
// provider reported an upstream rate limit. Hammering a 429ing API helps
// nobody; pattern matching keeps working in the meantime.
const upstreamCooldown = 30 * time.Second

// Config wires an engine together. Data is required; everything else is
// optional and defaults to disabled or to package defaults.
type Config struct {
	// Data is the store the executor runs actions against.
	Data DataAccess

	// Library overrides the built-in pattern library, e.g. one extended
	// with pattern packs. Nil means the built-in library.
	Library *intent.Library

	// Backend is the generative interpretation provider. Nil disables the
	// backend path entirely; every line goes straight to the patterns.
	Backend nlp.Provider

	// BackendTimeout bounds one backend attempt. Zero or negative values
	// fall back to DefaultBackendTimeout.
	BackendTimeout time.Duration

	// RateLimiter gates backend attempts per session. Nil disables the gate.
	RateLimiter *nlp.RateLimiter

	// TokenBudget caps daily backend token spend per session. Nil disables
	// the gate.
	TokenBudget *nlp.TokenBudget

	// Audit receives one entry per executed action. Nil disables auditing.
	Audit AuditSink

	// MaxTurns bounds each session's rolling history window.
	MaxTurns int
}

// Engine interprets chat lines. One engine serves all sessions.
type Engine struct {
	lib      *intent.Library
	sessions *session.Store
	exec     *Executor
	data     DataAccess

	backend        nlp.Provider
	backendTimeout time.Duration
	catalogue      string
	rateLimiter    *nlp.RateLimiter
	tokenBudget    *nlp.TokenBudget

	audit AuditSink

	// upstreamUntil holds the UnixNano deadline of the current upstream
	// rate-limit cooldown, or 0.
	upstreamUntil atomic.Int64
}

// NewEngine builds an engine from cfg. New sessions start with the backend
// enabled when a provider is configured.
func NewEngine(cfg Config) *Engine {
	lib := cfg.Library
	if lib == nil {
		lib = intent.NewLibrary()
	}
	timeout := cfg.BackendTimeout
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	return &Engine{
		lib: lib,
		sessions: session.NewStore(session.Config{
			MaxTurns:       cfg.MaxTurns,
			BackendDefault: cfg.Backend != nil,
		}),
		exec:           NewExecutor(cfg.Data),
		data:           cfg.Data,
		backend:        cfg.Backend,
		backendTimeout: timeout,
		catalogue:      nlp.DefaultCatalogue(),
		rateLimiter:    cfg.RateLimiter,
		tokenBudget:    cfg.TokenBudget,
		audit:          cfg.Audit,
	}
}

// Sessions exposes the session store for status reporting.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Process interprets one line of chat input for a session and returns the
// response envelope. It never returns an error: interpretation failures
// become structured error results inside the envelope.
//
// Lines of the same session are serialized; a second call for the same
// session blocks until the first one finishes.
func (e *Engine) Process(ctx context.Context, sessionID, text string) *envelope.Envelope {
	ctx, traceID := trace.Ensure(ctx)
	log := observability.WithTrace(ctx)

	sess := e.sessions.Get(sessionID)
	sess.Acquire()
	defer sess.Release()

	env := envelope.New(sessionID, traceID)

	// Session-level switches live outside the interpretation state machine:
	// they neither consume the backend budget nor enter the history window.
	if res, ok := e.sessionOp(sess, text); ok {
		log.Info("session operation", "session_id", sessionID, "text", strings.TrimSpace(text))
		return env.Add(res)
	}

	gateReason := ""
	if e.backend != nil && sess.BackendEnabled() {
		ok, reason := e.admitBackend(sessionID)
		if !ok {
			gateReason = reason
			log.Debug("backend attempt gated", "session_id", sessionID, "reason", reason)
		} else if e.interpretWithBackend(ctx, log, sess, text, env) {
			e.finishTurn(sess, text, env)
			log.Info("line interpreted", "session_id", sessionID, "path", "backend", "results", len(env.Results))
			return env
		}
	}

	e.interpretWithRules(ctx, sess, text, env, gateReason)
	e.finishTurn(sess, text, env)
	log.Info("line interpreted", "session_id", sessionID, "path", "rules", "results", len(env.Results))
	return env
}

// sessionOp recognises the session-level switch lines. They match exactly
// (case-insensitive, trailing punctuation ignored) so that e.g. "clear
// history of workbench 2" still reaches the interpreter.
func (e *Engine) sessionOp(sess *session.Session, text string) (envelope.Result, bool) {
	switch normalizeOp(text) {
	case "backend on", "llm on":
		sess.SetBackendEnabled(true)
		msg := "Generative backend enabled for this session"
		if e.backend == nil {
			msg = "Generative backend enabled, but no provider is configured; commands stay rule-based"
		}
		return envelope.OK("", msg, nil), true
	case "backend off", "llm off":
		sess.SetBackendEnabled(false)
		return envelope.OK("", "Generative backend disabled for this session", nil), true
	case "clear history":
		sess.ClearHistory()
		return envelope.OK("", "Conversation history cleared", nil), true
	}
	return envelope.Result{}, false
}

func normalizeOp(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRight(text, "?.! ")
	return strings.Join(strings.Fields(text), " ")
}

// admitBackend checks the pre-attempt gates. A blocked gate is not a backend
// failure: the line still runs through the patterns, and the reason only
// surfaces if the patterns find nothing either.
func (e *Engine) admitBackend(sessionID string) (bool, string) {
	if time.Now().UnixNano() < e.upstreamUntil.Load() {
		return false, nlp.APIRateLimitMessage
	}
	if e.rateLimiter != nil && !e.rateLimiter.Allow(sessionID) {
		return false, nlp.RateLimitMessage
	}
	if e.tokenBudget != nil && !e.tokenBudget.Allow(sessionID) {
		return false, nlp.TokenBudgetExceededMessage
	}
	return true, ""
}

// interpretWithBackend runs one backend attempt. It returns false whenever
// the attempt failed as a whole (transport error, timeout, malformed output,
// no usable actions), in which case the caller falls back to the patterns and
// the user never sees a backend-specific error.
func (e *Engine) interpretWithBackend(ctx context.Context, log *slog.Logger, sess *session.Session, text string, env *envelope.Envelope) bool {
	req := nlp.InterpretRequest{
		Message:         text,
		ActionCatalogue: e.catalogue,
		SessionID:       sess.ID(),
		History:         historyMessages(sess.History()),
	}
	if agents, err := e.data.ListAgents(ctx); err == nil {
		req.KnownAgents = agents
	}

	bctx, cancel := context.WithTimeout(ctx, e.backendTimeout)
	defer cancel()

	resp, err := e.backend.Interpret(bctx, req)
	if err != nil {
		if errors.Is(err, nlp.ErrRateLimit) {
			e.upstreamUntil.Store(time.Now().Add(upstreamCooldown).UnixNano())
		}
		log.Warn("backend interpretation failed, falling back to patterns", "err", err)
		return false
	}

	if e.tokenBudget != nil && resp.Usage != nil {
		e.tokenBudget.RecordUsage(sess.ID(), resp.Usage.TotalTokens)
		log.Info("backend token usage",
			"session_id", sess.ID(),
			"total_tokens", resp.Usage.TotalTokens,
			"model", resp.Usage.Model,
			"latency_ms", resp.Usage.LatencyMS,
		)
	}

	usable := 0
	for _, pa := range resp.Actions {
		if intent.KnownAction(pa.Action) {
			usable++
		}
	}
	if usable == 0 {
		log.Debug("backend proposed no usable actions, falling back to patterns",
			"proposed", len(resp.Actions))
		return false
	}

	env.Reply = resp.Reply
	for _, pa := range resp.Actions {
		env.Add(e.runAction(ctx, sess, pa.Action, stringifyArgs(pa.Args)))
	}
	return true
}

// interpretWithRules resolves the line against the pattern library. When no
// entry matches and a backend gate blocked this line, the gate reason replaces
// the generic no-match text so the operator learns why free-form phrasing is
// temporarily unavailable.
func (e *Engine) interpretWithRules(ctx context.Context, sess *session.Session, text string, env *envelope.Envelope, gateReason string) {
	resolution, nm := e.lib.Resolve(text, sess.Context())
	if nm != nil {
		reason, suggestions := nm.Reason, nm.Suggestions
		if gateReason != "" {
			reason, suggestions = gateReason, []string{"help"}
		}
		env.Add(envelope.NoMatch(reason, suggestions))
		return
	}
	env.Add(e.runAction(ctx, sess, resolution.Action, resolution.Args))
}

// runAction takes one action through validation, context injection, execution,
// context recording, and auditing. Both interpretation paths funnel through
// here, so the backend can never bypass validation.
func (e *Engine) runAction(ctx context.Context, sess *session.Session, action string, raw intent.Args) envelope.Result {
	args, rej := intent.Validate(action, raw)
	if rej != nil {
		return envelope.Rejected(rej.Action, rej.Reason, rej.Examples)
	}

	switch action {
	case intent.ActionAgentWorkbenchSummary:
		if !args.Has("agents") {
			if c := sess.Context(); c.OneOf(session.KindAgentsListed, session.KindAgentDetails) {
				args["agents"] = c.Items
			}
		}
	case intent.ActionAssignRole:
		if !args.Has("assigned_by") {
			args["assigned_by"] = sess.ID()
		}
	}

	res := e.exec.Execute(ctx, action, args)
	if res.Error == nil {
		e.recordContext(sess, action, res)
	}
	e.writeAudit(ctx, sess.ID(), action, args, res)
	return res
}

// recordContext stores the conversation context left behind by the
// state-producing actions. Last write wins; other actions leave the context
// untouched.
func (e *Engine) recordContext(sess *session.Session, action string, res envelope.Result) {
	switch action {
	case intent.ActionListAgents:
		if agents, ok := res.Data["agents"].([]string); ok {
			sess.RecordContext(session.KindAgentsListed, agents)
		}
	case intent.ActionListWorkbenches:
		if wbs, ok := res.Data["workbenches"].([]store.Workbench); ok {
			names := make([]string, 0, len(wbs))
			for _, wb := range wbs {
				names = append(names, wb.Name)
			}
			sess.RecordContext(session.KindWorkbenchesListed, names)
		}
	case intent.ActionShowAgentRoles:
		if agent, ok := res.Data["agent"].(string); ok {
			sess.RecordContext(session.KindAgentDetails, []string{agent})
		}
	case intent.ActionShowWorkbenchRoles:
		if rm, ok := res.Data["workbench_roles"].(*store.RoleMap); ok {
			sess.RecordContext(session.KindWorkbenchRoles, []string{rm.WorkbenchName})
		}
	}
}

func (e *Engine) writeAudit(ctx context.Context, sessionID, action string, args intent.Args, res envelope.Result) {
	if e.audit == nil {
		return
	}
	result, errMsg := "success", ""
	if res.Error != nil {
		result, errMsg = "error", res.Error.Reason
	}
	payload := store.AuditPayload(redact.Map(map[string]any(args)))
	err := e.audit.WriteAudit(ctx, trace.FromContext(ctx), sessionID, action,
		auditTarget(args), result, payload, errMsg)
	if err != nil {
		slog.Warn("audit write failed", "action", action, "err", err)
	}
}

// finishTurn appends the interpreted line and its outcome to the rolling
// history handed to the backend on later turns.
func (e *Engine) finishTurn(sess *session.Session, text string, env *envelope.Envelope) {
	sess.AppendTurn("user", text)
	sess.AppendTurn("assistant", summarise(env))
}

// summarise reduces an envelope to the one-line assistant turn stored in the
// history window.
func summarise(env *envelope.Envelope) string {
	if env.Reply != "" {
		return env.Reply
	}
	for _, r := range env.Results {
		if r.Error != nil {
			return r.Error.Reason
		}
		if r.Message != "" {
			return r.Message
		}
	}
	return ""
}

func historyMessages(turns []session.Turn) []nlp.HistoryMessage {
	if len(turns) == 0 {
		return nil
	}
	out := make([]nlp.HistoryMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, nlp.HistoryMessage{Role: t.Role, Content: t.Text})
	}
	return out
}

// stringifyArgs renders backend-proposed argument values as strings, the form
// the validator expects from both interpretation paths. JSON numbers arrive
// as float64; integral ones print without a fraction so ids survive the trip.
func stringifyArgs(in map[string]any) intent.Args {
	out := intent.Args{}
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			if t == math.Trunc(t) {
				out[k] = strconv.FormatInt(int64(t), 10)
			} else {
				out[k] = strconv.FormatFloat(t, 'f', -1, 64)
			}
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	return out
}

// auditTarget picks the most specific argument as the audit row's target.
func auditTarget(args intent.Args) string {
	if v := args.String("agent"); v != "" {
		return v
	}
	if v := args.String("name"); v != "" {
		return v
	}
	if args.Has("workbench_id") {
		return fmt.Sprintf("workbench %d", args.Int("workbench_id"))
	}
	if args.Has("task_id") {
		return fmt.Sprintf("task %d", args.Int("task_id"))
	}
	return ""
}
