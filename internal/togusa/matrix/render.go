package matrix

// render.go turns a response envelope into the two bodies of a formatted
// Matrix message: a markdown plain-text fallback and the HTML derived from
// it. The envelope itself carries no markup; everything here is
// transport-side presentation.

import (
	"fmt"
	"strings"

	"github.com/bdobrica/Togusa/internal/togusa/envelope"
	"github.com/bdobrica/Togusa/internal/togusa/intent"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

// RenderText produces the two bodies for a free-standing markdown string,
// e.g. the startup notice.
func RenderText(markdown string) (plain, html string) {
	return markdown, markdownToHTML(markdown)
}

// Render produces the plain-text and HTML bodies for one envelope.
func Render(env *envelope.Envelope) (plain, html string) {
	var b strings.Builder
	if env.Reply != "" {
		b.WriteString(env.Reply)
		b.WriteString("\n\n")
	}
	for i, r := range env.Results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		renderResult(&b, r)
	}
	plain = strings.TrimRight(b.String(), "\n")
	return plain, markdownToHTML(plain)
}

func renderResult(b *strings.Builder, r envelope.Result) {
	if r.Error != nil {
		renderProblem(b, r)
		return
	}
	b.WriteString(r.Message)
	renderData(b, r)
}

func renderProblem(b *strings.Builder, r envelope.Result) {
	p := r.Error
	switch p.Kind {
	case envelope.KindNoMatch:
		b.WriteString("❓ ")
		b.WriteString(p.Reason)
		if len(p.Suggestions) > 0 {
			b.WriteString("\nTry:")
			for _, s := range p.Suggestions {
				fmt.Fprintf(b, "\n• `%s`", s)
			}
		}
	case envelope.KindValidationRejected:
		b.WriteString("❌ ")
		b.WriteString(p.Reason)
		if len(p.Examples) > 0 {
			b.WriteString("\nFor example:")
			for _, ex := range p.Examples {
				fmt.Fprintf(b, "\n• `%s`", ex)
			}
		}
	default:
		if r.Action != "" {
			fmt.Fprintf(b, "❌ %s failed: %s", r.Action, p.Reason)
		} else {
			b.WriteString("❌ ")
			b.WriteString(p.Reason)
		}
	}
}

// renderData appends the action-specific payload below the message line.
// Unknown payload shapes render nothing; the message alone still stands.
func renderData(b *strings.Builder, r envelope.Result) {
	switch r.Action {
	case intent.ActionListAgents:
		if agents, ok := r.Data["agents"].([]string); ok {
			for _, a := range agents {
				fmt.Fprintf(b, "\n• %s", a)
			}
		}

	case intent.ActionListWorkbenches:
		if wbs, ok := r.Data["workbenches"].([]store.Workbench); ok {
			for _, wb := range wbs {
				if wb.Description != "" {
					fmt.Fprintf(b, "\n• [%d] **%s** — %s", wb.ID, wb.Name, wb.Description)
				} else {
					fmt.Fprintf(b, "\n• [%d] **%s**", wb.ID, wb.Name)
				}
			}
		}

	case intent.ActionShowWorkbenchRoles:
		rm, ok := r.Data["workbench_roles"].(*store.RoleMap)
		if !ok {
			return
		}
		if rm.Description != "" {
			fmt.Fprintf(b, "\n%s", rm.Description)
		}
		for _, role := range intent.StandardRoles {
			assignments := rm.Roles[role]
			if len(assignments) == 0 {
				fmt.Fprintf(b, "\n• **%s**: (unfilled)", role)
				continue
			}
			names := make([]string, 0, len(assignments))
			for _, ra := range assignments {
				names = append(names, ra.Agent)
			}
			fmt.Fprintf(b, "\n• **%s**: %s", role, strings.Join(names, ", "))
		}

	case intent.ActionShowAgentRoles:
		if roles, ok := r.Data["roles"].([]store.RoleAssignment); ok {
			for _, ra := range roles {
				fmt.Fprintf(b, "\n• %s in workbench %d (%s)", ra.Role, ra.WorkbenchID, ra.WorkbenchName)
			}
		}

	case intent.ActionCoverageReport:
		if rows, ok := r.Data["workbenches"].([]store.WorkbenchCoverage); ok {
			total := len(intent.StandardRoles)
			for _, wc := range rows {
				fmt.Fprintf(b, "\n• **%s**: %d of %d roles filled (%.0f%%)",
					wc.WorkbenchName, total-wc.Gaps, total, wc.CoveragePercentage)
			}
		}

	case intent.ActionAgentWorkbenchSummary:
		if summaries, ok := r.Data["summaries"].([]map[string]any); ok {
			for _, s := range summaries {
				agent, _ := s["agent"].(string)
				roles, _ := s["roles"].([]store.RoleAssignment)
				if len(roles) == 0 {
					fmt.Fprintf(b, "\n• %s: (no assignments)", agent)
					continue
				}
				parts := make([]string, 0, len(roles))
				for _, ra := range roles {
					parts = append(parts, fmt.Sprintf("%s in %s", ra.Role, ra.WorkbenchName))
				}
				fmt.Fprintf(b, "\n• %s: %s", agent, strings.Join(parts, "; "))
			}
		}

	case intent.ActionHelp:
		if lines, ok := r.Data["commands"].([]string); ok && len(lines) > 0 {
			b.WriteString("\n```\n")
			b.WriteString(strings.Join(lines, "\n"))
			b.WriteString("\n```")
		}
	}
}

// markdownToHTML converts the markdown subset produced by Render into HTML
// suitable for a Matrix m.text event with format=org.matrix.custom.html.
//
// Supported constructs (in order of processing):
//   - Fenced code blocks  ```…```  → <pre><code>…</code></pre>
//   - Inline code  `…`             → <code>…</code>
//   - Bold  **…**                  → <strong>…</strong>
//   - Newlines                     → <br/>
func markdownToHTML(md string) string {
	// Fenced blocks first so their content is untouched by the inline passes.
	var out strings.Builder
	lines := strings.Split(md, "\n")
	inCode := false
	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if !inCode {
				out.WriteString("<pre><code>")
				inCode = true
			} else {
				out.WriteString("</code></pre>")
				inCode = false
			}
			continue
		}
		if inCode {
			// Escape HTML entities inside code blocks.
			escaped := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(line)
			out.WriteString(escaped)
			out.WriteString("\n")
		} else {
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	result := out.String()

	// Inline code: `…`
	result = replaceDelimited(result, "`", "<code>", "</code>")

	// Bold: **…**
	result = replaceDelimited(result, "**", "<strong>", "</strong>")

	// Convert bare newlines to <br/>.
	result = strings.ReplaceAll(result, "\n", "<br/>")

	return result
}

// replaceDelimited replaces occurrences of delim…delim with open+content+close.
// Only complete pairs are replaced; an unmatched opener is left as-is.
func replaceDelimited(s, delim, open, close string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, delim)
		if start == -1 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start+len(delim):], delim)
		if end == -1 {
			b.WriteString(s)
			break
		}
		end += start + len(delim) // absolute index of closing delim
		b.WriteString(s[:start])
		b.WriteString(open)
		b.WriteString(s[start+len(delim) : end])
		b.WriteString(close)
		s = s[end+len(delim):]
	}
	return b.String()
}
