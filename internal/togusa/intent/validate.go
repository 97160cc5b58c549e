package intent

import (
	"fmt"
	"strconv"
	"strings"
)

// nonNames is the closed set of placeholder words refused in name position,
// compared case-insensitively: articles, generic descriptors, and
// demonstratives.
var nonNames = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "new": {}, "some": {}, "this": {}, "that": {},
}

// Rejection explains why validation refused an action's arguments. It renders
// as a normal reply with corrective examples, never as a fatal error.
type Rejection struct {
	Action   string
	Reason   string
	Examples []string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Action, r.Reason)
}

// Validate checks raw extracted arguments against the action's signature and
// returns typed arguments on success. Values are never coerced: a rejected
// value is reported back with up to 4 corrective examples, not repaired.
//
// Both interpretation paths call this with string-valued raw arguments; keys
// outside the signature pass through untouched.
func Validate(action string, raw Args) (Args, *Rejection) {
	sig, ok := SignatureFor(action)
	if !ok {
		return nil, &Rejection{
			Action: action,
			Reason: fmt.Sprintf("unknown action %q", action),
		}
	}

	out := Args{}
	for _, slot := range sig.Slots {
		v, present := raw[slot.Name]
		if !present {
			if slot.Required {
				return nil, reject(sig, fmt.Sprintf("missing %s", strings.ReplaceAll(slot.Name, "_", " ")))
			}
			continue
		}
		s, _ := v.(string)
		s = strings.TrimSpace(s)

		switch slot.Type {
		case SlotName:
			if s == "" {
				return nil, reject(sig, fmt.Sprintf("missing %s", strings.ReplaceAll(slot.Name, "_", " ")))
			}
			if _, bad := nonNames[strings.ToLower(s)]; bad {
				return nil, reject(sig, fmt.Sprintf("%q is not a usable name", s))
			}
			out.set(slot.Name, s)

		case SlotID:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 0 {
				return nil, reject(sig, fmt.Sprintf("%s must be a non-negative integer, got %q", strings.ReplaceAll(slot.Name, "_", " "), s))
			}
			out.set(slot.Name, n)

		case SlotQuoted:
			out.set(slot.Name, s)

		case SlotRole:
			role := CanonicalRole(s)
			if role == "" {
				return nil, reject(sig, fmt.Sprintf("%q is not a standard role (choose one of: %s)", s, strings.Join(StandardRoles, ", ")))
			}
			out.set(slot.Name, role)
		}
	}

	names := make(map[string]struct{}, len(sig.Slots))
	for _, slot := range sig.Slots {
		names[slot.Name] = struct{}{}
	}
	for k, v := range raw {
		if _, known := names[k]; !known {
			out[k] = v
		}
	}
	return out, nil
}

func reject(sig Signature, reason string) *Rejection {
	examples := sig.Examples
	if len(examples) > 4 {
		examples = examples[:4]
	}
	return &Rejection{Action: sig.Action, Reason: reason, Examples: examples}
}
