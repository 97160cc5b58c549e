package intent

import (
	"strconv"
	"strings"
)

// nameNoise holds connector words skipped when a name slot falls back to
// positional extraction. Articles are not in the set: an article in name
// position must reach the validator, which rejects it with examples.
var nameNoise = map[string]struct{}{
	"to": {}, "for": {}, "in": {}, "into": {}, "on": {}, "at": {}, "of": {},
	"with": {}, "and": {}, "workbench": {}, "agent": {}, "task": {},
	"id": {}, "number": {}, "me": {}, "please": {}, "is": {}, "are": {},
}

// extract fills the action's slots from the match tail. It never fails: slots
// it cannot fill stay unset and the validator reports them.
//
// Order of passes matters. Quoted values were already lifted out of the raw
// text. Integer ids bind to numeric tokens left to right in signature order.
// Roles bind to standard-role spellings scanning right to left, so the
// positional "assign-role <agent> <id> <role>" form reads correctly even when
// the agent is itself named after a role. Names bind last, to the token after
// an anchor word or to the first plain token still unclaimed.
func extract(sig Signature, m *Match) Args {
	args := Args{}
	tail := m.Tail
	consumed := make([]bool, len(tail))

	for _, slot := range sig.Slots {
		if slot.Type == SlotQuoted && m.Quoted != "" {
			args.set(slot.Name, m.Quoted)
		}
	}

	next := 0
	for _, slot := range sig.Slots {
		if slot.Type != SlotID {
			continue
		}
		for i := next; i < len(tail); i++ {
			if consumed[i] || !numericToken(tail[i]) {
				continue
			}
			args.set(slot.Name, tail[i])
			consumed[i] = true
			next = i + 1
			break
		}
	}

	for _, slot := range sig.Slots {
		if slot.Type != SlotRole {
			continue
		}
		if role, at, width := findRole(tail, consumed); width > 0 {
			args.set(slot.Name, role)
			for j := at; j < at+width; j++ {
				consumed[j] = true
			}
		}
	}

	for _, slot := range sig.Slots {
		if slot.Type != SlotName {
			continue
		}
		if v, ok := anchoredValue(tail, consumed, slot.Anchors); ok {
			args.set(slot.Name, v)
			continue
		}
		for i, t := range tail {
			if consumed[i] || numericToken(t) {
				continue
			}
			if _, noise := nameNoise[strings.ToLower(t)]; noise {
				continue
			}
			args.set(slot.Name, t)
			consumed[i] = true
			break
		}
	}
	return args
}

// findRole scans unconsumed tail tokens for a standard role spelling,
// two-token spellings ("team lead") before single tokens, right to left.
func findRole(tail []string, consumed []bool) (role string, at, width int) {
	for i := len(tail) - 2; i >= 0; i-- {
		if consumed[i] || consumed[i+1] {
			continue
		}
		if r := CanonicalRole(tail[i] + " " + tail[i+1]); r != "" {
			return r, i, 2
		}
	}
	for i := len(tail) - 1; i >= 0; i-- {
		if consumed[i] {
			continue
		}
		if r := CanonicalRole(tail[i]); r != "" {
			return r, i, 1
		}
	}
	return "", 0, 0
}

// anchoredValue returns the token following the first unconsumed anchor word,
// consuming both.
func anchoredValue(tail []string, consumed []bool, anchors []string) (string, bool) {
	for i := 0; i+1 < len(tail); i++ {
		if consumed[i] || consumed[i+1] {
			continue
		}
		t := strings.ToLower(tail[i])
		for _, a := range anchors {
			if t == a {
				consumed[i] = true
				consumed[i+1] = true
				return tail[i+1], true
			}
		}
	}
	return "", false
}

// numericToken reports whether t parses as a base-10 integer, sign included.
// Negative values are extracted here and rejected by the validator.
func numericToken(t string) bool {
	_, err := strconv.ParseInt(t, 10, 64)
	return err == nil
}
