package intent

import "sort"

// Suggest ranks library entries by token-set overlap with the input tokens
// and returns up to max canonical phrasings. Ties keep library order, so the
// more specific wording of two equally close entries surfaces first. Entries
// sharing no token with the input are never suggested.
func (l *Library) Suggest(lowered []string, max int) []string {
	input := make(map[string]struct{}, len(lowered))
	for _, t := range lowered {
		input[t] = struct{}{}
	}

	type candidate struct {
		order int
		score int
		usage string
	}
	var ranked []candidate
	seen := make(map[string]struct{})
	for i := range l.entries {
		e := &l.entries[i]
		if e.Usage == "" {
			continue
		}
		if _, dup := seen[e.Usage]; dup {
			continue
		}
		score := 0
		for t := range e.triggerTokens() {
			if _, ok := input[t]; ok {
				score++
			}
		}
		if score == 0 {
			continue
		}
		seen[e.Usage] = struct{}{}
		ranked = append(ranked, candidate{order: i, score: score, usage: e.Usage})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].order < ranked[b].order
	})

	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, c.usage)
	}
	return out
}
