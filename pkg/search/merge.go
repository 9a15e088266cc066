package search

import "sort"

// dedupKey is the duplicate identity of a result row. Keyed on the pair, not
// the tag id: two rows are the same answer when both the canonical name and
// the count agree. A direct row and an alias row for the same tag collapse
// whenever both carried the tag's own count.
type dedupKey struct {
	name  string
	count int32
}

// rankedMerge turns the concatenated candidate streams into the final
// answer: stable sort by post count descending, then walk in sort order
// keeping the first representative of each (name, post_count) pair, then
// truncate to limit. Stability preserves each stage's internal order and
// keeps equal-count direct rows ahead of alias rows, so first-seen-wins is
// deterministic. A non-positive limit yields no rows.
func rankedMerge(candidates []Candidate, limit int) []Candidate {
	if limit <= 0 || len(candidates) == 0 {
		return []Candidate{}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PostCount > candidates[j].PostCount
	})

	seen := make(map[dedupKey]struct{}, len(candidates))
	out := make([]Candidate, 0, min(limit, len(candidates)))
	for _, c := range candidates {
		key := dedupKey{name: c.Name, count: c.PostCount}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}
