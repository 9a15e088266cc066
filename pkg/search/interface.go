// Package search is the core, resolving a name prefix against the tag
// taxonomy: direct name matches and alias-resolved matches are read from a
// TagStore, merged, deduplicated and truncated into one ranked answer.
package search

import "context"

// TagStore is the read capability a query resolves against. Implementations
// own matching at the storage level: literal prefix comparison, the post
// count floor, alias status filtering, the antecedent-to-canonical join,
// suppression of alias rows whose canonical name also matches the prefix,
// and each stage's internal ordering.
type TagStore interface {
	// TagsByPrefix returns up to limit tags whose name starts with prefix
	// (case-sensitive, metacharacters literal), with post_count >=
	// minPostCount, ordered by post_count descending. An empty prefix
	// matches every tag.
	TagsByPrefix(ctx context.Context, prefix string, minPostCount, limit int) ([]Tag, error)

	// AliasesByPrefix returns up to limit alias/tag pairs whose antecedent
	// name starts with prefix, restricted to the given statuses, with both
	// the alias count and the resolved tag count >= minPostCount. Pairs
	// whose canonical tag name itself starts with prefix are excluded at
	// the source, and aliases with no matching tag resolve to nothing.
	// Ordered by the alias's own post_count descending.
	AliasesByPrefix(ctx context.Context, prefix string, statuses []AliasStatus, minPostCount, limit int) ([]AliasedTag, error)
}

// ISearcher defines the interface for tag autocomplete engines
type ISearcher interface {
	// Search returns the ranked answer for a prefix, at most Limits.Final long
	Search(ctx context.Context, prefix string) ([]Candidate, error)

	// SearchN overrides the final answer size for a single query
	SearchN(ctx context.Context, prefix string, limit int) ([]Candidate, error)
}
