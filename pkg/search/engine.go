package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Engine resolves autocomplete queries against an injected TagStore. It is
// stateless per request: no caching, no shared mutable structures, so any
// number of Search calls may run concurrently.
type Engine struct {
	store    TagStore
	limits   Limits
	statuses []AliasStatus
}

// NewEngine creates an engine over store with the given limits. Non-positive
// limit fields fall back to DefaultLimits. When no statuses are given the
// eligible set {active, processing, queued} is used.
func NewEngine(store TagStore, limits Limits, statuses ...AliasStatus) *Engine {
	if len(statuses) == 0 {
		statuses = EligibleStatuses()
	}
	return &Engine{
		store:    store,
		limits:   limits.normalized(),
		statuses: statuses,
	}
}

// Limits returns the engine's current fan-in/fan-out knobs.
func (e *Engine) Limits() Limits {
	return e.limits
}

// SetLimits swaps the limit knobs, normalizing non-positive fields. Only
// called between requests (IPC config updates); concurrent Search calls keep
// the limits they started with.
func (e *Engine) SetLimits(limits Limits) {
	e.limits = limits.normalized()
}

// Search returns the ranked answer for prefix, at most Limits.Final long.
func (e *Engine) Search(ctx context.Context, prefix string) ([]Candidate, error) {
	return e.SearchN(ctx, prefix, e.limits.Final)
}

// SearchN is Search with a per-call answer size. A non-positive limit falls
// back to Limits.Final. Both matcher stages read concurrently; the first
// store failure cancels the sibling read and surfaces as ErrStoreUnavailable
// with no partial result.
func (e *Engine) SearchN(ctx context.Context, prefix string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = e.limits.Final
	}

	var (
		direct  []Tag
		aliased []AliasedTag
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tags, err := e.store.TagsByPrefix(gctx, prefix, defaultMinPostCount, e.limits.Direct)
		if err != nil {
			return fmt.Errorf("%w: direct matches: %v", ErrStoreUnavailable, err)
		}
		direct = tags
		return nil
	})
	g.Go(func() error {
		pairs, err := e.store.AliasesByPrefix(gctx, prefix, e.statuses, defaultMinPostCount, e.limits.Alias)
		if err != nil {
			return fmt.Errorf("%w: alias matches: %v", ErrStoreUnavailable, err)
		}
		aliased = pairs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Direct candidates first: the merger's stable sort keeps them ahead of
	// equal-count alias rows, which is what makes first-seen-wins dedup
	// deterministic.
	candidates := make([]Candidate, 0, len(direct)+len(aliased))
	for _, t := range direct {
		candidates = append(candidates, Candidate{
			ID:        t.ID,
			Name:      t.Name,
			PostCount: t.PostCount,
			Category:  t.Category,
			Source:    MatchDirect,
		})
	}
	for _, at := range aliased {
		candidates = append(candidates, Candidate{
			ID:         at.Tag.ID,
			Name:       at.Tag.Name,
			PostCount:  at.Tag.PostCount,
			Category:   at.Tag.Category,
			Source:     MatchAlias,
			Antecedent: at.Alias.AntecedentName,
		})
	}

	return rankedMerge(candidates, limit), nil
}
