package store

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/ferrwyn/autocompleted/pkg/search"
)

// MemoryStore keeps the whole taxonomy in two patricia tries: one over tag
// names and one over alias antecedent names, plus a name index for the
// antecedent-to-canonical join. It implements the same matching contract as
// the SQLite store and is meant for development, seeding experiments and
// tests; reads never fail.
type MemoryStore struct {
	mu         sync.RWMutex
	tags       *patricia.Trie // tag name -> search.Tag
	aliases    *patricia.Trie // antecedent name -> []search.Alias
	tagsByName map[string]search.Tag
	aliasCount int
}

// NewMemoryStore returns an empty store ready for AddTag/AddAlias seeding.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tags:       patricia.NewTrie(),
		aliases:    patricia.NewTrie(),
		tagsByName: make(map[string]search.Tag),
	}
}

// AddTag inserts a tag, replacing any previous tag with the same name.
func (s *MemoryStore) AddTag(t search.Tag) {
	if t.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags.Set(patricia.Prefix(t.Name), t)
	s.tagsByName[t.Name] = t
}

// AddAlias inserts an alias. Several aliases may share an antecedent name
// (typically one live row and older retired ones); all of them are kept and
// status filtering happens at query time.
func (s *MemoryStore) AddAlias(a search.Alias) {
	if a.AntecedentName == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := patricia.Prefix(a.AntecedentName)
	var existing []search.Alias
	if item := s.aliases.Get(key); item != nil {
		existing = item.([]search.Alias)
	}
	s.aliases.Set(key, append(existing, a))
	s.aliasCount++
}

// LoadTags bulk-loads a tag CSV dump. Returns the number of rows loaded.
func (s *MemoryStore) LoadTags(r io.Reader) (int, error) {
	tags, err := ReadTags(r)
	if err != nil {
		return 0, err
	}
	for _, t := range tags {
		s.AddTag(t)
	}
	return len(tags), nil
}

// LoadAliases bulk-loads an alias CSV dump. Returns the number of rows loaded.
func (s *MemoryStore) LoadAliases(r io.Reader) (int, error) {
	aliases, err := ReadAliases(r)
	if err != nil {
		return 0, err
	}
	for _, a := range aliases {
		s.AddAlias(a)
	}
	return len(aliases), nil
}

// Counts reports how many tags and aliases are loaded.
func (s *MemoryStore) Counts() (tags, aliases int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tagsByName), s.aliasCount
}

// TagsByPrefix scans the name trie for literal prefix matches at or above
// the count floor, ordered by post_count descending with name ascending as
// the tie break.
func (s *MemoryStore) TagsByPrefix(_ context.Context, prefix string, minPostCount, limit int) ([]search.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []search.Tag
	visit := func(_ patricia.Prefix, item patricia.Item) error {
		t := item.(search.Tag)
		if int(t.PostCount) >= minPostCount {
			out = append(out, t)
		}
		return nil
	}
	s.visitTags(prefix, visit)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PostCount != out[j].PostCount {
			return out[i].PostCount > out[j].PostCount
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AliasesByPrefix scans the antecedent trie, keeps rows in the given status
// set at or above the floor, joins each to its canonical tag, and drops the
// pair when the tag is missing, under the floor, or itself a prefix match
// (those already surface through TagsByPrefix). Ordered by the alias's own
// post_count descending, antecedent name ascending on ties.
func (s *MemoryStore) AliasesByPrefix(_ context.Context, prefix string, statuses []search.AliasStatus, minPostCount, limit int) ([]search.AliasedTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eligible := make(map[search.AliasStatus]bool, len(statuses))
	for _, st := range statuses {
		eligible[st] = true
	}

	var out []search.AliasedTag
	visit := func(_ patricia.Prefix, item patricia.Item) error {
		for _, a := range item.([]search.Alias) {
			if !eligible[a.Status] || int(a.PostCount) < minPostCount {
				continue
			}
			tag, ok := s.tagsByName[a.ConsequentName]
			if !ok || int(tag.PostCount) < minPostCount {
				continue
			}
			if strings.HasPrefix(tag.Name, prefix) {
				continue
			}
			out = append(out, search.AliasedTag{Alias: a, Tag: tag})
		}
		return nil
	}
	s.visitAliases(prefix, visit)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Alias.PostCount != out[j].Alias.PostCount {
			return out[i].Alias.PostCount > out[j].Alias.PostCount
		}
		return out[i].Alias.AntecedentName < out[j].Alias.AntecedentName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) visitTags(prefix string, visit patricia.VisitorFunc) {
	if prefix == "" {
		_ = s.tags.Visit(visit)
		return
	}
	_ = s.tags.VisitSubtree(patricia.Prefix(prefix), visit)
}

func (s *MemoryStore) visitAliases(prefix string, visit patricia.VisitorFunc) {
	if prefix == "" {
		_ = s.aliases.Visit(visit)
		return
	}
	_ = s.aliases.VisitSubtree(patricia.Prefix(prefix), visit)
}
