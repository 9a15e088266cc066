package search

import (
	"context"
	"errors"
	"testing"
)

// fakeStore lets each test script the two read contracts directly.
type fakeStore struct {
	tagsFn    func(ctx context.Context, prefix string, minPostCount, limit int) ([]Tag, error)
	aliasesFn func(ctx context.Context, prefix string, statuses []AliasStatus, minPostCount, limit int) ([]AliasedTag, error)
}

func (f *fakeStore) TagsByPrefix(ctx context.Context, prefix string, minPostCount, limit int) ([]Tag, error) {
	if f.tagsFn == nil {
		return nil, nil
	}
	return f.tagsFn(ctx, prefix, minPostCount, limit)
}

func (f *fakeStore) AliasesByPrefix(ctx context.Context, prefix string, statuses []AliasStatus, minPostCount, limit int) ([]AliasedTag, error) {
	if f.aliasesFn == nil {
		return nil, nil
	}
	return f.aliasesFn(ctx, prefix, statuses, minPostCount, limit)
}

// direct and alias streams merge into one ranked answer; alias rows carry
// the canonical tag's fields plus the antecedent that matched
func TestSearchMergesStreams(t *testing.T) {
	store := &fakeStore{
		tagsFn: func(_ context.Context, _ string, _, _ int) ([]Tag, error) {
			return []Tag{
				{ID: 1, Name: "dogs", PostCount: 300, Category: 0},
			}, nil
		},
		aliasesFn: func(_ context.Context, _ string, _ []AliasStatus, _, _ int) ([]AliasedTag, error) {
			return []AliasedTag{
				{
					Alias: Alias{ID: 7, AntecedentName: "doggo", ConsequentName: "canine", Status: StatusActive, PostCount: 50},
					Tag:   Tag{ID: 2, Name: "canine", PostCount: 800, Category: 5},
				},
			}, nil
		},
	}

	engine := NewEngine(store, DefaultLimits())
	got, err := engine.Search(context.Background(), "dog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	// alias-resolved canine (800) outranks direct dogs (300)
	if got[0].Name != "canine" || got[0].Source != MatchAlias {
		t.Errorf("expected alias 'canine' first, got %+v", got[0])
	}
	if got[0].Antecedent != "doggo" {
		t.Errorf("alias candidate should record the matching antecedent, got %q", got[0].Antecedent)
	}
	if got[0].ID != 2 || got[0].PostCount != 800 || got[0].Category != 5 {
		t.Errorf("alias candidate must carry the resolved tag's fields, got %+v", got[0])
	}
	if got[1].Name != "dogs" || got[1].Source != MatchDirect || got[1].Antecedent != "" {
		t.Errorf("expected direct 'dogs' second with no antecedent, got %+v", got[1])
	}
}

// the engine hands each stage its own limit, the shared floor, and the
// eligible status set
func TestSearchStageParameters(t *testing.T) {
	var (
		gotTagLimit    int
		gotTagFloor    int
		gotAliasLimit  int
		gotAliasFloor  int
		gotStatuses    []AliasStatus
		gotTagPrefix   string
		gotAliasPrefix string
	)

	store := &fakeStore{
		tagsFn: func(_ context.Context, prefix string, minPostCount, limit int) ([]Tag, error) {
			gotTagPrefix, gotTagFloor, gotTagLimit = prefix, minPostCount, limit
			return nil, nil
		},
		aliasesFn: func(_ context.Context, prefix string, statuses []AliasStatus, minPostCount, limit int) ([]AliasedTag, error) {
			gotAliasPrefix, gotStatuses, gotAliasFloor, gotAliasLimit = prefix, statuses, minPostCount, limit
			return nil, nil
		},
	}

	engine := NewEngine(store, Limits{Direct: 10, Alias: 20, Final: 10})
	if _, err := engine.Search(context.Background(), "kit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotTagPrefix != "kit" || gotAliasPrefix != "kit" {
		t.Errorf("both stages should see the same prefix, got %q / %q", gotTagPrefix, gotAliasPrefix)
	}
	if gotTagLimit != 10 || gotAliasLimit != 20 {
		t.Errorf("expected stage limits 10/20, got %d/%d", gotTagLimit, gotAliasLimit)
	}
	if gotTagFloor != 1 || gotAliasFloor != 1 {
		t.Errorf("expected post count floor 1 on both stages, got %d/%d", gotTagFloor, gotAliasFloor)
	}
	if len(gotStatuses) != 3 {
		t.Fatalf("expected the 3 eligible statuses, got %v", gotStatuses)
	}
	want := map[AliasStatus]bool{StatusActive: true, StatusProcessing: true, StatusQueued: true}
	for _, s := range gotStatuses {
		if !want[s] {
			t.Errorf("unexpected status %q in eligible set", s)
		}
	}
}

// a failing stage surfaces as ErrStoreUnavailable with no partial answer
func TestSearchStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")

	testCases := []struct {
		store       *fakeStore
		description string
	}{
		{
			store: &fakeStore{
				tagsFn: func(_ context.Context, _ string, _, _ int) ([]Tag, error) {
					return nil, boom
				},
				aliasesFn: func(_ context.Context, _ string, _ []AliasStatus, _, _ int) ([]AliasedTag, error) {
					return []AliasedTag{{Tag: Tag{Name: "cats", PostCount: 500}}}, nil
				},
			},
			description: "direct stage fails",
		},
		{
			store: &fakeStore{
				tagsFn: func(_ context.Context, _ string, _, _ int) ([]Tag, error) {
					return []Tag{{Name: "cats", PostCount: 500}}, nil
				},
				aliasesFn: func(_ context.Context, _ string, _ []AliasStatus, _, _ int) ([]AliasedTag, error) {
					return nil, boom
				},
			},
			description: "alias stage fails",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			engine := NewEngine(tc.store, DefaultLimits())
			got, err := engine.Search(context.Background(), "cat")
			if err == nil {
				t.Fatal("expected an error, got none")
			}
			if !errors.Is(err, ErrStoreUnavailable) {
				t.Errorf("expected ErrStoreUnavailable, got %v", err)
			}
			if got != nil {
				t.Errorf("no partial results on failure, got %v", got)
			}
		})
	}
}

// SearchN overrides the answer size; non-positive falls back to Final
func TestSearchNLimit(t *testing.T) {
	store := &fakeStore{
		tagsFn: func(_ context.Context, _ string, _, limit int) ([]Tag, error) {
			tags := make([]Tag, 0, limit)
			for i := 0; i < limit; i++ {
				tags = append(tags, Tag{ID: int32(i), Name: string(rune('a' + i)), PostCount: int32(100 - i)})
			}
			return tags, nil
		},
	}
	engine := NewEngine(store, Limits{Direct: 10, Alias: 20, Final: 4})

	got, err := engine.SearchN(context.Background(), "x", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("SearchN(2): expected 2 results, got %d", len(got))
	}

	got, err = engine.SearchN(context.Background(), "x", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("SearchN(0) should use the final limit 4, got %d", len(got))
	}
}

// zero-value limits never disable a stage
func TestNewEngineNormalizesLimits(t *testing.T) {
	engine := NewEngine(&fakeStore{}, Limits{})
	if engine.Limits() != DefaultLimits() {
		t.Errorf("zero limits should normalize to defaults, got %+v", engine.Limits())
	}

	engine.SetLimits(Limits{Direct: 5, Alias: 0, Final: 3})
	limits := engine.Limits()
	if limits.Direct != 5 || limits.Alias != 20 || limits.Final != 3 {
		t.Errorf("partial update should default the zero field, got %+v", limits)
	}
}

// a custom status set replaces the eligible defaults
func TestNewEngineCustomStatuses(t *testing.T) {
	var gotStatuses []AliasStatus
	store := &fakeStore{
		aliasesFn: func(_ context.Context, _ string, statuses []AliasStatus, _, _ int) ([]AliasedTag, error) {
			gotStatuses = statuses
			return nil, nil
		},
	}

	engine := NewEngine(store, DefaultLimits(), StatusActive)
	if _, err := engine.Search(context.Background(), "cat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotStatuses) != 1 || gotStatuses[0] != StatusActive {
		t.Errorf("expected custom status set [active], got %v", gotStatuses)
	}
}
