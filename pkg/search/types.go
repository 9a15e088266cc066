package search

import "errors"

// ErrStoreUnavailable reports that a backing store read could not be
// performed. It is the only error Search surfaces: no retry, no partial
// results.
var ErrStoreUnavailable = errors.New("tag store unavailable")

// defaultMinPostCount is the floor both matcher stages apply: tags and
// aliases with a zero count never surface.
const defaultMinPostCount = 1

// AliasStatus is the lifecycle state of an alias. The full enumeration is
// owned by the external curation system; the engine only cares which subset
// is live enough to resolve.
type AliasStatus string

const (
	StatusActive     AliasStatus = "active"
	StatusProcessing AliasStatus = "processing"
	StatusQueued     AliasStatus = "queued"
	StatusDeleted    AliasStatus = "deleted"
	StatusRetired    AliasStatus = "retired"
	StatusPending    AliasStatus = "pending"
)

// EligibleStatuses returns the alias states that participate in resolution.
// Returns a fresh slice so callers can't mutate the default set.
func EligibleStatuses() []AliasStatus {
	return []AliasStatus{StatusActive, StatusProcessing, StatusQueued}
}

// Tag is the canonical searchable entity. The engine only ever reads tags;
// creation and counting belong to the curation system.
type Tag struct {
	ID        int32
	Name      string
	PostCount int32
	Category  int16
}

// Alias redirects an alternate name to a canonical tag. PostCount here is
// the popularity of the antecedent association and may diverge from the
// resolved tag's own count; it ranks the alias candidate before resolution.
type Alias struct {
	ID             int32
	AntecedentName string
	ConsequentName string
	Status         AliasStatus
	PostCount      int32
}

// AliasedTag is an alias joined to the tag its consequent name resolves to.
type AliasedTag struct {
	Alias Alias
	Tag   Tag
}

// MatchSource records which matcher produced a candidate.
type MatchSource string

const (
	MatchDirect MatchSource = "direct"
	MatchAlias  MatchSource = "alias"
)

// Candidate is one result row. Name, PostCount, Category and ID always come
// from the canonical tag; Antecedent is set only for alias-derived rows and
// names the alias that matched the query.
type Candidate struct {
	ID         int32       `json:"id"`
	Name       string      `json:"name"`
	PostCount  int32       `json:"post_count"`
	Category   int16       `json:"category"`
	Source     MatchSource `json:"matched_via"`
	Antecedent string      `json:"antecedent_name,omitempty"`
}

// Limits are the fan-in/fan-out knobs of a query. Alias is larger than
// Direct because dedup collapses many-to-one alias hits, so the alias stage
// over-fetches to compensate.
type Limits struct {
	Direct int
	Alias  int
	Final  int
}

// DefaultLimits returns the production tuning: 10 direct, 20 alias (2x
// over-fetch), 10 final.
func DefaultLimits() Limits {
	return Limits{Direct: 10, Alias: 20, Final: 10}
}

// normalized replaces non-positive knobs with the defaults so a zero-value
// or partially filled Limits never disables a stage.
func (l Limits) normalized() Limits {
	def := DefaultLimits()
	if l.Direct <= 0 {
		l.Direct = def.Direct
	}
	if l.Alias <= 0 {
		l.Alias = def.Alias
	}
	if l.Final <= 0 {
		l.Final = def.Final
	}
	return l
}
