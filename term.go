package qcache

// Oper is a term's logical operator. The cache-eligible subset of queries
// supports only conjunction; Or/Not/Optional terms are the evaluator's
// concern and never reach the cache core.
type Oper uint8

const And Oper = 0

// Ref is one of a term's three references (src, first, second): a concrete
// ID, the $this variable, or a wildcard.
type Ref struct {
	ID ID
}

func (r Ref) isThis() bool     { return r.ID == This }
func (r Ref) isWildcard() bool { return r.ID == Wildcard }

// isEntity reports whether r names a fixed entity rather than $this or a
// wildcard — e.g. a term whose source is pinned to a specific singleton
// entity instead of the table being iterated. The zero Ref (unset Src) is
// not an entity reference: it means "implicitly $this".
func (r Ref) isEntity() bool { return r.ID != 0 && !r.isThis() && !r.isWildcard() }

// Term is one clause of a query signature.
type Term struct {
	Src    Ref
	First  Ref
	Second Ref
	Oper   Oper

	InOutFilter bool // rejected by the validator; never legal on a cached query

	Up       bool // src is resolved by traversing a relationship from $this
	UpRel    ID   // the relationship walked when Up is set
	Cascade  bool // this term drives the built-in cascade grouping
	Desc     bool // cascade order is descending when set
}

// ID returns the component or pair id this term matches against a table,
// combining First/Second the way a plain component term (First only) or a
// pair term (First, Second) would be written by a caller.
func (t Term) ID() ID {
	if t.Second.ID == 0 && !t.Second.isWildcard() {
		return t.First.ID
	}
	return Pair(t.First.ID, t.Second.ID)
}

// IsWildcardPair reports whether this term's second reference is Wildcard,
// meaning it can expand into more than one match per table.
func (t Term) IsWildcardPair() bool {
	return t.Second.isWildcard()
}

// QueryDesc describes a cacheable query: its terms plus the grouping,
// ordering and change-detection options named in the external-interfaces
// configuration list.
type QueryDesc struct {
	Terms []Term

	GroupByID       ID
	GroupByCallback func(world *World, table *Table, groupByID ID) uint64
	OnGroupCreate   func(world *World, groupID uint64) any
	OnGroupDelete   func(world *World, groupID uint64, ctx any)

	OrderByID ID

	DetectChanges    bool
	MatchEmptyTables bool

	// HasRefs records whether any term traverses (Up) or is pinned to a fixed
	// entity (an IsEntity source) rather than binding purely against the
	// iterated table. Computed and set by validateSignature at Init time
	// (§4.4); callers never need to set it themselves.
	HasRefs bool
}
