package qcache

// TableRecord names the column within a table that backs one query field.
// Column is -1 when the field is resolved but not backed by a stored
// column (not used by this core, kept for symmetry with the source's
// table-record concept).
type TableRecord struct {
	Table  *Table
	Column int32
}

// Resolution is one yield of the uncached query evaluator: everything the
// cache needs to populate a match record for one (table, field-binding)
// combination.
type Resolution struct {
	Table      *Table
	Trs        []TableRecord
	Ids        []ID
	Sources    []Entity
	SetFields  uint64
	UpFields   uint64
}

// Evaluator runs a QueryDesc against a World, producing Resolutions. It is
// the uncached counterpart the cache re-runs on construction, on
// table-create, and during rematch; grounded in the teacher's staleness-
// checked Filter[T]/Query[T] loop (filter.go, query.go), generalized from a
// single compile-time component type to a runtime term list and from one
// resolution per table to N when a term's second reference is a wildcard.
type Evaluator struct {
	world *World
	desc  *QueryDesc
}

// NewEvaluator builds an evaluator bound to desc.
func NewEvaluator(world *World, desc *QueryDesc) *Evaluator {
	return &Evaluator{world: world, desc: desc}
}

// MatchTable reports whether t satisfies every term in the evaluator's
// query, ignoring wildcard expansion (a wildcard term matches if it has at
// least one target). The table-create handler and rematch do not call it:
// both run IterTable instead.
func (e *Evaluator) MatchTable(t *Table) bool {
	for _, term := range e.desc.Terms {
		if !e.termMatchesTable(term, t) {
			return false
		}
	}
	return true
}

func (e *Evaluator) termMatchesTable(term Term, t *Table) bool {
	if term.Up {
		target := e.upTarget(term, t)
		if target == nil {
			return false
		}
		return target.HasID(term.First.ID)
	}
	if term.IsWildcardPair() {
		return len(t.PairTargets(term.First.ID)) > 0
	}
	return t.HasID(term.ID())
}

// upTarget resolves the table reached by following term's traversal
// relationship one hop from t, or nil if t carries no such pair.
func (e *Evaluator) upTarget(term Term, t *Table) *Table {
	targets := t.PairTargets(term.UpRel)
	if len(targets) == 0 {
		return nil
	}
	return e.world.entities.metas[uint32(targets[0])].table
}

// IterAll runs the query over every table in the world in table-creation
// order, matching the source's "iterate the uncached query across all
// tables" rematch pass.
func (e *Evaluator) IterAll() []Resolution {
	var out []Resolution
	for _, t := range e.world.Tables() {
		out = append(out, e.resolveTable(t)...)
	}
	return out
}

// IterTable runs the query against a single table bound as $this, matching
// the table-create handler's "run the uncached query with the table bound".
func (e *Evaluator) IterTable(t *Table) []Resolution {
	return e.resolveTable(t)
}

// resolveTable produces zero or more Resolutions for t: one unless a
// wildcard term is present, in which case one per combination of distinct
// targets across the query's wildcard terms. Matching depends only on t's
// signature, never on whether t currently holds any rows: an empty table
// still gets a match record, matching the source's unconditional
// flecs_query_cache_add_table_match. MatchEmptyTables instead governs what
// Cache.Visible reports once a record exists — see cache.go.
func (e *Evaluator) resolveTable(t *Table) []Resolution {
	n := len(e.desc.Terms)
	base := Resolution{
		Table:     t,
		Trs:       make([]TableRecord, n),
		Ids:       make([]ID, n),
		Sources:   make([]Entity, n),
	}

	variants := []Resolution{base}
	for i, term := range e.desc.Terms {
		if !e.bindTerm(i, term, t, &variants) {
			return nil
		}
	}
	return variants
}

// bindTerm resolves one term against t for every in-flight variant,
// expanding variants in place when the term is a wildcard pair with more
// than one target. Returns false if the term has no resolution at all,
// meaning the table does not match.
func (e *Evaluator) bindTerm(i int, term Term, t *Table, variants *[]Resolution) bool {
	if term.Up {
		target := e.upTarget(term, t)
		if target == nil || !target.HasID(term.First.ID) {
			return false
		}
		parent := uint32(t.PairTargets(term.UpRel)[0])
		source := Entity{ID: parent, Version: e.world.entities.metas[parent].version}
		for v := range *variants {
			r := &(*variants)[v]
			r.Trs[i] = TableRecord{Table: target, Column: columnOf(target, term.First.ID)}
			r.Ids[i] = term.First.ID
			r.UpFields |= 1 << uint(i)
			r.SetFields |= 1 << uint(i)
			r.Sources[i] = source
		}
		return true
	}

	if term.IsWildcardPair() {
		targets := t.PairTargets(term.First.ID)
		if len(targets) == 0 {
			return false
		}
		next := make([]Resolution, 0, len(*variants)*len(targets))
		for _, base := range *variants {
			for _, target := range targets {
				r := cloneResolution(base)
				r.Trs[i] = TableRecord{Table: t, Column: columnOf(t, Pair(term.First.ID, target))}
				r.Ids[i] = Pair(term.First.ID, target)
				r.SetFields |= 1 << uint(i)
				next = append(next, r)
			}
		}
		*variants = next
		return true
	}

	id := term.ID()
	if !t.HasID(id) {
		return false
	}
	for v := range *variants {
		r := &(*variants)[v]
		r.Trs[i] = TableRecord{Table: t, Column: columnOf(t, id)}
		r.Ids[i] = id
		r.SetFields |= 1 << uint(i)
	}
	return true
}

func cloneResolution(r Resolution) Resolution {
	out := r
	out.Trs = append([]TableRecord(nil), r.Trs...)
	out.Ids = append([]ID(nil), r.Ids...)
	out.Sources = append([]Entity(nil), r.Sources...)
	return out
}

func columnOf(t *Table, id ID) int32 {
	for i, cur := range t.ids {
		if cur == id {
			return int32(i)
		}
	}
	return -1
}
