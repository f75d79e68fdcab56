package qcache

// matchExt holds the fields that only a full-layout record carries: per-field
// ids/sources that diverge from the query's shared defaults, the traversed
// source tables, and the change-detection monitor. It is allocated from its
// own arena (Cache.extPool) so that a trivial cache's records — which never
// touch any of this — really do have a smaller footprint than a full cache's,
// per the two distinct bucketed allocators named in §4.2/§6.
type matchExt struct {
	ids       []ID
	sources   []Entity
	tables    []*Table
	setFields uint64
	upFields  uint64
	monitor   []uint64
}

// MatchRecord is the atom of the cache: one (table, field-binding)
// resolution. The header fields (Table, Trs, prev/next, nextMatch, GroupID)
// are populated for every cache; ext is nil for a trivial cache and is only
// ever allocated, from the cache's full-layout arena, when Cache.trivial is
// false. This mirrors the source's two-layout design with two arenas instead
// of one, since a single cache instance never mixes the two (invariant 5).
type MatchRecord struct {
	Table *Table
	Trs   []TableRecord

	prev, next *MatchRecord
	nextMatch  *MatchRecord

	GroupID uint64

	ext *matchExt
}

// Next returns the record following r in the cache's global iteration list.
func (r *MatchRecord) Next() *MatchRecord { return r.next }

// Prev returns the record preceding r in the cache's global iteration list.
func (r *MatchRecord) Prev() *MatchRecord { return r.prev }

// NextMatch returns the next record for the same table (wildcard expansion
// chain), or nil at the end of the chain.
func (r *MatchRecord) NextMatch() *MatchRecord { return r.nextMatch }

// Bucket is the per-table bucket of the data model: the head/tail of the
// next-match chain for one table, plus the rematch generation stamp.
type Bucket struct {
	table        *Table
	first, last  *MatchRecord
	rematchCount uint64
}

// First returns the first match record for this table.
func (b *Bucket) First() *MatchRecord { return b.first }

func (b *Bucket) appendMatch(r *MatchRecord) {
	if b.first == nil {
		b.first = r
		b.last = r
		return
	}
	b.last.nextMatch = r
	b.last = r
}

// removeMatch unlinks r from the bucket's next-match chain. O(chain length)
// — acceptable since wildcard fan-out per table is small in practice,
// matching the source's own linear walk for this operation.
func (b *Bucket) removeMatch(r *MatchRecord) {
	if b.first == r {
		b.first = r.nextMatch
		if b.last == r {
			b.last = nil
		}
		r.nextMatch = nil
		return
	}
	for cur := b.first; cur != nil; cur = cur.nextMatch {
		if cur.nextMatch == r {
			cur.nextMatch = r.nextMatch
			if b.last == r {
				b.last = cur
			}
			r.nextMatch = nil
			return
		}
	}
}
