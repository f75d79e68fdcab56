package qcache

// ensureBucket returns the bucket for t, creating it if this is the first
// match for the table.
func (c *Cache) ensureBucket(t *Table) *Bucket {
	if b, ok := c.tables[t.id]; ok {
		return b
	}
	b := &Bucket{table: t}
	c.tables[t.id] = b
	return b
}

// appendMatchRecord allocates a record for t, links it onto the table's
// bucket and into the iteration list, and populates it from res. This is
// §4.2 "Append a match record for a table" plus "Populate a record from a
// query yield" fused into one call, since every append in this
// implementation is immediately followed by a populate.
func (c *Cache) appendMatchRecord(t *Table, res Resolution) *MatchRecord {
	b := c.ensureBucket(t)
	r := c.recordPool.Get()
	*r = MatchRecord{Table: t, Trs: res.Trs}
	b.appendMatch(r)
	c.populateRecord(r, res)
	c.insertRecord(r)
	c.matchCount++
	return r
}

// populateRecord fills in the extension fields for the full layout,
// applying the shared-vector discipline: a field vector that is
// element-wise equal to the cache's default is dropped in favor of the
// shared default, never copied, so the common case allocates nothing. A
// trivial cache never allocates r.ext at all — it has no fields to carry.
func (c *Cache) populateRecord(r *MatchRecord, res Resolution) {
	if c.trivial {
		for _, s := range res.Sources {
			if s != (Entity{}) {
				panic("qcache: trivial cache received a non-generic source")
			}
		}
		return
	}

	if r.ext == nil {
		r.ext = c.extPool.Get()
	}
	ext := r.ext
	ext.setFields = res.SetFields
	ext.upFields = res.UpFields

	if idsEqual(res.Ids, c.idsDefault) {
		ext.ids = c.idsDefault
	} else {
		ext.ids = append([]ID(nil), res.Ids...)
	}

	if sourcesEqual(res.Sources, c.sourcesDefault) {
		ext.sources = c.sourcesDefault
		ext.tables = nil
	} else {
		ext.sources = append([]Entity(nil), res.Sources...)
		ext.tables = make([]*Table, len(res.Trs))
		for i, tr := range res.Trs {
			ext.tables[i] = tr.Table
		}
	}
}

func idsEqual(a, b []ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sourcesEqual(a, b []Entity) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// releaseRecordVectors clears r's extension vectors and returns r.ext to the
// full-layout arena, leaving the cache's shared idsDefault/sourcesDefault
// untouched — those are owned by the cache for its lifetime and never freed
// through a record (§9 "Shared vs. private vectors"). A no-op for a trivial
// cache's records, which never have an ext to release.
func (c *Cache) releaseRecordVectors(r *MatchRecord) {
	r.Trs = nil
	ext := r.ext
	if ext == nil {
		return
	}
	if !isDefaultIDs(ext, c) {
		ext.ids = nil
	}
	if !isDefaultSources(ext, c) {
		ext.sources = nil
	}
	ext.tables = nil
	ext.monitor = nil
	c.extPool.Put(ext)
	r.ext = nil
}

// removeMatchRecord unlinks r from the iteration list, its group, and its
// table's bucket, then returns it to the pool. Extension vectors are only
// released when they are private allocations, never when they alias the
// cache's shared defaults (§5 "Shared resources").
func (c *Cache) removeMatchRecord(r *MatchRecord) {
	c.removeFromGlobal(r)
	b := c.tables[r.Table.id]
	if b != nil {
		b.removeMatch(r)
	}
	c.releaseRecordVectors(r)
	c.recordPool.Put(r)
	c.matchCount++
}

func isDefaultIDs(ext *matchExt, c *Cache) bool {
	if ext.ids == nil {
		return true
	}
	if len(c.idsDefault) == 0 {
		return false
	}
	return &ext.ids[0] == &c.idsDefault[0]
}

func isDefaultSources(ext *matchExt, c *Cache) bool {
	if ext.sources == nil {
		return true
	}
	if len(c.sourcesDefault) == 0 {
		return false
	}
	return &ext.sources[0] == &c.sourcesDefault[0]
}

// freeBucket walks the bucket's next-match chain removing every record,
// then drops the bucket from the table map (§4.2 "Free a bucket").
func (c *Cache) freeBucket(t *Table) {
	b, ok := c.tables[t.id]
	if !ok {
		return
	}
	for r := b.first; r != nil; {
		next := r.nextMatch
		r.nextMatch = nil
		c.removeFromGlobal(r)
		c.releaseRecordVectors(r)
		c.recordPool.Put(r)
		c.matchCount++
		r = next
	}
	delete(c.tables, t.id)
	c.matchCount++ // dropping the bucket itself is one more change
}
