package qcache

// passesBloom runs the conservative pre-check of §4.5's table-create
// handler: t's mask must carry every bit the query's concrete, non-wildcard,
// non-up terms require before the (more expensive) full evaluator run is
// attempted. The per-query bits are folded into a single mask once, at
// construction, so this is one bitmask256.contains call rather than a
// per-term loop.
func (c *Cache) passesBloom(t *Table) bool {
	return t.mask.contains(c.queryMask)
}

// queryMaskFor folds every concrete, non-wildcard, non-up term's id into one
// bitmask256, built to drive bitmask256.contains (bitmask.go) as the Bloom
// pre-check's comparison mask.
func queryMaskFor(desc *QueryDesc) bitmask256 {
	var m bitmask256
	for _, term := range desc.Terms {
		if term.Up || term.IsWildcardPair() {
			continue
		}
		m.set(term.ID().componentID())
	}
	return m
}

// onEvent is the cache's observer-bus handler, compatible with the
// at-most-once EventID contract of §6.
func (c *Cache) onEvent(ev Event) {
	if c.closed {
		return
	}
	if ev.EventID <= c.lastEventID {
		return
	}
	c.lastEventID = ev.EventID

	switch ev.Kind {
	case TableCreate:
		c.onTableCreate(ev.Table)
	case TableDelete:
		c.onTableDelete(ev.Table)
	}
}

func (c *Cache) onTableCreate(t *Table) {
	if !c.passesBloom(t) {
		return
	}
	for _, res := range c.eval.IterTable(t) {
		c.appendMatchRecord(t, res)
	}
}

func (c *Cache) onTableDelete(t *Table) {
	if _, ok := c.tables[t.id]; !ok {
		return
	}
	c.freeBucket(t)
}

// Rematch is the full rematch engine of §4.5, run whenever the world's
// monitor generation has advanced past what this cache last observed.
// Trivial caches never rematch: they carry no wildcard/up/group state that
// could drift out from under a structural change without also firing a
// table-create/table-delete event the observer path already handles.
func (c *Cache) Rematch() {
	if c.trivial {
		return
	}
	gen := c.world.Monitors().Generation()
	if gen <= c.monitorGeneration {
		return
	}
	c.monitorGeneration = gen
	c.rematchCount++

	var (
		curTable *Table
		bkt      *Bucket
		cursor   *MatchRecord
		lastKept *MatchRecord
	)

	finalize := func() {
		if bkt == nil || cursor == nil {
			return
		}
		for r := cursor; r != nil; {
			next := r.nextMatch
			r.nextMatch = nil
			c.removeFromGlobal(r)
			c.releaseRecordVectors(r)
			c.recordPool.Put(r)
			c.matchCount++
			r = next
		}
		if lastKept != nil {
			lastKept.nextMatch = nil
			bkt.last = lastKept
		} else {
			bkt.first = nil
			bkt.last = nil
		}
	}

	for _, t := range c.world.Tables() {
		resolutions := c.eval.IterTable(t)
		if len(resolutions) == 0 {
			continue
		}
		if t != curTable {
			finalize()
			curTable = t
			bkt = c.ensureBucket(t)
			bkt.rematchCount = c.rematchCount
			cursor = bkt.first
			lastKept = nil
		}
		for _, res := range resolutions {
			var r *MatchRecord
			if cursor != nil {
				r = cursor
				cursor = cursor.nextMatch
				r.Trs = res.Trs
				c.populateRecord(r, res)
			} else {
				r = c.recordPool.Get()
				*r = MatchRecord{Table: t, Trs: res.Trs}
				bkt.appendMatch(r)
				c.populateRecord(r, res)
				c.insertRecord(r)
				c.matchCount++
			}
			lastKept = r

			if c.groups != nil {
				newGroup := c.groupIDFor(t)
				if newGroup != r.GroupID {
					c.removeFromGlobal(r)
					r.GroupID = newGroup
					c.spliceIntoGroup(r)
				}
			}
		}
	}
	finalize()

	for _, b := range c.tables {
		if b.rematchCount != c.rematchCount {
			c.freeBucket(b.table)
		}
	}
}
