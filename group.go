package qcache

// groupInfo is the per-group counter set exposed to consumers.
type groupInfo struct {
	tableCount int
	matchCount int
	ctx        any
}

// groupList is a contiguous segment of the global iteration list: the
// group index is an overlay/splice layer on that list, not an independent
// list, so that unfiltered iteration only ever walks the global list
// (§9 "Grouping as a splice layer").
type groupList struct {
	groupID     uint64
	first, last *MatchRecord
	info        groupInfo
}

// groupIDFor computes the group id for t, following the priority order
// documented in §4.3: a user callback first, then the built-in cascade
// (relationship depth), then the built-in default pair match, then zero.
func (c *Cache) groupIDFor(t *Table) uint64 {
	if c.desc.GroupByCallback != nil {
		return c.desc.GroupByCallback(c.world, t, c.desc.GroupByID)
	}
	if c.cascadeBy != 0 {
		return uint64(c.world.RelationDepth(c.cascadeRel, t))
	}
	if c.desc.GroupByID != 0 {
		targets := t.PairTargets(c.desc.GroupByID)
		if len(targets) == 0 {
			return 0
		}
		return uint64(targets[0])
	}
	return 0
}

// findInsertionNeighbor scans the group map for the group whose key is
// nearest to newKey on the "already placed" side: the largest key smaller
// than newKey when ascending, the smallest key larger than newKey when
// descending. Returns nil if no such group exists yet.
func (c *Cache) findInsertionNeighbor(newKey uint64) *groupList {
	var best *groupList
	for key, g := range c.groups {
		if key == newKey {
			continue
		}
		if c.groupAscending {
			if key < newKey && (best == nil || key > best.groupID) {
				best = g
			}
		} else {
			if key > newKey && (best == nil || key < best.groupID) {
				best = g
			}
		}
	}
	return best
}

// insertRecord splices r into the global list (and, if grouping is active,
// into its group), computing r's group id first.
func (c *Cache) insertRecord(r *MatchRecord) {
	if c.groups == nil {
		c.appendGlobal(r)
		r.GroupID = 0
		return
	}
	r.GroupID = c.groupIDFor(r.Table)
	c.spliceIntoGroup(r)
}

func (c *Cache) appendGlobal(r *MatchRecord) {
	if c.last == nil {
		c.first, c.last = r, r
		return
	}
	c.last.next = r
	r.prev = c.last
	c.last = r
}

func (c *Cache) insertGlobalAfter(after, r *MatchRecord) {
	if after == nil {
		r.next = c.first
		if c.first != nil {
			c.first.prev = r
		}
		c.first = r
		if c.last == nil {
			c.last = r
		}
		return
	}
	r.next = after.next
	r.prev = after
	if after.next != nil {
		after.next.prev = r
	} else {
		c.last = r
	}
	after.next = r
}

func (c *Cache) spliceIntoGroup(r *MatchRecord) {
	g, ok := c.groups[r.GroupID]
	if !ok {
		neighbor := c.findInsertionNeighbor(r.GroupID)
		g = &groupList{groupID: r.GroupID}
		c.groups[r.GroupID] = g
		if neighbor != nil {
			c.insertGlobalAfter(neighbor.last, r)
		} else {
			c.insertGlobalAfter(nil, r)
		}
		g.first, g.last = r, r
	} else {
		c.insertGlobalAfter(g.last, r)
		g.last = r
	}
	g.info.matchCount++
	if r.Table != nil {
		g.info.tableCount = c.countTablesInGroup(g)
	}
	if c.desc.OnGroupCreate != nil && g.info.matchCount == 1 {
		g.info.ctx = c.desc.OnGroupCreate(c.world, r.GroupID)
	}
}

func (c *Cache) countTablesInGroup(g *groupList) int {
	seen := make(map[TableID]struct{})
	for cur := g.first; cur != nil; cur = cur.next {
		seen[cur.Table.id] = struct{}{}
		if cur == g.last {
			break
		}
	}
	return len(seen)
}

// removeFromGlobal unlinks r from the global list, and from its group when
// grouping is active, running the group cleanup described in §4.3.
func (c *Cache) removeFromGlobal(r *MatchRecord) {
	if r.prev != nil {
		r.prev.next = r.next
	} else {
		c.first = r.next
	}
	if r.next != nil {
		r.next.prev = r.prev
	} else {
		c.last = r.prev
	}

	if c.groups != nil {
		c.cleanupGroup(r)
	}

	r.prev, r.next = nil, nil
}

func (c *Cache) cleanupGroup(r *MatchRecord) {
	g, ok := c.groups[r.GroupID]
	if !ok {
		return
	}
	g.info.matchCount--

	if g.first == r && g.last == r {
		if c.desc.OnGroupDelete != nil {
			c.desc.OnGroupDelete(c.world, r.GroupID, g.info.ctx)
		}
		delete(c.groups, r.GroupID)
		return
	}
	if g.first == r {
		g.first = r.next
	}
	if g.last == r {
		g.last = r.prev
	}
	// Guard against the endpoint now pointing into a neighboring group:
	// this only happens if r was the sole member, handled above, so the
	// remaining endpoints are always still members of g.
	g.info.tableCount = c.countTablesInGroup(g)
}
