package qcache

// validateSignature implements §4.4: rejects InOutFilter terms, enforces
// at most one cascade term, records which term (1-based) drives cascade
// grouping, scans terms for Up/IsEntity source flags to set desc.HasRefs,
// and clears MatchEmptyTables when an order_by id is requested. Named-
// variable and non-wildcard-variable references are not representable by
// Term at all (Ref only ever holds a concrete ID, This, or Wildcard), so the
// corresponding rejection in the distilled design is enforced by
// construction rather than by a runtime check here.
func validateSignature(desc *QueryDesc) (cascadeBy int, cascadeRel ID, descending bool, err *CacheError) {
	cascadeBy = 0
	for i, t := range desc.Terms {
		if t.InOutFilter {
			return 0, 0, false, newCacheError(UnsupportedTerm, "InOutFilter is not supported on a cached term")
		}
		if t.Up || t.Src.isEntity() {
			desc.HasRefs = true
		}
		if t.Cascade {
			if cascadeBy != 0 {
				return 0, 0, false, newCacheError(InvalidGrouping, "at most one term may carry cascade")
			}
			cascadeBy = i + 1
			cascadeRel = t.UpRel
			descending = t.Desc
		}
	}
	if cascadeBy != 0 && desc.GroupByCallback != nil {
		return 0, 0, false, newCacheError(InvalidGrouping, "cascade cannot be combined with a custom group_by callback")
	}
	if desc.OrderByID != 0 {
		found := false
		for _, t := range desc.Terms {
			if !t.IsWildcardPair() && t.ID() == desc.OrderByID {
				found = true
				break
			}
		}
		if !found {
			return 0, 0, false, newCacheError(OrderByNotQueried, "order_by id does not appear as an And term")
		}
		// order_by is incompatible with matching empty tables: an ordered
		// iteration has nothing principled to do with a row-less table, so
		// the flag is cleared rather than rejected (§6).
		desc.MatchEmptyTables = false
	}
	return cascadeBy, cascadeRel, descending, nil
}

// classifyTrivial implements the trivial-cache test of §4.1: self-only,
// wildcard-free, no grouping/ordering, no change detection.
func classifyTrivial(desc *QueryDesc) bool {
	if desc.DetectChanges || desc.OrderByID != 0 {
		return false
	}
	if desc.GroupByID != 0 || desc.GroupByCallback != nil {
		return false
	}
	for _, t := range desc.Terms {
		if t.IsWildcardPair() || t.Up || t.Cascade {
			return false
		}
	}
	return true
}

// registerMonitors implements the monitor-wiring half of §4.4: a monitor
// per term id, plus (traversal_rel, *) and, when distinct from the
// built-in inheritance relation, (InheritsFrom, *) for up-traversed terms.
func registerMonitors(m *MonitorRegistry, owner *Cache, desc *QueryDesc) {
	for _, t := range desc.Terms {
		m.Register(t.ID(), owner)
		if t.Up {
			m.Register(Pair(t.UpRel, Wildcard), owner)
			if t.UpRel != InheritsFrom {
				m.Register(Pair(InheritsFrom, Wildcard), owner)
			}
		}
	}
}

func unregisterMonitors(m *MonitorRegistry, owner *Cache, desc *QueryDesc) {
	for _, t := range desc.Terms {
		m.Unregister(t.ID(), owner)
		if t.Up {
			m.Unregister(Pair(t.UpRel, Wildcard), owner)
			if t.UpRel != InheritsFrom {
				m.Unregister(Pair(InheritsFrom, Wildcard), owner)
			}
		}
	}
}

// InheritsFrom is the built-in inheritance relation, compared against a
// term's UpRel to decide whether a second monitor registration is needed.
// An Up term always walks its own UpRel; InheritsFrom is not filled in as a
// default.
const InheritsFrom ID = 1
