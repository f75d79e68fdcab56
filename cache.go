package qcache

// Cache is the query cache container (§4.1): it owns the table-id →
// per-table-bucket map and the global doubly-linked iteration list, plus
// the allocators and configuration derived from a QueryDesc at Init.
type Cache struct {
	world *World
	desc  *QueryDesc
	eval  *Evaluator

	trivial   bool
	queryMask bitmask256

	tables map[TableID]*Bucket

	first, last *MatchRecord
	matchCount  uint64

	groups         map[uint64]*groupList
	groupAscending bool
	cascadeBy      int // 1-based term index; 0 means no cascade
	cascadeRel     ID

	idsDefault     []ID
	sourcesDefault []Entity

	monitorGeneration uint64
	rematchCount      uint64

	recordPool *Pool[MatchRecord]
	extPool    *Pool[matchExt] // nil for a trivial cache: no record ever needs one

	lastEventID uint64
	closed      bool
	iterating   bool
}

// Init builds a cache for desc against world: validates the signature,
// classifies trivial vs full layout, registers change monitors, populates
// every currently-matching table, and subscribes to table-create/delete
// events.
func Init(world *World, desc QueryDesc) (*Cache, error) {
	if world.closed {
		return nil, newCacheError(WorldShuttingDown, "")
	}

	cascadeBy, cascadeRel, descending, verr := validateSignature(&desc)
	if verr != nil {
		return nil, verr
	}

	c := &Cache{
		world:          world,
		desc:           &desc,
		trivial:        classifyTrivial(&desc),
		queryMask:      queryMaskFor(&desc),
		tables:         make(map[TableID]*Bucket),
		cascadeBy:      cascadeBy,
		cascadeRel:     cascadeRel,
		groupAscending: !descending,
		recordPool:     NewPool[MatchRecord](),
	}
	c.eval = NewEvaluator(world, c.desc)

	if cascadeBy != 0 || desc.GroupByID != 0 || desc.GroupByCallback != nil {
		c.groups = make(map[uint64]*groupList)
	}

	if !c.trivial {
		c.extPool = NewPool[matchExt]()
		c.idsDefault = make([]ID, len(desc.Terms))
		for i, t := range desc.Terms {
			c.idsDefault[i] = t.ID()
		}
		c.sourcesDefault = make([]Entity, len(desc.Terms))
	}

	registerMonitors(world.Monitors(), c, c.desc)
	c.monitorGeneration = world.Monitors().Generation()

	for _, t := range world.Tables() {
		for _, res := range c.eval.IterTable(t) {
			c.appendMatchRecord(t, res)
		}
	}

	world.observer.Subscribe(TableCreate, c.onEvent)
	world.observer.Subscribe(TableDelete, c.onEvent)

	return c, nil
}

// Fini tears the cache down: fires on_group_delete for every surviving
// group, unregisters monitors, and frees every bucket, record, and group.
func (c *Cache) Fini() {
	if c.closed {
		return
	}
	c.closed = true
	for _, t := range c.tableList() {
		c.freeBucket(t)
	}
	if c.groups != nil {
		for id, g := range c.groups {
			if c.desc.OnGroupDelete != nil {
				c.desc.OnGroupDelete(c.world, id, g.info.ctx)
			}
		}
		c.groups = nil
	}
	unregisterMonitors(c.world.Monitors(), c, c.desc)
}

func (c *Cache) tableList() []*Table {
	out := make([]*Table, 0, len(c.tables))
	for _, b := range c.tables {
		out = append(out, b.table)
	}
	return out
}

// TableCount returns the number of per-table buckets.
func (c *Cache) TableCount() int { return len(c.tables) }

// EntityCount returns the sum of each matched table's current entity count.
func (c *Cache) EntityCount() int {
	n := 0
	for _, b := range c.tables {
		n += b.table.Count()
	}
	return n
}

// MatchCount returns the monotonic change stamp: bumped on every successful
// insert or remove (invariant 7), and once more whenever a table's bucket is
// dropped.
func (c *Cache) MatchCount() uint64 { return c.matchCount }

// GetTable returns the bucket for t, or nil if t is not currently matched.
func (c *Cache) GetTable(t *Table) *Bucket {
	return c.tables[t.id]
}

// Visible reports whether r should be surfaced to a caller walking the
// iteration list. The cache tracks a match for every signature-matching
// table regardless of row count — MatchEmptyTables only decides what's
// visible here, never what gets stored (§4.4/§6's distinction between
// "cached" and "surfaced to iteration").
func (c *Cache) Visible(r *MatchRecord) bool {
	return c.desc.MatchEmptyTables || r.Table.Count() > 0
}

// First returns the head of the global iteration list.
func (c *Cache) First() *MatchRecord { return c.first }

// Last returns the tail of the global iteration list.
func (c *Cache) Last() *MatchRecord { return c.last }

// Group returns the first/last records of the group's window within the
// global list, or (nil, nil) if the group has no current members.
func (c *Cache) Group(groupID uint64) (first, last *MatchRecord) {
	if c.groups == nil {
		return nil, nil
	}
	g, ok := c.groups[groupID]
	if !ok {
		return nil, nil
	}
	return g.first, g.last
}

// SetGroup is the iteration hint of §4.1: positions a fresh iterator to a
// group's window. This cache does not own an iterator object itself —
// First()/Last()/Group() already expose the relevant windows — so
// SetGroup's only remaining job is to guard against being invoked while an
// iteration the caller marked in-progress (via BeginIteration/EndIteration)
// is still open.
func (c *Cache) SetGroup(groupID uint64) (first, last *MatchRecord, err error) {
	if c.iterating {
		return nil, nil, newCacheError(InvalidIteratorState, "set_group called mid-iteration")
	}
	f, l := c.Group(groupID)
	return f, l, nil
}

// BeginIteration and EndIteration let a caller bracket a traversal so that
// SetGroup can detect reentrancy, matching §4.1's "fails if iteration
// already in progress".
func (c *Cache) BeginIteration() { c.iterating = true }
func (c *Cache) EndIteration()   { c.iterating = false }
