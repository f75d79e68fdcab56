package qcache

import "testing"

// Scenario 2 (ascending direction): query {A} with custom grouping
// group_id = (table has B) ? 10 : 20. Ascending order places the smaller
// key first, so T2 (group 10) precedes T1 (group 20).
func TestCustomGroupingAscending(t *testing.T) {
	w, a, b, c := setupABC(t)
	_ = c

	e1 := w.CreateEntity()
	w.AddComponent(e1, a)
	t1 := w.TableOf(e1)

	e2 := w.CreateEntity()
	w.AddComponent(e2, a)
	w.AddComponent(e2, b)
	t2 := w.TableOf(e2)

	desc := queryA(a)
	desc.GroupByCallback = func(world *World, table *Table, groupByID ID) uint64 {
		if table.HasID(b) {
			return 10
		}
		return 20
	}

	cache, err := Init(w, desc)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	tables := collectTables(cache)
	if len(tables) != 2 || tables[0] != t2 || tables[1] != t1 {
		t.Fatalf("iteration order = %v, want [t2 t1]", tables)
	}

	first, last := cache.Group(10)
	if first == nil || first != last || first.Table != t2 {
		t.Fatalf("group 10 window incorrect")
	}
}

// Scenario 3: query {(ChildOf, *)} with cascade ascending over a root,
// two depth-1 children, and one depth-2 grandchild.
func TestCascadeAscending(t *testing.T) {
	w, _, _, _ := setupABC(t)
	rel := w.NewComponentID("ChildOf")

	root := w.CreateEntity()

	child1 := w.CreateEntity()
	w.AddPair(child1, rel, ID(root.ID))
	tChild1 := w.TableOf(child1)

	child2 := w.CreateEntity()
	w.AddPair(child2, rel, ID(root.ID))

	grandchild := w.CreateEntity()
	w.AddPair(grandchild, rel, ID(child1.ID))
	tGrandchild := w.TableOf(grandchild)

	desc := QueryDesc{Terms: []Term{
		{First: Ref{ID: rel}, Second: Ref{ID: Wildcard}, Cascade: true, UpRel: rel},
	}}
	cache, err := Init(w, desc)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	tables := collectTables(cache)
	if len(tables) == 0 {
		t.Fatalf("no tables matched")
	}
	if tables[0] != tChild1 {
		t.Fatalf("first matched table = %v, want depth-1 table %v", tables[0], tChild1)
	}
	if tables[len(tables)-1] != tGrandchild {
		t.Fatalf("last matched table = %v, want depth-2 table %v", tables[len(tables)-1], tGrandchild)
	}
}

// Cascade descending places deeper tables before shallower ones.
func TestCascadeDescending(t *testing.T) {
	w, _, _, _ := setupABC(t)
	rel := w.NewComponentID("ChildOf")

	root := w.CreateEntity()
	child := w.CreateEntity()
	w.AddPair(child, rel, ID(root.ID))
	grandchild := w.CreateEntity()
	w.AddPair(grandchild, rel, ID(child.ID))
	tGrandchild := w.TableOf(grandchild)
	tChild := w.TableOf(child)

	desc := QueryDesc{Terms: []Term{
		{First: Ref{ID: rel}, Second: Ref{ID: Wildcard}, Cascade: true, UpRel: rel, Desc: true},
	}}
	cache, err := Init(w, desc)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	tables := collectTables(cache)
	if tables[0] != tGrandchild {
		t.Fatalf("descending cascade should place depth-2 first, got %v want %v", tables[0], tGrandchild)
	}
	if tables[len(tables)-1] != tChild {
		t.Fatalf("descending cascade should place depth-1 last, got %v", tables[len(tables)-1])
	}
}

// Boundary: a grouped query with an empty group map inserts the first
// record as both first and last of the global list, creating the group
// with first == last == record.
func TestFirstGroupedInsertIsSingletonGroup(t *testing.T) {
	w, a, b, _ := setupABC(t)
	e := w.CreateEntity()
	w.AddComponent(e, a)

	desc := queryA(a)
	desc.GroupByCallback = func(world *World, table *Table, groupByID ID) uint64 {
		if table.HasID(b) {
			return 10
		}
		return 20
	}
	cache, err := Init(w, desc)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if cache.First() != cache.Last() {
		t.Fatalf("expected singleton global list")
	}
	first, last := cache.Group(20)
	if first != last || first != cache.First() {
		t.Fatalf("expected group to wrap the sole record")
	}
}

// Scenario 6: a grouped query whose matched table's group id changes after
// a rematch moves the record into its new group and leaves both groups'
// endpoints correct. The grouping key here depends on live entity count
// (table.Count()), which can change without the table's signature — and
// therefore its identity — changing, exactly the kind of "mutate one
// table" drift a real cascade/occupancy grouping needs to tolerate.
func TestRematchMovesRecordBetweenGroups(t *testing.T) {
	w, a, b, _ := setupABC(t)

	e1 := w.CreateEntity()
	w.AddComponent(e1, a)
	growing := w.TableOf(e1)

	e2 := w.CreateEntity()
	w.AddComponent(e2, a)
	w.AddComponent(e2, b)
	static := w.TableOf(e2)

	desc := queryA(a)
	desc.GroupByCallback = func(world *World, table *Table, groupByID ID) uint64 {
		if table.Count() >= 2 {
			return 10
		}
		return 20
	}
	cache, err := Init(w, desc)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if first, last := cache.Group(20); first == nil || last == nil {
		t.Fatalf("group 20 should exist before mutation")
	}
	growingBucket := cache.GetTable(growing)
	if growingBucket.First().GroupID != 20 {
		t.Fatalf("growing table should start in group 20")
	}

	e1b := w.CreateEntity()
	w.AddComponent(e1b, a)
	if w.TableOf(e1b) != growing {
		t.Fatalf("second A-only entity should land in the same table")
	}

	cache.Rematch()

	growingBucket = cache.GetTable(growing)
	if growingBucket.First().GroupID != 10 {
		t.Fatalf("growing table group = %d, want 10 after crossing the threshold", growingBucket.First().GroupID)
	}

	first10, last10 := cache.Group(10)
	if first10 == nil || last10 != first10 {
		t.Fatalf("group 10 should contain exactly the growing table's record")
	}
	first20, last20 := cache.Group(20)
	if first20 == nil || last20 != first20 || first20.Table != static {
		t.Fatalf("group 20 should now contain only the static table's record")
	}

	if c := countList(cache); c != countBuckets(cache) {
		t.Fatalf("global list size %d != total bucket records %d", c, countBuckets(cache))
	}
}

func countList(c *Cache) int {
	n := 0
	for r := c.First(); r != nil; r = r.Next() {
		n++
	}
	return n
}

func countBuckets(c *Cache) int {
	n := 0
	for _, b := range c.tables {
		for r := b.First(); r != nil; r = r.NextMatch() {
			n++
		}
	}
	return n
}
