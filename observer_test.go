package qcache

import "testing"

func TestObserverBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewObserverBus()
	var order []string

	bus.Subscribe(TableCreate, func(ev Event) { order = append(order, "first") })
	bus.Subscribe(TableCreate, func(ev Event) { order = append(order, "second") })
	bus.Subscribe(TableDelete, func(ev Event) { order = append(order, "delete") })

	bus.Publish(TableCreate, nil)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("delivery order = %v, want [first second]", order)
	}
}

func TestObserverBusStampsMonotonicEventID(t *testing.T) {
	bus := NewObserverBus()
	var ids []uint64
	bus.Subscribe(TableCreate, func(ev Event) { ids = append(ids, ev.EventID) })

	bus.Publish(TableCreate, nil)
	bus.Publish(TableCreate, nil)

	if len(ids) != 2 || ids[0] == 0 || ids[1] <= ids[0] {
		t.Fatalf("event ids = %v, want strictly increasing, nonzero", ids)
	}
}

func TestCacheIgnoresUntrackedTableDelete(t *testing.T) {
	w := NewWorld(4)
	a := w.NewComponentID("A")
	b := w.NewComponentID("B")

	e := w.CreateEntity()
	w.AddComponent(e, b)
	unrelated := w.TableOf(e)

	cache, err := Init(w, queryA(a))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	w.RemoveEntity(e)
	w.DeleteTable(unrelated) // never matched {A}; must be a silent no-op

	if cache.TableCount() != 0 {
		t.Fatalf("TableCount = %d, want 0", cache.TableCount())
	}
}
