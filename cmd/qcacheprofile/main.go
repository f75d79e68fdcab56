// Profiling:
// go build ./cmd/qcacheprofile
// go tool pprof -http=":8000" -nodefraction=0.001 ./qcacheprofile mem.pprof

package main

import (
	"github.com/ecscore/qcache"
	"github.com/pkg/profile"
)

func main() {
	rounds := 50
	churnRounds := 2000
	tables := 100

	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, churnRounds, tables)
	p.Stop()
}

// run exercises Init/rematch/Fini repeatedly under table churn: components
// A and B are the query's terms, C is a churn component added and removed
// on a rotating subset of entities so the cache's rematch engine has real
// work to reuse or discard on every round.
func run(rounds, churnRounds, numTables int) {
	for i := 0; i < rounds; i++ {
		w := qcache.NewWorld(numTables * 8)
		a := w.NewComponentID("A")
		b := w.NewComponentID("B")
		c := w.NewComponentID("C")

		entities := make([]qcache.Entity, 0, numTables*4)
		for i := 0; i < numTables*4; i++ {
			e := w.CreateEntity()
			w.AddComponent(e, a)
			if i%2 == 0 {
				w.AddComponent(e, b)
			}
			entities = append(entities, e)
		}

		cache, err := qcache.Init(w, qcache.QueryDesc{
			Terms:         []qcache.Term{{First: qcache.Ref{ID: a}}, {First: qcache.Ref{ID: b}}},
			DetectChanges: true,
		})
		if err != nil {
			panic(err)
		}

		for round := 0; round < churnRounds; round++ {
			e := entities[round%len(entities)]
			if w.TableOf(e) != nil && w.TableOf(e).HasID(c) {
				w.RemoveComponent(e, c)
			} else {
				w.AddComponent(e, c)
			}
			cache.Rematch()
		}

		cache.Fini()
	}
}
