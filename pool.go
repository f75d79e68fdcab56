package qcache

// Pool is a bucketed free-list arena over fixed-size values of type T,
// grounded in the teacher's free-id-stack pattern (resources.go's freeIds,
// world.go's freeIDs) generalized from recycling entity ids to recycling
// arbitrary pooled values such as match records and field vectors. Reusing
// a slot never zeroes it implicitly; callers must overwrite every field
// they care about, matching the teacher's discipline of reinitializing a
// recycled slot explicitly rather than relying on a cleared struct.
type Pool[T any] struct {
	items []*T
	free  []int32
	slot  map[*T]int32
}

// NewPool creates an empty pool.
func NewPool[T any]() *Pool[T] {
	return &Pool[T]{slot: make(map[*T]int32)}
}

// Get returns a pooled *T, reusing a freed slot when one is available and
// allocating a new one otherwise.
func (p *Pool[T]) Get() *T {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return p.items[idx]
	}
	v := new(T)
	p.slot[v] = int32(len(p.items))
	p.items = append(p.items, v)
	return v
}

// Put returns v to the pool for reuse. v must have come from this pool's
// Get; passing a foreign pointer is a programmer error and panics.
func (p *Pool[T]) Put(v *T) {
	idx, ok := p.slot[v]
	if !ok {
		panic("qcache: Put called with a value not owned by this pool")
	}
	p.free = append(p.free, idx)
}
