package qcache

import "fmt"

// ID identifies either a plain component or, when the pair flag is set, a
// (relationship, target) pair such as (ChildOf, parentEntity). This mirrors
// the teacher's component-id space (bitmask256-indexable, capped at 256
// plain ids) extended with a pair encoding so relationship terms and cascade
// grouping have something to operate on.
type ID uint64

const (
	pairFlag ID = 1 << 63

	// Wildcard is the reserved sentinel used as a pair's relationship or
	// target to mean "match any". A term whose Second reference is Wildcard
	// produces one match record per distinct target the table carries for
	// that relationship (wildcard expansion, §3/§4.5 of the cache spec).
	Wildcard ID = 0x7fffffff

	// This is the reserved sentinel for the $this query variable: "the
	// entity/table being iterated", as opposed to a traversed source.
	This ID = 0x7ffffffe
)

// Pair packs a relationship id and a target id into a single pair ID.
func Pair(rel, target ID) ID {
	if rel > 0x7fffffff || target > 0xffffffff {
		panic("qcache: component or entity id out of range for pair encoding")
	}
	return pairFlag | (rel << 32) | (target & 0xffffffff)
}

// IsPair reports whether id was produced by Pair.
func (id ID) IsPair() bool {
	return id&pairFlag != 0
}

// First returns the relationship half of a pair, or id itself for a plain id.
func (id ID) First() ID {
	if id.IsPair() {
		return (id &^ pairFlag) >> 32
	}
	return id
}

// Second returns the target half of a pair, or zero for a plain id.
func (id ID) Second() ID {
	if id.IsPair() {
		return id & 0xffffffff
	}
	return 0
}

// IsWildcard reports whether id, or the target half of a pair id, is the
// Wildcard sentinel. Only the target position is checked because the cache
// never needs to match a wildcard relationship, only a wildcard target.
func (id ID) IsWildcard() bool {
	if id.IsPair() {
		return id.Second() == Wildcard
	}
	return id == Wildcard
}

// componentID returns the plain component id packed into id, for use as a
// bitmask256 bit index. Pair ids index the mask by their relationship half,
// matching the source's convention that (R, *) and R share a mask bit.
func (id ID) componentID() uint8 {
	first := id.First()
	if first > 255 {
		panic(fmt.Sprintf("qcache: component id %d exceeds bitmask256 capacity", first))
	}
	return uint8(first)
}

func (id ID) String() string {
	if id.IsPair() {
		return fmt.Sprintf("(%d,%d)", id.First(), id.Second())
	}
	return fmt.Sprintf("%d", uint64(id))
}
