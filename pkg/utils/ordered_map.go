package utils

import "errors"

// An OrderedMap keeps the insertion order of its keys. The CompactAST string table
// uses it to dedup strings while still assigning them ascending indices in
// first-seen order.
type OrderedMap[K comparable, V any] struct {
	index  map[K]int
	keys   []K
	values []V
}

// Returns a ready to use, empty OrderedMap.
func NewOrderedMap[K comparable, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{index: map[K]int{}}
}

// Sets the value for 'key', preserving its original position if already present.
func (om *OrderedMap[K, V]) Set(key K, value V) {
	if om.index == nil {
		om.index = map[K]int{}
	}

	if pos, ok := om.index[key]; ok {
		om.values[pos] = value
		return
	}

	om.index[key] = len(om.keys)
	om.keys = append(om.keys, key)
	om.values = append(om.values, value)
}

// Returns the value associated to 'key' and whether it was found.
func (om *OrderedMap[K, V]) Get(key K) (V, bool) {
	pos, ok := om.index[key]
	if !ok {
		var zero V
		return zero, false
	}

	return om.values[pos], true
}

// Returns the insertion-order position of 'key'. (The CompactAST writer stores each
// string's index as the map value and reads it back with Get, not Position.)
func (om *OrderedMap[K, V]) Position(key K) (int, error) {
	pos, ok := om.index[key]
	if !ok {
		return 0, errors.New("key not present in OrderedMap")
	}

	return pos, nil
}

// Returns the number of entries currently held.
func (om *OrderedMap[K, V]) Count() int { return len(om.keys) }

// Returns the keys in insertion order.
func (om *OrderedMap[K, V]) Keys() []K { return om.keys }

// Iterates over the map in insertion order, stopping early if 'yield' returns false.
func (om *OrderedMap[K, V]) Iterator() func(yield func(K, V) bool) {
	return func(yield func(K, V) bool) {
		for i, key := range om.keys {
			if !yield(key, om.values[i]) {
				return
			}
		}
	}
}
