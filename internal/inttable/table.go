// Package inttable provides an open-addressing hash table keyed by uint32
// with ascending range iteration.
//
// Collisions are resolved by double hashing over a ladder of prime
// capacities. Key 0 is stored outside the probe array. The sorted key
// snapshot used by Range and Keys is built on demand and dropped by any
// mutation.
package inttable

import (
	"errors"
	"iter"
	"reflect"
	"slices"
)

// ErrNilValue is returned by Put when the value is nil. A nil value is
// indistinguishable from an absent key.
var ErrNilValue = errors.New("inttable: nil value")

const (
	growLoad   = 40 // percent
	shrinkLoad = 10 // percent
)

var primes = []int{
	17, 37, 67, 131, 257, 521, 1031, 2053, 4099, 8209, 16411, 32771,
	65537, 131101, 262147, 524309, 1048583, 2097169, 4194319, 8388617,
	16777259, 33554467, 67108879, 134217757, 268435459, 536870923,
	1073741827,
}

const (
	slotEmpty uint8 = iota
	slotUsed
	slotDeleted
)

// Table maps uint32 keys to values. The zero value is ready to use.
// A Table is not safe for concurrent use.
type Table[V any] struct {
	keys  []uint32
	vals  []V
	state []uint8
	prime int // index into primes
	used  int // live entries in the probe array
	tombs int

	hasZero bool
	zero    V

	sorted []uint32
}

// New returns a table sized to hold hint entries without resizing.
func New[V any](hint int) *Table[V] {
	t := &Table[V]{}
	p := 0
	for p < len(primes)-1 && hint*100 >= primes[p]*growLoad {
		p++
	}
	t.alloc(p)
	return t
}

func (t *Table[V]) alloc(p int) {
	n := primes[p]
	t.prime = p
	t.keys = make([]uint32, n)
	t.vals = make([]V, n)
	t.state = make([]uint8, n)
	t.used = 0
	t.tombs = 0
}

func hash(key uint32) uint32 {
	h := key * 0x9E3779B1
	return h ^ (h >> 15)
}

// find returns the slot holding key, or -1.
func (t *Table[V]) find(key uint32) int {
	n := len(t.keys)
	if n == 0 {
		return -1
	}
	h := hash(key)
	i := int(h % uint32(n))
	step := 1 + int(h%uint32(n-1))
	for probes := 0; probes < n; probes++ {
		switch t.state[i] {
		case slotEmpty:
			return -1
		case slotUsed:
			if t.keys[i] == key {
				return i
			}
		}
		i += step
		if i >= n {
			i -= n
		}
	}
	return -1
}

// Len returns the number of entries.
func (t *Table[V]) Len() int {
	if t.hasZero {
		return t.used + 1
	}
	return t.used
}

// Get returns the value stored under key.
func (t *Table[V]) Get(key uint32) (V, bool) {
	if key == 0 {
		return t.zero, t.hasZero
	}
	if i := t.find(key); i >= 0 {
		return t.vals[i], true
	}
	var none V
	return none, false
}

// Put stores v under key, replacing any previous value.
func (t *Table[V]) Put(key uint32, v V) error {
	if isNil(v) {
		return ErrNilValue
	}
	if key == 0 {
		if !t.hasZero {
			t.sorted = nil
		}
		t.zero, t.hasZero = v, true
		return nil
	}
	if t.keys == nil {
		t.alloc(0)
	}
	if i := t.find(key); i >= 0 {
		t.vals[i] = v
		return nil
	}
	if (t.used+t.tombs+1)*100 > len(t.keys)*growLoad {
		next := t.prime
		if (t.used+1)*100 > len(t.keys)*growLoad && next < len(primes)-1 {
			next++
		}
		t.rehash(next)
	}
	t.insert(key, v)
	t.sorted = nil
	return nil
}

func (t *Table[V]) insert(key uint32, v V) {
	n := len(t.keys)
	h := hash(key)
	i := int(h % uint32(n))
	step := 1 + int(h%uint32(n-1))
	for t.state[i] == slotUsed {
		i += step
		if i >= n {
			i -= n
		}
	}
	if t.state[i] == slotDeleted {
		t.tombs--
	}
	t.keys[i] = key
	t.vals[i] = v
	t.state[i] = slotUsed
	t.used++
}

func (t *Table[V]) rehash(p int) {
	keys, vals, state := t.keys, t.vals, t.state
	t.alloc(p)
	for i, s := range state {
		if s == slotUsed {
			t.insert(keys[i], vals[i])
		}
	}
}

// Remove deletes key and returns the value it held.
func (t *Table[V]) Remove(key uint32) (V, bool) {
	var none V
	if key == 0 {
		if !t.hasZero {
			return none, false
		}
		v := t.zero
		t.zero, t.hasZero = none, false
		t.sorted = nil
		return v, true
	}
	i := t.find(key)
	if i < 0 {
		return none, false
	}
	v := t.vals[i]
	t.vals[i] = none
	t.state[i] = slotDeleted
	t.used--
	t.tombs++
	t.sorted = nil
	if t.prime > 0 && t.used*100 < len(t.keys)*shrinkLoad {
		t.rehash(t.prime - 1)
	}
	return v, true
}

// Clear removes every entry and returns the table to its smallest size.
func (t *Table[V]) Clear() {
	var none V
	t.zero, t.hasZero = none, false
	t.alloc(0)
	t.sorted = nil
}

// ForEach calls fn for every entry in unspecified order until fn returns
// false. It reports whether the whole table was visited.
func (t *Table[V]) ForEach(fn func(key uint32, v V) bool) bool {
	if t.hasZero && !fn(0, t.zero) {
		return false
	}
	for i, s := range t.state {
		if s == slotUsed && !fn(t.keys[i], t.vals[i]) {
			return false
		}
	}
	return true
}

// Keys returns the keys in ascending order. The slice is shared with the
// table and must not be modified.
func (t *Table[V]) Keys() []uint32 {
	if t.sorted == nil {
		ks := make([]uint32, 0, t.Len())
		if t.hasZero {
			ks = append(ks, 0)
		}
		for i, s := range t.state {
			if s == slotUsed {
				ks = append(ks, t.keys[i])
			}
		}
		slices.Sort(ks)
		t.sorted = ks
	}
	return t.sorted
}

// Range yields the entries with from <= key <= to in ascending key order.
// Entries removed during iteration are skipped; entries added are not seen.
func (t *Table[V]) Range(from, to uint32) iter.Seq2[uint32, V] {
	return func(yield func(uint32, V) bool) {
		if from > to {
			return
		}
		ks := t.Keys()
		start, _ := slices.BinarySearch(ks, from)
		for _, k := range ks[start:] {
			if k > to {
				return
			}
			v, ok := t.Get(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// All yields every entry in ascending key order.
func (t *Table[V]) All() iter.Seq2[uint32, V] {
	return t.Range(0, ^uint32(0))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
