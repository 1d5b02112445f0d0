package inttable

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestPrimeLadder(t *testing.T) {
	for _, p := range primes {
		for d := 2; d*d <= p; d++ {
			if p%d == 0 {
				t.Fatalf("%d in ladder is divisible by %d", p, d)
			}
		}
	}
}

func TestPutGetRemove(t *testing.T) {
	var tab Table[string]

	if _, ok := tab.Get(42); ok {
		t.Fatal("Get on empty table reported a hit")
	}
	if err := tab.Put(42, "a"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tab.Put(0, "zero"); err != nil {
		t.Fatalf("Put(0): %v", err)
	}
	if err := tab.Put(42, "b"); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	if v, ok := tab.Get(42); !ok || v != "b" {
		t.Errorf("Get(42) = %q, %v; want b, true", v, ok)
	}
	if v, ok := tab.Get(0); !ok || v != "zero" {
		t.Errorf("Get(0) = %q, %v; want zero, true", v, ok)
	}
	if tab.Len() != 2 {
		t.Errorf("Len = %d, want 2", tab.Len())
	}
	if v, ok := tab.Remove(0); !ok || v != "zero" {
		t.Errorf("Remove(0) = %q, %v", v, ok)
	}
	if _, ok := tab.Remove(0); ok {
		t.Error("second Remove(0) reported a hit")
	}
	if _, ok := tab.Remove(7); ok {
		t.Error("Remove of absent key reported a hit")
	}
	if tab.Len() != 1 {
		t.Errorf("Len = %d, want 1", tab.Len())
	}
}

func TestPutRejectsNil(t *testing.T) {
	var tab Table[*int]
	if err := tab.Put(1, nil); !errors.Is(err, ErrNilValue) {
		t.Fatalf("Put(nil) err = %v, want ErrNilValue", err)
	}
	var boxed Table[any]
	if err := boxed.Put(0, nil); !errors.Is(err, ErrNilValue) {
		t.Fatalf("Put(0, nil) err = %v, want ErrNilValue", err)
	}
	if boxed.Len() != 0 {
		t.Errorf("rejected put changed Len to %d", boxed.Len())
	}
}

func TestGrowAndShrink(t *testing.T) {
	tab := New[int](0)
	const n = 5000
	for i := 1; i <= n; i++ {
		if err := tab.Put(uint32(i*7919), i); err != nil {
			t.Fatal(err)
		}
	}
	if tab.Len() != n {
		t.Fatalf("Len = %d, want %d", tab.Len(), n)
	}
	if load := tab.used * 100 / len(tab.keys); load > growLoad {
		t.Errorf("load %d%% above grow threshold", load)
	}
	grown := len(tab.keys)
	for i := 1; i <= n; i++ {
		v, ok := tab.Get(uint32(i * 7919))
		if !ok || v != i {
			t.Fatalf("Get(%d) = %d, %v", i*7919, v, ok)
		}
	}
	for i := 1; i <= n-10; i++ {
		if _, ok := tab.Remove(uint32(i * 7919)); !ok {
			t.Fatalf("Remove(%d) missed", i*7919)
		}
	}
	if len(tab.keys) >= grown {
		t.Errorf("capacity %d did not shrink from %d", len(tab.keys), grown)
	}
	for i := n - 9; i <= n; i++ {
		if v, ok := tab.Get(uint32(i * 7919)); !ok || v != i {
			t.Errorf("survivor %d lost after shrink", i)
		}
	}
}

func TestRandomAgainstMap(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	var tab Table[uint32]
	ref := map[uint32]uint32{}
	for i := 0; i < 20000; i++ {
		k := r.Uint32N(3000)
		switch r.IntN(3) {
		case 0, 1:
			v := r.Uint32() | 1
			if err := tab.Put(k, v); err != nil {
				t.Fatal(err)
			}
			ref[k] = v
		default:
			_, ok1 := tab.Remove(k)
			_, ok2 := ref[k]
			delete(ref, k)
			if ok1 != ok2 {
				t.Fatalf("Remove(%d) = %v, reference %v", k, ok1, ok2)
			}
		}
	}
	if tab.Len() != len(ref) {
		t.Fatalf("Len = %d, reference %d", tab.Len(), len(ref))
	}
	for k, v := range ref {
		if got, ok := tab.Get(k); !ok || got != v {
			t.Fatalf("Get(%d) = %d, %v; want %d", k, got, ok, v)
		}
	}
}

func TestForEachEarlyExit(t *testing.T) {
	var tab Table[int]
	for i := uint32(0); i < 10; i++ {
		_ = tab.Put(i, int(i))
	}
	seen := 0
	complete := tab.ForEach(func(uint32, int) bool {
		seen++
		return seen < 3
	})
	if complete || seen != 3 {
		t.Errorf("ForEach visited %d (complete=%v), want 3 and false", seen, complete)
	}
	if !tab.ForEach(func(uint32, int) bool { return true }) {
		t.Error("full ForEach reported early exit")
	}
}

func TestRangeAscendingUnsigned(t *testing.T) {
	var tab Table[uint32]
	keys := []uint32{0xFFFEE000, 0x00100010, 0, 0x7FE00010, 0x00080005, 0x80000000}
	for _, k := range keys {
		_ = tab.Put(k, k)
	}

	tests := []struct {
		name     string
		from, to uint32
		want     []uint32
	}{
		{"all", 0, 0xFFFFFFFF, []uint32{0, 0x00080005, 0x00100010, 0x7FE00010, 0x80000000, 0xFFFEE000}},
		{"high half", 0x80000000, 0xFFFFFFFF, []uint32{0x80000000, 0xFFFEE000}},
		{"inclusive", 0x00100010, 0x7FE00010, []uint32{0x00100010, 0x7FE00010}},
		{"empty", 0x00100011, 0x7FE0000F, nil},
		{"reversed", 0xFFFFFFFF, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []uint32
			for k, v := range tab.Range(tt.from, tt.to) {
				if k != v {
					t.Fatalf("value %x under key %x", v, k)
				}
				got = append(got, k)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %x, want %x", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %x, want %x", got, tt.want)
				}
			}
		})
	}
}

func TestSortedSnapshotInvalidation(t *testing.T) {
	var tab Table[int]
	_ = tab.Put(5, 5)
	_ = tab.Put(3, 3)
	if ks := tab.Keys(); len(ks) != 2 || ks[0] != 3 {
		t.Fatalf("Keys = %v", ks)
	}
	_ = tab.Put(1, 1)
	if ks := tab.Keys(); len(ks) != 3 || ks[0] != 1 {
		t.Fatalf("Keys after Put = %v, snapshot not invalidated", ks)
	}
	tab.Remove(3)
	if ks := tab.Keys(); len(ks) != 2 || ks[1] != 5 {
		t.Fatalf("Keys after Remove = %v, snapshot not invalidated", ks)
	}
}

func TestRangeSkipsRemovedDuringIteration(t *testing.T) {
	var tab Table[int]
	for i := uint32(1); i <= 5; i++ {
		_ = tab.Put(i, int(i))
	}
	var got []uint32
	for k := range tab.All() {
		got = append(got, k)
		if k == 2 {
			tab.Remove(4)
		}
	}
	want := []uint32{1, 2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
