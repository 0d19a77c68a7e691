package memory

import (
	"testing"

	dbtesting "github.com/ValentinKolb/versedb/lib/db/testing"
	"github.com/ValentinKolb/versedb/lib/store"
)

func Test(t *testing.T) {
	dbtesting.RunStoreTests(t, "MemoryDB", Open)
}

func Benchmark(b *testing.B) {
	dbtesting.RunStoreBenchmarks(b, "MemoryDB", Open)
}

func TestPairsAreSortedCopies(t *testing.T) {
	m := New()
	defer m.Close()

	_ = m.Add([]byte("b"), []byte("2"))
	_ = m.Add([]byte("a"), []byte("1"))

	pairs := m.Pairs()
	if m.Len() != 2 || len(pairs) != 2 {
		t.Fatalf("Expected 2 entries, got Len=%d, Pairs=%d", m.Len(), len(pairs))
	}
	if string(pairs[0].Key) != "a" || string(pairs[1].Key) != "b" {
		t.Errorf("Pairs not in ascending order: %q, %q", pairs[0].Key, pairs[1].Key)
	}

	pairs[0].Value[0] = 'X'
	value, _, _ := m.Select([]byte("a"))
	if string(value) != "1" {
		t.Errorf("Pairs must return copies, stored value changed to %q", value)
	}
}

func TestCloseReportsStoreClosed(t *testing.T) {
	m := New()
	if err := m.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}
	if err := m.Add([]byte("k"), nil); !store.IsCode(err, store.RetCStoreClosed) {
		t.Errorf("Expected %s after Close, got %v", store.RetCStoreClosed, err)
	}
}
