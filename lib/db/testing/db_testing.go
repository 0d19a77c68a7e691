package testing

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/versedb/lib/store"
)

// RunStoreTests runs the conformance suite for a store.IStore implementation.
// Every sub test opens a fresh store at a new location inside t.TempDir().
func RunStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Add&Select", func(t *testing.T) {
			testAddSelect(t, open(t, factory))
		})

		t.Run("SelectMissing", func(t *testing.T) {
			testSelectMissing(t, open(t, factory))
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, open(t, factory))
		})

		t.Run("Idempotence", func(t *testing.T) {
			testIdempotence(t, open(t, factory))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, open(t, factory))
		})

		t.Run("ByteOrder", func(t *testing.T) {
			testByteOrder(t, open(t, factory))
		})

		t.Run("SelectRange", func(t *testing.T) {
			testSelectRange(t, open(t, factory))
		})

		t.Run("EmptyRanges", func(t *testing.T) {
			testEmptyRanges(t, open(t, factory))
		})

		t.Run("RemoveRange", func(t *testing.T) {
			testRemoveRange(t, open(t, factory))
		})

		t.Run("Scenario", func(t *testing.T) {
			testScenario(t, open(t, factory))
		})

		t.Run("Flush", func(t *testing.T) {
			testFlush(t, open(t, factory))
		})

		t.Run("RandomizedModel", func(t *testing.T) {
			testRandomizedModel(t, open(t, factory))
		})

		t.Run("ConcurrentDisjointKeys", func(t *testing.T) {
			testConcurrentDisjointKeys(t, open(t, factory))
		})

		t.Run("UseAfterClose", func(t *testing.T) {
			testUseAfterClose(t, open(t, factory))
		})
	})
}

// RunPersistenceTests checks that flushed state survives closing and reopening
// a store at the same location. Only persistent backends should run it.
func RunPersistenceTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Reopen", func(t *testing.T) {
			testReopen(t, factory)
		})

		t.Run("ReopenAfterRemoveRange", func(t *testing.T) {
			testReopenAfterRemoveRange(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// open creates a new store in a fresh temporary location
func open(t testing.TB, factory store.Factory) store.IStore {
	t.Helper()
	s, err := factory(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return s
}

// closeStore closes the store at the end of a test, closing twice is allowed to fail
func closeStore(s store.IStore) {
	_ = s.Close()
}

func mustAdd(t testing.TB, s store.IStore, key, value string) {
	t.Helper()
	if err := s.Add([]byte(key), []byte(value)); err != nil {
		t.Fatalf("Unexpected error during Add(%q): %v", key, err)
	}
}

func pairsEqual(a, b []store.Pair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i].Key, b[i].Key) || !bytes.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func formatPairs(pairs []store.Pair) string {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, p := range pairs {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "(%q,%q)", p.Key, p.Value)
	}
	buf.WriteString("]")
	return buf.String()
}

// checkOrdered fails if pairs are not strictly ascending or leave [start, end)
func checkOrdered(t testing.TB, pairs []store.Pair, start, end []byte) {
	t.Helper()
	for i, p := range pairs {
		if !store.InRange(p.Key, start, end) {
			t.Errorf("Key %q outside of range [%q, %q)", p.Key, start, end)
		}
		if i > 0 && bytes.Compare(pairs[i-1].Key, p.Key) >= 0 {
			t.Errorf("Keys not strictly ascending: %q before %q", pairs[i-1].Key, p.Key)
		}
	}
}

// model is a reference implementation of the contract on a plain map
type model map[string][]byte

func (m model) rangeOf(start, end []byte) []store.Pair {
	pairs := make([]store.Pair, 0)
	for k, v := range m {
		if store.InRange([]byte(k), start, end) {
			pairs = append(pairs, store.Pair{Key: []byte(k), Value: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].Key, pairs[j].Key) < 0
	})
	return pairs
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testAddSelect(t *testing.T, s store.IStore) {
	defer closeStore(s)

	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if err := s.Add(testKey, testValue1); err != nil {
		t.Fatalf("Unexpected error during Add: %v", err)
	}

	result, loaded, err := s.Select(testKey)
	if err != nil {
		t.Fatalf("Unexpected error during Select: %v", err)
	}
	if !loaded {
		t.Errorf("Expected key %s to exist after Add", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := s.Add(testKey, testValue2); err != nil {
		t.Fatalf("Unexpected error during Add: %v", err)
	}

	result, loaded, _ = s.Select(testKey)
	if !loaded {
		t.Errorf("Expected key %s to exist after overwrite", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	// the returned value must be a copy
	result[0] = 'X'
	original, _, _ := s.Select(testKey)
	if !bytes.Equal(original, testValue2) {
		t.Errorf("Select should return a copy, not a reference to the stored value")
	}

	// the stored value must not alias the argument either
	input := []byte("input-value")
	mustAdd(t, s, "alias-key", string(input))
	if err := s.Add([]byte("alias-key-2"), input); err != nil {
		t.Fatalf("Unexpected error during Add: %v", err)
	}
	input[0] = 'X'
	stored, _, _ := s.Select([]byte("alias-key-2"))
	if !bytes.Equal(stored, []byte("input-value")) {
		t.Errorf("Add should store a copy of the value, got %s", stored)
	}
}

func testSelectMissing(t *testing.T, s store.IStore) {
	defer closeStore(s)

	value, loaded, err := s.Select([]byte("missing"))
	if err != nil {
		t.Errorf("Select on a missing key must not fail, got %v", err)
	}
	if loaded {
		t.Errorf("Expected missing key to return loaded=false")
	}
	if len(value) != 0 {
		t.Errorf("Expected no value for a missing key, got %v", value)
	}
}

func testRemove(t *testing.T, s store.IStore) {
	defer closeStore(s)

	mustAdd(t, s, "delete-key", "delete-value")
	mustAdd(t, s, "other-key", "other-value")

	if err := s.Remove([]byte("delete-key")); err != nil {
		t.Fatalf("Unexpected error during Remove: %v", err)
	}

	if _, loaded, _ := s.Select([]byte("delete-key")); loaded {
		t.Errorf("Key should not exist after Remove")
	}
	if _, loaded, _ := s.Select([]byte("other-key")); !loaded {
		t.Errorf("Remove must not affect other keys")
	}

	// removing a missing key is a no-op
	if err := s.Remove([]byte("delete-key")); err != nil {
		t.Errorf("Removing a missing key must not fail, got %v", err)
	}
	if err := s.Remove([]byte("never-existed")); err != nil {
		t.Errorf("Removing a missing key must not fail, got %v", err)
	}

	// the key can be added again after removal
	mustAdd(t, s, "delete-key", "new-value")
	value, loaded, _ := s.Select([]byte("delete-key"))
	if !loaded || !bytes.Equal(value, []byte("new-value")) {
		t.Errorf("Expected re-added key to have value new-value, got %q (loaded=%v)", value, loaded)
	}
}

func testIdempotence(t *testing.T, s store.IStore) {
	defer closeStore(s)

	mustAdd(t, s, "k", "v")
	once, err := s.SelectRange(nil, []byte{0xff, 0xff})
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange: %v", err)
	}

	mustAdd(t, s, "k", "v")
	twice, err := s.SelectRange(nil, []byte{0xff, 0xff})
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange: %v", err)
	}

	if !pairsEqual(once, twice) {
		t.Errorf("Adding the same entry twice changed the state: %s vs %s", formatPairs(once), formatPairs(twice))
	}
}

func testEdgeCases(t *testing.T, s store.IStore) {
	defer closeStore(s)

	// the empty key is a valid key, nil and empty denote the same key
	emptyKeyValue := []byte("value for empty key")
	if err := s.Add([]byte{}, emptyKeyValue); err != nil {
		t.Fatalf("Unexpected error during Add with empty key: %v", err)
	}

	result, loaded, err := s.Select(nil)
	if err != nil {
		t.Fatalf("Unexpected error during Select with nil key: %v", err)
	}
	if !loaded {
		t.Errorf("Empty key not found after Add")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	pairs, err := s.SelectRange(nil, []byte{0x00})
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange: %v", err)
	}
	if len(pairs) != 1 || len(pairs[0].Key) != 0 {
		t.Errorf("Expected only the empty key in [\"\", \"\\x00\"), got %s", formatPairs(pairs))
	}

	// empty and nil values are stored as present entries
	mustAdd(t, s, "empty-value-key", "")
	result, loaded, _ = s.Select([]byte("empty-value-key"))
	if !loaded {
		t.Errorf("Key for empty value not found after Add")
	} else if len(result) != 0 {
		t.Errorf("Empty value resulted in non-empty value: %v", result)
	}

	if err := s.Add([]byte("nil-value-key"), nil); err != nil {
		t.Fatalf("Unexpected error during Add with nil value: %v", err)
	}
	result, loaded, _ = s.Select([]byte("nil-value-key"))
	if !loaded {
		t.Errorf("Key for nil value not found after Add")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	// large keys and values
	largeKey := bytes.Repeat([]byte{0xab}, 1000)
	largeValue := bytes.Repeat([]byte("0123456789"), 100_000)
	if err := s.Add(largeKey, largeValue); err != nil {
		t.Fatalf("Unexpected error during Add with large entry: %v", err)
	}
	result, loaded, _ = s.Select(largeKey)
	if !loaded {
		t.Errorf("Large key not found after Add")
	} else if !bytes.Equal(result, largeValue) {
		t.Errorf("Value mismatch for large entry (len %d vs %d)", len(result), len(largeValue))
	}

	// binary keys with zero bytes
	binaryKey := []byte{0x00, 0x01, 0x00, 0xff}
	if err := s.Add(binaryKey, []byte{0x00}); err != nil {
		t.Fatalf("Unexpected error during Add with binary key: %v", err)
	}
	result, loaded, _ = s.Select(binaryKey)
	if !loaded || !bytes.Equal(result, []byte{0x00}) {
		t.Errorf("Binary key mismatch: %v (loaded=%v)", result, loaded)
	}
}

func testByteOrder(t *testing.T, s store.IStore) {
	defer closeStore(s)

	// unsigned byte order, shorter is smaller on a common prefix
	keys := [][]byte{
		{},
		{0x00},
		{0x00, 0x00},
		{0x01},
		[]byte("a"),
		[]byte("ab"),
		[]byte("b"),
		{0x7f},
		{0x80},
		{0xff},
		{0xff, 0x00},
		{0xff, 0xff},
	}

	// insert in reverse order
	for i := len(keys) - 1; i >= 0; i-- {
		if err := s.Add(keys[i], []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
	}

	pairs, err := s.SelectRange(nil, []byte{0xff, 0xff, 0xff})
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange: %v", err)
	}
	if len(pairs) != len(keys) {
		t.Fatalf("Expected %d entries, got %d: %s", len(keys), len(pairs), formatPairs(pairs))
	}
	for i, p := range pairs {
		if !bytes.Equal(p.Key, keys[i]) {
			t.Errorf("Position %d: expected key %v, got %v", i, keys[i], p.Key)
		}
		if !bytes.Equal(p.Value, []byte(fmt.Sprintf("v%d", i))) {
			t.Errorf("Position %d: value mismatch, got %q", i, p.Value)
		}
	}
}

func testSelectRange(t *testing.T, s store.IStore) {
	defer closeStore(s)

	ref := model{}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%03d", i)
		value := []byte(fmt.Sprintf("value-%d", i))
		ref[key] = value
		if err := s.Add([]byte(key), value); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
	}

	ranges := [][2]string{
		{"key-000", "key-200"},
		{"key-050", "key-051"},
		{"key-050", "key-100"},
		{"key-0", "key-1"},
		{"", "key-010"},
		{"key-199", "zzz"},
		{"a", "b"},
		{"key-100a", "key-101"},
	}

	for _, r := range ranges {
		start, end := []byte(r[0]), []byte(r[1])
		pairs, err := s.SelectRange(start, end)
		if err != nil {
			t.Fatalf("Unexpected error during SelectRange(%q, %q): %v", start, end, err)
		}
		checkOrdered(t, pairs, start, end)

		expected := ref.rangeOf(start, end)
		if !pairsEqual(pairs, expected) {
			t.Errorf("SelectRange(%q, %q): expected %d entries, got %d", start, end, len(expected), len(pairs))
		}
	}

	// the end key itself is excluded, the start key included
	pairs, _ := s.SelectRange([]byte("key-010"), []byte("key-012"))
	if len(pairs) != 2 || string(pairs[0].Key) != "key-010" || string(pairs[1].Key) != "key-011" {
		t.Errorf("Expected [key-010, key-011], got %s", formatPairs(pairs))
	}

	// SelectRange must not mutate
	after, _ := s.SelectRange([]byte("key-000"), []byte("key-200"))
	if len(after) != 200 {
		t.Errorf("SelectRange mutated the store, %d entries left", len(after))
	}
}

func testEmptyRanges(t *testing.T, s store.IStore) {
	defer closeStore(s)

	// empty store
	pairs, err := s.SelectRange([]byte("a"), []byte("z"))
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange on empty store: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Expected no entries in an empty store, got %s", formatPairs(pairs))
	}

	mustAdd(t, s, "a", "1")
	mustAdd(t, s, "m", "2")
	mustAdd(t, s, "z", "3")

	for _, x := range []string{"", "a", "m", "q", "z"} {
		pairs, err := s.SelectRange([]byte(x), []byte(x))
		if err != nil {
			t.Errorf("Unexpected error during SelectRange(%q, %q): %v", x, x, err)
		}
		if len(pairs) != 0 {
			t.Errorf("SelectRange(%q, %q) must be empty, got %s", x, x, formatPairs(pairs))
		}

		removed, err := s.RemoveRange([]byte(x), []byte(x))
		if err != nil {
			t.Errorf("Unexpected error during RemoveRange(%q, %q): %v", x, x, err)
		}
		if len(removed) != 0 {
			t.Errorf("RemoveRange(%q, %q) must be empty, got %s", x, x, formatPairs(removed))
		}
	}

	// inverted ranges are empty as well
	pairs, err = s.SelectRange([]byte("z"), []byte("a"))
	if err != nil {
		t.Errorf("Unexpected error during inverted SelectRange: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Inverted SelectRange must be empty, got %s", formatPairs(pairs))
	}
	removed, err := s.RemoveRange([]byte("z"), []byte("a"))
	if err != nil {
		t.Errorf("Unexpected error during inverted RemoveRange: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("Inverted RemoveRange must be empty, got %s", formatPairs(removed))
	}

	all, _ := s.SelectRange(nil, []byte{0xff})
	if len(all) != 3 {
		t.Errorf("Empty ranges must not remove anything, %d entries left", len(all))
	}
}

func testRemoveRange(t *testing.T, s store.IStore) {
	defer closeStore(s)

	for i := 0; i < 100; i++ {
		mustAdd(t, s, fmt.Sprintf("key-%03d", i), fmt.Sprintf("value-%d", i))
	}

	start, end := []byte("key-020"), []byte("key-040")

	before, err := s.SelectRange(start, end)
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange: %v", err)
	}

	removed, err := s.RemoveRange(start, end)
	if err != nil {
		t.Fatalf("Unexpected error during RemoveRange: %v", err)
	}
	checkOrdered(t, removed, start, end)

	if !pairsEqual(before, removed) {
		t.Errorf("RemoveRange returned %s, SelectRange before returned %s", formatPairs(removed), formatPairs(before))
	}
	if len(removed) != 20 {
		t.Errorf("Expected 20 removed entries, got %d", len(removed))
	}

	after, _ := s.SelectRange(start, end)
	if len(after) != 0 {
		t.Errorf("Expected empty range after RemoveRange, got %s", formatPairs(after))
	}

	// entries outside of the range are untouched, including the end key
	for _, key := range []string{"key-019", "key-040", "key-000", "key-099"} {
		if _, loaded, _ := s.Select([]byte(key)); !loaded {
			t.Errorf("Key %s outside of the removed range is missing", key)
		}
	}

	// removing the same range again returns nothing
	again, err := s.RemoveRange(start, end)
	if err != nil {
		t.Fatalf("Unexpected error during second RemoveRange: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Second RemoveRange must be empty, got %s", formatPairs(again))
	}

	// remove everything
	rest, _ := s.RemoveRange(nil, []byte{0xff})
	if len(rest) != 80 {
		t.Errorf("Expected 80 remaining entries to be removed, got %d", len(rest))
	}
	all, _ := s.SelectRange(nil, []byte{0xff})
	if len(all) != 0 {
		t.Errorf("Store should be empty, got %s", formatPairs(all))
	}
}

func testScenario(t *testing.T, s store.IStore) {
	defer closeStore(s)

	mustAdd(t, s, "a", "1")
	mustAdd(t, s, "b", "2")
	mustAdd(t, s, "c", "3")

	expected := []store.Pair{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}

	pairs, err := s.SelectRange([]byte("a"), []byte("c"))
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange: %v", err)
	}
	if !pairsEqual(pairs, expected) {
		t.Errorf("SelectRange(a, c): expected %s, got %s", formatPairs(expected), formatPairs(pairs))
	}

	removed, err := s.RemoveRange([]byte("a"), []byte("c"))
	if err != nil {
		t.Fatalf("Unexpected error during RemoveRange: %v", err)
	}
	if !pairsEqual(removed, expected) {
		t.Errorf("RemoveRange(a, c): expected %s, got %s", formatPairs(expected), formatPairs(removed))
	}

	pairs, _ = s.SelectRange([]byte("a"), []byte("c"))
	if len(pairs) != 0 {
		t.Errorf("SelectRange(a, c) after removal: expected [], got %s", formatPairs(pairs))
	}

	value, loaded, err := s.Select([]byte("c"))
	if err != nil || !loaded || !bytes.Equal(value, []byte("3")) {
		t.Errorf("Select(c): expected 3, got %q (loaded=%v, err=%v)", value, loaded, err)
	}
}

func testFlush(t *testing.T, s store.IStore) {
	defer closeStore(s)

	if err := s.Flush(); err != nil {
		t.Errorf("Flush on an empty store must not fail, got %v", err)
	}

	mustAdd(t, s, "flush-key", "flush-value")
	if err := s.Flush(); err != nil {
		t.Errorf("Unexpected error during Flush: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Errorf("Unexpected error during repeated Flush: %v", err)
	}

	value, loaded, _ := s.Select([]byte("flush-key"))
	if !loaded || !bytes.Equal(value, []byte("flush-value")) {
		t.Errorf("Flush changed the visible state: %q (loaded=%v)", value, loaded)
	}
}

func testRandomizedModel(t *testing.T, s store.IStore) {
	defer closeStore(s)

	rng := rand.New(rand.NewSource(42))
	ref := model{}

	randomKey := func() []byte {
		key := make([]byte, rng.Intn(4))
		for i := range key {
			// small alphabet to get many collisions
			key[i] = []byte{0x00, 'a', 'b', 0xff}[rng.Intn(4)]
		}
		return key
	}

	for i := 0; i < 2000; i++ {
		switch rng.Intn(10) {
		case 0, 1, 2, 3:
			key, value := randomKey(), []byte(fmt.Sprintf("v%d", i))
			if err := s.Add(key, value); err != nil {
				t.Fatalf("Op %d: Add failed: %v", i, err)
			}
			ref[string(key)] = value
		case 4, 5:
			key := randomKey()
			if err := s.Remove(key); err != nil {
				t.Fatalf("Op %d: Remove failed: %v", i, err)
			}
			delete(ref, string(key))
		case 6, 7:
			key := randomKey()
			value, loaded, err := s.Select(key)
			if err != nil {
				t.Fatalf("Op %d: Select failed: %v", i, err)
			}
			expected, ok := ref[string(key)]
			if loaded != ok || !bytes.Equal(value, expected) {
				t.Fatalf("Op %d: Select(%v) = %q/%v, expected %q/%v", i, key, value, loaded, expected, ok)
			}
		case 8:
			start, end := randomKey(), randomKey()
			pairs, err := s.SelectRange(start, end)
			if err != nil {
				t.Fatalf("Op %d: SelectRange failed: %v", i, err)
			}
			if expected := ref.rangeOf(start, end); !pairsEqual(pairs, expected) {
				t.Fatalf("Op %d: SelectRange(%v, %v) = %s, expected %s", i, start, end, formatPairs(pairs), formatPairs(expected))
			}
		case 9:
			start, end := randomKey(), randomKey()
			removed, err := s.RemoveRange(start, end)
			if err != nil {
				t.Fatalf("Op %d: RemoveRange failed: %v", i, err)
			}
			expected := ref.rangeOf(start, end)
			if !pairsEqual(removed, expected) {
				t.Fatalf("Op %d: RemoveRange(%v, %v) = %s, expected %s", i, start, end, formatPairs(removed), formatPairs(expected))
			}
			for _, p := range expected {
				delete(ref, string(p.Key))
			}
		}
	}
}

func testConcurrentDisjointKeys(t *testing.T, s store.IStore) {
	defer closeStore(s)

	numWorkers := 8
	opsPerWorker := 200

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var errorCount int32

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			for i := 0; i < opsPerWorker; i++ {
				key := []byte(fmt.Sprintf("worker-%d-key-%d", workerId, i))
				value := []byte(fmt.Sprintf("worker-%d-value-%d", workerId, i))

				if err := s.Add(key, value); err != nil {
					t.Errorf("Worker %d: Add failed: %v", workerId, err)
					atomic.AddInt32(&errorCount, 1)
					return
				}

				// own writes are visible to own reads
				result, loaded, err := s.Select(key)
				if err != nil || !loaded || !bytes.Equal(result, value) {
					t.Errorf("Worker %d: read %q after write %q (loaded=%v, err=%v)", workerId, result, value, loaded, err)
					atomic.AddInt32(&errorCount, 1)
					return
				}
			}
		}(w)
	}

	wg.Wait()

	if atomic.LoadInt32(&errorCount) > 0 {
		t.Fatalf("Test had %d errors during parallel operations", errorCount)
	}

	// no cross contamination between the key sets
	for w := 0; w < numWorkers; w++ {
		prefix := []byte(fmt.Sprintf("worker-%d-", w))
		end := append(store.Clone(prefix[:len(prefix)-1]), '.') // '.' follows '-'
		pairs, err := s.SelectRange(prefix, end)
		if err != nil {
			t.Fatalf("Unexpected error during SelectRange: %v", err)
		}
		if len(pairs) != opsPerWorker {
			t.Errorf("Worker %d: expected %d entries, got %d", w, opsPerWorker, len(pairs))
		}
		for _, p := range pairs {
			expected := bytes.Replace(p.Key, []byte("-key-"), []byte("-value-"), 1)
			if !bytes.Equal(p.Value, expected) {
				t.Errorf("Worker %d: key %q has value %q", w, p.Key, p.Value)
			}
		}
	}
}

func testUseAfterClose(t *testing.T, s store.IStore) {
	mustAdd(t, s, "k", "v")

	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}

	checkClosed := func(op string, err error) {
		t.Helper()
		if err == nil {
			t.Errorf("%s after Close must fail", op)
			return
		}
		var storeErr *store.Error
		if errors.As(err, &storeErr) && storeErr.Code != store.RetCStoreClosed {
			t.Errorf("%s after Close: expected code %s, got %s", op, store.RetCStoreClosed, storeErr.Code)
		}
	}

	checkClosed("Add", s.Add([]byte("k"), []byte("v")))
	_, _, err := s.Select([]byte("k"))
	checkClosed("Select", err)
	checkClosed("Remove", s.Remove([]byte("k")))
	_, err = s.SelectRange([]byte("a"), []byte("z"))
	checkClosed("SelectRange", err)
	_, err = s.RemoveRange([]byte("a"), []byte("z"))
	checkClosed("RemoveRange", err)
	checkClosed("Flush", s.Flush())
	checkClosed("Close", s.Close())
}

func testReopen(t *testing.T, factory store.Factory) {
	location := filepath.Join(t.TempDir(), "store")

	s, err := factory(location)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	numEntries := 500
	for i := 0; i < numEntries; i++ {
		mustAdd(t, s, fmt.Sprintf("persist-key-%04d", i), fmt.Sprintf("persist-value-%d", i))
	}
	mustAdd(t, s, "", "empty key")
	if err := s.Remove([]byte("persist-key-0000")); err != nil {
		t.Fatalf("Unexpected error during Remove: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Unexpected error during Flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}

	s2, err := factory(location)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer closeStore(s2)

	for i := 1; i < numEntries; i++ {
		key := fmt.Sprintf("persist-key-%04d", i)
		value, loaded, err := s2.Select([]byte(key))
		if err != nil {
			t.Fatalf("Unexpected error during Select: %v", err)
		}
		if !loaded {
			t.Errorf("Key %s not found after reopen", key)
			continue
		}
		if !bytes.Equal(value, []byte(fmt.Sprintf("persist-value-%d", i))) {
			t.Errorf("Value mismatch for key %s after reopen: %q", key, value)
		}
	}

	if _, loaded, _ := s2.Select([]byte("persist-key-0000")); loaded {
		t.Errorf("Removed key found after reopen")
	}
	if value, loaded, _ := s2.Select(nil); !loaded || string(value) != "empty key" {
		t.Errorf("Empty key not restored after reopen: %q (loaded=%v)", value, loaded)
	}

	pairs, _ := s2.SelectRange([]byte("persist-key-"), []byte("persist-key-9"))
	checkOrdered(t, pairs, []byte("persist-key-"), []byte("persist-key-9"))
	if len(pairs) != numEntries-1 {
		t.Errorf("Expected %d entries after reopen, got %d", numEntries-1, len(pairs))
	}
}

func testReopenAfterRemoveRange(t *testing.T, factory store.Factory) {
	location := filepath.Join(t.TempDir(), "store")

	s, err := factory(location)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	mustAdd(t, s, "a", "1")
	mustAdd(t, s, "b", "2")
	mustAdd(t, s, "c", "3")
	if _, err := s.RemoveRange([]byte("a"), []byte("c")); err != nil {
		t.Fatalf("Unexpected error during RemoveRange: %v", err)
	}
	// Close alone must make the state durable
	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}

	s2, err := factory(location)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer closeStore(s2)

	pairs, err := s2.SelectRange(nil, []byte{0xff})
	if err != nil {
		t.Fatalf("Unexpected error during SelectRange: %v", err)
	}
	expected := []store.Pair{{Key: []byte("c"), Value: []byte("3")}}
	if !pairsEqual(pairs, expected) {
		t.Errorf("Expected %s after reopen, got %s", formatPairs(expected), formatPairs(pairs))
	}
}
