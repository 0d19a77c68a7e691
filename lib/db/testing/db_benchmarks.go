package testing

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/versedb/lib/store"
)

// RunStoreBenchmarks runs all benchmarks for a store.IStore implementation
func RunStoreBenchmarks(b *testing.B, name string, factory store.Factory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Add", func(b *testing.B) {
			benchmarkAdd(b, openBench(b, factory))
		})

		b.Run("AddExisting", func(b *testing.B) {
			benchmarkAddExisting(b, openBench(b, factory))
		})

		b.Run("AddLargeValue", func(b *testing.B) {
			benchmarkAddLargeValue(b, openBench(b, factory))
		})

		b.Run("Select", func(b *testing.B) {
			benchmarkSelect(b, openBench(b, factory))
		})

		b.Run("Select(missing)", func(b *testing.B) {
			benchmarkSelectMissing(b, openBench(b, factory))
		})

		b.Run("SelectRange", func(b *testing.B) {
			benchmarkSelectRange(b, openBench(b, factory))
		})

		b.Run("RemoveRange", func(b *testing.B) {
			benchmarkRemoveRange(b, openBench(b, factory))
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, openBench(b, factory))
		})
	})
}

// openBench opens a fresh store that is closed when the benchmark ends
func openBench(b *testing.B, factory store.Factory) store.IStore {
	b.Helper()
	s, err := factory(filepath.Join(b.TempDir(), "store"))
	if err != nil {
		b.Fatalf("Failed to open store: %v", err)
	}
	b.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// fill adds n entries with keys bench-key-%08d
func fill(b *testing.B, s store.IStore, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("bench-key-%08d", i))
		value := []byte(fmt.Sprintf("bench-value-%d", i))
		if err := s.Add(key, value); err != nil {
			b.Fatalf("Failed to prepare data: %v", err)
		}
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Add operation
func benchmarkAdd(b *testing.B, s store.IStore) {
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		prefix := rand.Int63()
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("bench-key-%d-%d", prefix, counter))
			value := []byte(fmt.Sprintf("bench-value-%d", counter))
			_ = s.Add(key, value)
			counter++
		}
	})
}

// Benchmark for Add operation with existing keys
func benchmarkAddExisting(b *testing.B, s store.IStore) {
	numKeys := 1000
	fill(b, s, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("bench-key-%08d", counter%numKeys))
			value := []byte(fmt.Sprintf("bench-value-%d", counter))
			_ = s.Add(key, value)
			counter++
		}
	})
}

// Benchmark for Add operation with large values
func benchmarkAddLargeValue(b *testing.B, s store.IStore) {
	largeValue := make([]byte, 64*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		prefix := rand.Int63()
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("large-key-%d-%d", prefix, counter))
			_ = s.Add(key, largeValue)
			counter++
		}
	})
}

// Benchmark for Select operation
func benchmarkSelect(b *testing.B, s store.IStore) {
	numKeys := 1000
	fill(b, s, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("bench-key-%08d", counter%numKeys))
			_, _, _ = s.Select(key)
			counter++
		}
	})
}

// Benchmark for Select operation on keys that do not exist
func benchmarkSelectMissing(b *testing.B, s store.IStore) {
	fill(b, s, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("missing-key-%d", counter))
			_, _, _ = s.Select(key)
			counter++
		}
	})
}

// Benchmark for SelectRange operation over 100 entries
func benchmarkSelectRange(b *testing.B, s store.IStore) {
	numKeys := 10_000
	fill(b, s, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			first := (counter * 100) % (numKeys - 100)
			start := []byte(fmt.Sprintf("bench-key-%08d", first))
			end := []byte(fmt.Sprintf("bench-key-%08d", first+100))
			_, _ = s.SelectRange(start, end)
			counter++
		}
	})
}

// Benchmark for RemoveRange operation, each iteration adds and removes 10 entries
func benchmarkRemoveRange(b *testing.B, s store.IStore) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prefix := fmt.Sprintf("range-%08d-", i)
		for j := 0; j < 10; j++ {
			_ = s.Add([]byte(fmt.Sprintf("%s%d", prefix, j)), []byte("value"))
		}
		_, _ = s.RemoveRange([]byte(prefix), []byte(prefix+"~"))
	}
}

// Benchmark for realistic mixed usage (70% select, 20% add, 5% remove, 5% select range)
func benchmarkMixedUsage(b *testing.B, s store.IStore) {
	numKeys := 1000
	fill(b, s, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			idx := rng.Intn(numKeys)
			key := []byte(fmt.Sprintf("bench-key-%08d", idx))

			op := rng.Intn(100)
			switch {
			case op < 70:
				_, _, _ = s.Select(key)
			case op < 90:
				_ = s.Add(key, []byte(fmt.Sprintf("bench-value-%d", op)))
			case op < 95:
				_ = s.Remove(key)
			default:
				end := []byte(fmt.Sprintf("bench-key-%08d", idx+10))
				_, _ = s.SelectRange(key, end)
			}
		}
	})
}
