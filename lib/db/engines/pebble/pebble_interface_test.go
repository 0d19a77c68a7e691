package pebble

import (
	"testing"

	dbtesting "github.com/ValentinKolb/versedb/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunStoreTests(t, "Pebble", Open)
	dbtesting.RunPersistenceTests(t, "Pebble", Open)
}

func Benchmark(b *testing.B) {
	dbtesting.RunStoreBenchmarks(b, "Pebble", Open)
}
