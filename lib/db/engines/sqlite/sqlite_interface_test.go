package sqlite

import (
	"testing"

	dbtesting "github.com/ValentinKolb/versedb/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunStoreTests(t, "SQLite", Open)
	dbtesting.RunPersistenceTests(t, "SQLite", Open)
}

func Benchmark(b *testing.B) {
	dbtesting.RunStoreBenchmarks(b, "SQLite", Open)
}
