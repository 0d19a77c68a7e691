package leveldb

import (
	"testing"

	dbtesting "github.com/ValentinKolb/versedb/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunStoreTests(t, "LevelDB", Open)
	dbtesting.RunPersistenceTests(t, "LevelDB", Open)
}

func Benchmark(b *testing.B) {
	dbtesting.RunStoreBenchmarks(b, "LevelDB", Open)
}
