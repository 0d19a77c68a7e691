package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	dbtesting "github.com/ValentinKolb/versedb/lib/db/testing"
	"github.com/ValentinKolb/versedb/lib/store"
)

var formats = []Format{FormatJSON, FormatYAML, FormatCSV, FormatCBOR}

func Test(t *testing.T) {
	for _, format := range formats {
		dbtesting.RunStoreTests(t, format.Name(), Factory(format))
		dbtesting.RunPersistenceTests(t, format.Name(), Factory(format))
	}
}

func Benchmark(b *testing.B) {
	for _, format := range formats {
		dbtesting.RunStoreBenchmarks(b, format.Name(), Factory(format))
	}
}

func TestFormatRoundTrip(t *testing.T) {
	pairs := []store.Pair{
		{Key: []byte{}, Value: []byte("empty key")},
		{Key: []byte{0x00, 0xff}, Value: []byte{}},
		{Key: []byte("a,b\n\"c\""), Value: []byte{0x00, 0x01, 0x02}},
		{Key: []byte("k"), Value: []byte("- not: yaml\n")},
	}

	for _, format := range formats {
		t.Run(format.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := format.Encode(&buf, pairs); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := format.Decode(&buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if len(decoded) != len(pairs) {
				t.Fatalf("Expected %d pairs, got %d", len(pairs), len(decoded))
			}
			for i := range pairs {
				if !bytes.Equal(decoded[i].Key, pairs[i].Key) || !bytes.Equal(decoded[i].Value, pairs[i].Value) {
					t.Errorf("Pair %d mismatch: %v vs %v", i, decoded[i], pairs[i])
				}
			}
		})
	}
}

func TestEmptyFileIsEmptyStore(t *testing.T) {
	for _, format := range formats {
		t.Run(format.Name(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "empty")
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				t.Fatal(err)
			}

			db, err := Open(path, format)
			if err != nil {
				t.Fatalf("Opening an empty file must not fail: %v", err)
			}
			defer db.Close()

			pairs, _ := db.SelectRange(nil, []byte{0xff})
			if len(pairs) != 0 {
				t.Errorf("Expected an empty store, got %d entries", len(pairs))
			}
		})
	}
}

func TestCorruptFileFailsToOpen(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatCSV, FormatCBOR} {
		t.Run(format.Name(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "corrupt")
			if err := os.WriteFile(path, []byte("\xff{not valid,,,"), 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := Open(path, format); !store.IsCode(err, store.RetCInternalError) {
				t.Errorf("Expected %s for a corrupt snapshot, got %v", store.RetCInternalError, err)
			}
		})
	}
}

func TestFlushSkipsUnchangedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	db, err := Open(path, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.Flush(); err != nil {
		t.Fatalf("Unexpected error during Flush: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Flush without changes must not create the snapshot file")
	}

	_ = db.Add([]byte("k"), []byte("v"))
	if err := db.Flush(); err != nil {
		t.Fatalf("Unexpected error during Flush: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Snapshot file missing after Flush: %v", err)
	}

	// an empty RemoveRange is not a change
	_, _ = db.RemoveRange([]byte("x"), []byte("y"))
	if db.dirty.Load() {
		t.Errorf("An empty RemoveRange must not mark the store as changed")
	}

	if err := db.Flush(); err != nil {
		t.Fatalf("Unexpected error during Flush: %v", err)
	}
	info2, _ := os.Stat(path)
	if !info2.ModTime().Equal(info.ModTime()) {
		t.Errorf("Flush without changes rewrote the snapshot")
	}

	matches, _ := filepath.Glob(path + ".tmp-*")
	if len(matches) != 0 {
		t.Errorf("Temporary files left behind: %v", matches)
	}
}

func TestFailedCloseCanBeRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	db, err := Open(path, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Add([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Unexpected error during Add: %v", err)
	}

	// a non-empty directory at the snapshot path makes the final rename fail
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); !store.IsCode(err, store.RetCInternalError) {
		t.Fatalf("Expected %s while the snapshot can not be written, got %v", store.RetCInternalError, err)
	}

	// the unwritten state is still there
	value, loaded, err := db.Select([]byte("k"))
	if err != nil || !loaded || string(value) != "v" {
		t.Fatalf("State lost after a failed Close: %q, %v, %v", value, loaded, err)
	}

	if err := os.RemoveAll(path); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Retrying Close failed: %v", err)
	}
	if err := db.Close(); !store.IsCode(err, store.RetCStoreClosed) {
		t.Errorf("Expected %s after Close, got %v", store.RetCStoreClosed, err)
	}

	reopened, err := Open(path, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if value, loaded, _ := reopened.Select([]byte("k")); !loaded || string(value) != "v" {
		t.Errorf("Expected the retried Close to persist the state, got %q, %v", value, loaded)
	}
}
