package db

import (
	"path/filepath"
	"testing"
)

func TestOpenEveryImplementation(t *testing.T) {
	for _, info := range Implementations() {
		t.Run(string(info.DbType), func(t *testing.T) {
			s, err := Open(info.DbType, filepath.Join(t.TempDir(), "store"))
			if err != nil {
				t.Fatalf("Failed to open %s: %v", info.DbType, err)
			}

			if err := s.Add([]byte("k"), []byte("v")); err != nil {
				t.Errorf("Unexpected error during Add: %v", err)
			}
			if value, loaded, _ := s.Select([]byte("k")); !loaded || string(value) != "v" {
				t.Errorf("Expected v, got %q (loaded=%v)", value, loaded)
			}
			if err := s.Flush(); err != nil {
				t.Errorf("Unexpected error during Flush: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Unexpected error during Close: %v", err)
			}
		})
	}
}

func TestOpenUnknownImplementation(t *testing.T) {
	if _, err := Open("does-not-exist", t.TempDir()); err == nil {
		t.Errorf("Expected an error for an unknown implementation")
	}
}

func TestInfo(t *testing.T) {
	info, ok := Info(ImplPebble)
	if !ok || !info.Persistent || !info.Buffered {
		t.Errorf("Unexpected info for pebble: %+v (ok=%v)", info, ok)
	}
	if _, ok := Info("unknown"); ok {
		t.Errorf("Info must report false for unknown implementations")
	}
}
