package db

import (
	"fmt"

	"github.com/ValentinKolb/versedb/lib/db/engines/bbolt"
	"github.com/ValentinKolb/versedb/lib/db/engines/leveldb"
	"github.com/ValentinKolb/versedb/lib/db/engines/memory"
	"github.com/ValentinKolb/versedb/lib/db/engines/pebble"
	"github.com/ValentinKolb/versedb/lib/db/engines/snapshot"
	"github.com/ValentinKolb/versedb/lib/db/engines/sqlite"
	"github.com/ValentinKolb/versedb/lib/store"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMemory  Implementation = "memory"
	ImplJSON    Implementation = "json"
	ImplYAML    Implementation = "yaml"
	ImplCSV     Implementation = "csv"
	ImplCBOR    Implementation = "cbor"
	ImplLevelDB Implementation = "leveldb"
	ImplBBolt   Implementation = "bbolt"
	ImplPebble  Implementation = "pebble"
	ImplSQLite  Implementation = "sqlite"
)

// DatabaseInfo describes a backend implementation.
type DatabaseInfo struct {
	DbType     Implementation `json:"db_type"`
	Persistent bool           `json:"persistent"` // state survives a restart
	Buffered   bool           `json:"buffered"`   // writes are only durable after Flush (or Close)
	Location   string         `json:"location"`   // what the location argument denotes
}

var implementations = []DatabaseInfo{
	{DbType: ImplMemory, Persistent: false, Buffered: false, Location: "ignored"},
	{DbType: ImplJSON, Persistent: true, Buffered: true, Location: "file"},
	{DbType: ImplYAML, Persistent: true, Buffered: true, Location: "file"},
	{DbType: ImplCSV, Persistent: true, Buffered: true, Location: "file"},
	{DbType: ImplCBOR, Persistent: true, Buffered: true, Location: "file"},
	{DbType: ImplLevelDB, Persistent: true, Buffered: false, Location: "directory"},
	{DbType: ImplBBolt, Persistent: true, Buffered: false, Location: "file"},
	{DbType: ImplPebble, Persistent: true, Buffered: true, Location: "directory"},
	{DbType: ImplSQLite, Persistent: true, Buffered: false, Location: "file"},
}

// Implementations returns information about all available backends.
func Implementations() []DatabaseInfo {
	infos := make([]DatabaseInfo, len(implementations))
	copy(infos, implementations)
	return infos
}

// Info returns information about a single backend.
func Info(impl Implementation) (DatabaseInfo, bool) {
	for _, info := range implementations {
		if info.DbType == impl {
			return info, true
		}
	}
	return DatabaseInfo{}, false
}

// --------------------------------------------------------------------------
// Backend Selection
// --------------------------------------------------------------------------

// FactoryOf returns the store.Factory of a backend implementation.
func FactoryOf(impl Implementation) (store.Factory, error) {
	switch impl {
	case ImplMemory:
		return memory.Open, nil
	case ImplJSON:
		return snapshot.Factory(snapshot.FormatJSON), nil
	case ImplYAML:
		return snapshot.Factory(snapshot.FormatYAML), nil
	case ImplCSV:
		return snapshot.Factory(snapshot.FormatCSV), nil
	case ImplCBOR:
		return snapshot.Factory(snapshot.FormatCBOR), nil
	case ImplLevelDB:
		return leveldb.Open, nil
	case ImplBBolt:
		return bbolt.Open, nil
	case ImplPebble:
		return pebble.Open, nil
	case ImplSQLite:
		return sqlite.Open, nil
	default:
		return nil, fmt.Errorf("unknown backend implementation %q", impl)
	}
}

// Open opens (or creates) the backend impl at location.
// The backend is chosen once at startup, it can not be changed while the store is open.
func Open(impl Implementation, location string) (store.IStore, error) {
	factory, err := FactoryOf(impl)
	if err != nil {
		return nil, err
	}
	s, err := factory(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend at %q: %w", impl, location, err)
	}
	return s, nil
}
