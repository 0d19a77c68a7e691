// Package store defines the ordered key-value contract shared by every backend
// and by the rpc client, together with the unified error type.
//
// The package focuses on:
//   - A unified interface (IStore) for ordered key-value operations across different backends
//   - Half-open range semantics and unsigned byte ordering that every backend honors identically
//   - A Factory type that opens a backend at a backend specific location
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining Add, Select, Remove, SelectRange,
//     RemoveRange, Flush and Close. Keys are compared with bytes.Compare, ranges are
//     [start, end) and an empty or inverted range yields no entries and no error.
//     Range results are always in ascending key order. RemoveRange returns exactly
//     the entries it removed.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. The same codes travel over the wire, so a remote
//     caller can make the same decisions as a local one.
//
//   - Factory: A function type that abstracts opening a backend, so the server can be
//     parameterized with any implementation at startup.
//
// Implementations:
//
//	Backends live in "github.com/ValentinKolb/versedb/lib/db/engines". The process wide
//	shared instance is created with "github.com/ValentinKolb/versedb/lib/store/lstore",
//	which serializes every operation on one exclusive guard. The rpc client in
//	"github.com/ValentinKolb/versedb/rpc/client" implements IStore as well, so local and
//	remote stores are interchangeable for application code.
package store
