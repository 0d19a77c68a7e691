// Package snapshot implements the file based backends "json", "yaml", "csv" and "cbor".
//
// All entries are kept in the ordered memory engine. The complete state is written
// to a single file on Flush and on Close, and loaded again on open. Writes go to a
// temporary file in the same directory which then replaces the snapshot with
// os.Rename, so a crash leaves either the previous or the new snapshot behind.
// A Flush without changes since the last write does not touch the file.
//
// Keys and values are opaque bytes. The text formats store them base64 encoded
// (encoding/json, gopkg.in/yaml.v3, encoding/csv), the cbor format stores native
// byte strings (github.com/fxamacker/cbor/v2).
//
// Writes that have not been flushed are lost if the process dies. If the final
// write of Close fails, the store stays open and Close can be retried.
package snapshot
