// Package bbolt implements the "bbolt" backend on go.etcd.io/bbolt.
//
// All entries live in one bucket. Since bbolt does not accept empty keys, every key
// is stored with a constant one byte prefix; the prefix is the same for all keys,
// so the bucket order is the bytes.Compare order of the original keys.
//
// Each write runs in its own read-write transaction, which bbolt syncs on commit,
// so Flush is a no-op. RemoveRange collects and deletes inside one transaction.
package bbolt
