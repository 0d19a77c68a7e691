// Package sqlite implements the "sqlite" backend with the pure Go driver modernc.org/sqlite
// behind database/sql.
//
// Entries are rows of the table kv(key BLOB PRIMARY KEY, value BLOB NOT NULL).
// Ranges are plain "key >= ? AND key < ?" predicates, RemoveRange selects and
// deletes inside one transaction.
package sqlite
