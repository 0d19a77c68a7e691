// Package cmd implements the command-line interface of versedb. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (add, select, remove, ranges, flush, echo, perf)
//   - serve: Command for starting and configuring the versedb server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set via an environment variable VERSEDB_<FLAG> (dashes become
// underscores), .env and .env.local files in the working directory are loaded first.
//
// See versedb -help for a list of all commands.
package cmd
