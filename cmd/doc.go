// Package cmd implements the command-line interface of propdb. It provides
// a hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the server (property store, database manager, cache cleaner, HTTP api)
//   - db: Client commands for database operations (get, set, del, all, print, evict, ...),
//     registry operations (saveall, list) and a benchmark (perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable PROPDB_<FLAG>, .env and
// .env.local files in the working directory are loaded first.
//
// See propdb -help for a list of all commands.
package cmd
