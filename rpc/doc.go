// Package rpc exposes a propdb database manager over the network.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, configuration structures and logging.
//
//   - transport: Network communication abstractions, implemented over HTTP.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: RPC clients mirroring db.DatabaseManager and db.Database.
//
//   - server: The RPC server with adapters for database and registry operations.
package rpc
