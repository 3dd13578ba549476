// Package common provides the data structures and utilities shared by the
// propdb RPC server, client and command line tools.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. The same structure is
//     used for requests and responses, the MessageType decides which fields are set.
//     Values travel as the JSON text of a value.Value, whole databases as encoded
//     documents. Failed operations carry the store.RetCode in Code, so the client can
//     rebuild a *store.Error (see Message.Failure).
//
//   - MessageType: Enumeration of all operations, split into database operations
//     (routed to one named database) and registry operations (SaveAll, List).
//
//   - ServerConfig: Storage backend, cleaner settings, endpoint and log level of a server.
//
//   - ClientConfig: Endpoints, timeouts and retry behaviour of a client.
//
//   - Logger: CreateLogger is installed as dragonboat logger factory by InitLoggers,
//     giving every package logger ("db", "store", "host", "rpc", "transport/rpc") the
//     same "LEVEL | name | message" format.
package common
