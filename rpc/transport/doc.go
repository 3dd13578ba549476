// Package transport defines the interfaces for RPC communication in propdb.
// It provides a common contract that all transport implementations must fulfill,
// keeping the server and client independent of the network protocol.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and passes them, together with the addressed database name,
//     to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations:
//
//   - http: database name in the URL path, also serves /metrics.
//   - base: framed connections carrying the database name in every frame, used by
//     the tcp and unix subpackages.
package transport
