// Package http implements the HTTP transport layer for propdb RPC communication.
// It provides implementations of the transport interfaces defined in the parent
// package.
//
// Routes served by the server transport:
//
//	POST /db/{name}  one serialized request for the database {name}
//	POST /registry   one serialized registry request (SaveAll, List)
//	GET  /metrics    prometheus metrics of the process
//
// The request and response bodies are opaque to the transport, the serializer
// chosen by server and client decides the format. Database names are path escaped
// by the client, so any name can be addressed.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. It selects the server
//     endpoints round-robin and retries failed requests on the next endpoint.
//
//   - httpServerTransport: Implements IRPCServerTransport on top of net/http.
//     Shutdown stops the listener and drains running requests. With log level
//     "debug" every request is logged with its status and duration.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use. It uses an atomic counter
//	for the round-robin endpoint selection.
package http
