// Package base provides the framed RPC transport that the tcp and unix packages
// build on. It is independent of the network protocol; protocol specific parts
// are injected as connectors.
//
// Frame format (all integers big endian):
//
//	requestID (8 bytes) | name length (2 bytes) | payload length (4 bytes) | name | payload
//
// A request carries the name of the addressed database (empty for registry
// operations), a response carries an empty name and the requestID of its request.
// Names are limited to MaxNameBytes, payloads to MaxFrameBytes.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: protocol-specific dialing, listening and
//     socket options.
//
//   - clientTransport: keeps ConnectionsPerEndpoint connections per endpoint and
//     picks them round-robin. Responses are matched to requests by requestID, so
//     many requests can be in flight on one connection. A lost connection fails its
//     pending requests and is redialed on next use. Failed requests are retried on
//     the next connection with exponential backoff.
//
//   - serverTransport: accepts connections and runs up to WorkersPerConn requests of
//     one connection concurrently. Payload buffers are pooled (sync.Pool). Shutdown
//     stops accepting, lets every connection answer the requests it already read and
//     then closes it.
//
// Thread Safety:
//
//	All public methods are safe for concurrent use.
package base
