// Package tcp implements the framed propdb RPC transport over TCP connections.
// It provides the TCP connectors of the base package; framing, worker limits,
// graceful shutdown and client connection pooling come from there.
//
// Socket options (TCP_NODELAY, buffer sizes, keep-alive, linger) are taken from
// common.SocketConfig on both sides. The default server buffer size is 512 KB.
package tcp
