// Package unix implements the framed propdb RPC transport over Unix domain sockets,
// for clients on the same machine as the server.
//
// The server removes a stale socket file before listening. Everything else
// (framing, worker limits, shutdown, connection pooling) is provided by the base package.
// The default server buffer size is 64 KB.
package unix
