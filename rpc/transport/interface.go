package transport

import (
	"context"

	"github.com/ValentinKolb/propdb/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received.
// database is the name of the addressed database, empty for registry operations.
type ServerHandleFunc func(database string, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	// The transport layer is responsible for extracting the database name of the request
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks until it is shut down
	// A transport that was shut down returns nil
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting requests and waits for running requests until ctx is done
	Shutdown(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request for the given database to the server and returns the response
	// An empty database name addresses the registry
	Send(database string, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
