package server

import (
	"github.com/ValentinKolb/propdb/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes the name of the addressed database (empty for registry
	// operations) and a Message as parameters.
	// It returns a Message as a response
	// If an error occurs, it should be set in the response
	Handle(database string, req *common.Message) (resp *common.Message)
}
