package client

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/propdb/lib/db"
	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/serializer"
	"github.com/ValentinKolb/propdb/rpc/transport"
)

// NewRPCRegistry connects the transport and returns a client for the database registry of a server.
func NewRPCRegistry(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCRegistry, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCRegistry{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCRegistry is the remote counterpart of db.DatabaseManager.
type RPCRegistry struct {
	rpcClientAdapter
}

// Database returns a client for the named database. It shares the connection of the registry.
// Nothing is sent until the first operation, the server loads the database on first use.
func (r *RPCRegistry) Database(name string) *RPCDatabase {
	return &RPCDatabase{
		rpcClientAdapter: r.rpcClientAdapter,
		name:             name,
	}
}

// SaveAll flushes every live database on the server and returns their number.
func (r *RPCRegistry) SaveAll() (int, error) {
	resp, err := r.invoke("", common.NewSaveAllRequest())
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

// List returns the metadata of all live databases on the server, sorted by name.
func (r *RPCRegistry) List() ([]db.DatabaseInfo, error) {
	resp, err := r.invoke("", common.NewListRequest())
	if err != nil {
		return nil, err
	}
	var infos []db.DatabaseInfo
	if err := json.Unmarshal(resp.Value, &infos); err != nil {
		return nil, fmt.Errorf("RPC client - invalid list response: %w", err)
	}
	return infos, nil
}

// Close closes the underlying transport.
func (r *RPCRegistry) Close() error {
	return r.transport.Close()
}
