package client

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/ValentinKolb/propdb/lib/value"
	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/serializer"
	"github.com/ValentinKolb/propdb/rpc/transport"
)

// NewRPCDatabase creates a client for a single named database
// The function takes the database name, a config, a transport and a serializer as parameters
func NewRPCDatabase(
	name string,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCDatabase, error) {
	if name == "" {
		return nil, store.NewError(store.RetCInvalidOperation, "database name must not be empty")
	}
	registry, err := NewRPCRegistry(config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return registry.Database(name), nil
}

// RPCDatabase mirrors the operations of db.Database on a remote server.
type RPCDatabase struct {
	rpcClientAdapter
	name string
}

func (i *RPCDatabase) Name() string { return i.name }

// --------------------------------------------------------------------------
// Database Methods (docu see lib/db/database.go)
// --------------------------------------------------------------------------

func (i *RPCDatabase) Get(key string) (value.Value, bool, error) {
	resp, err := i.invoke(i.name, common.NewGetRequest(key))
	if err != nil {
		return value.Absent(), false, err
	}
	if !resp.Ok {
		return value.Absent(), false, nil
	}
	v, err := value.ParseValue(string(resp.Value))
	return v, err == nil, err
}

func (i *RPCDatabase) GetStrict(key string) (value.Value, error) {
	v, ok, err := i.Get(key)
	if err != nil {
		return value.Absent(), err
	}
	if !ok {
		return value.Absent(), store.NewError(store.RetCKeyNotFound, fmt.Sprintf("key '%s' not found in database '%s'", key, i.name))
	}
	return v, nil
}

func (i *RPCDatabase) Has(key string) (bool, error) {
	_, ok, err := i.Get(key)
	return ok, err
}

// Entries returns the content in insertion order
func (i *RPCDatabase) Entries() ([]value.Entry, error) {
	resp, err := i.invoke(i.name, common.NewGetAllRequest())
	if err != nil {
		return nil, err
	}
	entries, err := value.Decode(string(resp.Value))
	if err != nil {
		return nil, fmt.Errorf("RPC client - invalid document: %w", err)
	}
	return entries, nil
}

func (i *RPCDatabase) GetAll() (map[string]value.Value, error) {
	entries, err := i.Entries()
	if err != nil {
		return nil, err
	}
	all := make(map[string]value.Value, len(entries))
	for _, e := range entries {
		all[e.Key] = e.Value
	}
	return all, nil
}

func (i *RPCDatabase) Keys() ([]string, error) {
	entries, err := i.Entries()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for n, e := range entries {
		keys[n] = e.Key
	}
	return keys, nil
}

func (i *RPCDatabase) Values() ([]value.Value, error) {
	entries, err := i.Entries()
	if err != nil {
		return nil, err
	}
	values := make([]value.Value, len(entries))
	for n, e := range entries {
		values[n] = e.Value
	}
	return values, nil
}

func (i *RPCDatabase) Size() (int, error) {
	resp, err := i.invoke(i.name, common.NewSizeRequest())
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

func (i *RPCDatabase) Set(key string, v value.Value) error {
	text, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = i.invoke(i.name, common.NewSetRequest(key, text))
	return err
}

func (i *RPCDatabase) Delete(key string) (bool, error) {
	resp, err := i.invoke(i.name, common.NewDeleteRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

// Clear removes all entries and returns their number
func (i *RPCDatabase) Clear() (int, error) {
	resp, err := i.invoke(i.name, common.NewClearRequest())
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

func (i *RPCDatabase) Flush() error {
	_, err := i.invoke(i.name, common.NewFlushRequest())
	return err
}

// Print returns the lines the server printed for recipient
func (i *RPCDatabase) Print(recipient string) ([]string, error) {
	resp, err := i.invoke(i.name, common.NewPrintRequest(recipient))
	if err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, nil
	}
	return strings.Split(string(resp.Value), "\n"), nil
}

// Evict flushes the database on the server and unloads it.
// It reports false if the database was not loaded.
func (i *RPCDatabase) Evict() (bool, error) {
	resp, err := i.invoke(i.name, common.NewEvictRequest())
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}
