// Package client implements the propdb RPC clients. They mirror the
// operations of db.DatabaseManager and db.Database on a remote server.
//
// Key Components:
//
//   - NewRPCRegistry: Connects a transport and returns an RPCRegistry for the
//     registry operations (SaveAll, List). Database(name) returns a client for one
//     database that shares the connection.
//
//   - NewRPCDatabase: Shortcut for a registry client that is only used for a
//     single database.
//
// Values travel as their JSON text, whole databases as encoded documents, so
// order and vector values survive the round trip. Errors of the server keep their
// store.RetCode: errors.Is(err, store.ErrCorruptData) works on the client as well.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"localhost:8080"},
//	  TimeoutSecond: 5,
//	  RetryCount:    2,
//	}
//
//	registry, _ := client.NewRPCRegistry(config, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
//	players := registry.Database("players")
//	_ = players.Set("steve", value.Vector(1, 64, -3))
//	pos, ok, _ := players.Get("steve")
//	infos, _ := registry.List()
//
// Thread Safety:
//
//	All clients are safe for concurrent use if the transport is.
package client
