// Package server implements the propdb RPC server. It decodes requests
// received by a transport, hands them to an adapter and encodes the responses.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes one request.
//
//   - NewDatabaseServerAdapter: Maps database operations (get, set, delete, ...)
//     onto the named database of a db.DatabaseManager. The database is loaded on
//     first use, exactly like a local GetDatabase call.
//
//   - NewRegistryServerAdapter: Handles operations on the whole registry
//     (SaveAll, List).
//
//   - NewRPCServer: Creates a server with the given transport and serializer.
//
// Requests addressed to a database must carry a database operation, requests
// to the registry a registry operation. Anything else is answered with
// RetCInvalidOperation.
//
// Usage Example:
//
//	manager, _ := db.NewDatabaseManager(lstore.NewLocalStore(nil), scheduler, db.DefaultManagerOptions())
//	s := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewBinarySerializer(), manager)
//	go scheduler.WaitForSignal(ctx)
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server handles concurrent requests. Serve should be called only once.
package server
