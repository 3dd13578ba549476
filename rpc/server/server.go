package server

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/propdb/lib/db"
	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/serializer"
	"github.com/ValentinKolb/propdb/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport, serializer and the database manager as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//		manager,
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	manager *db.DatabaseManager,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		database:   NewDatabaseServerAdapter(manager),
		registry:   NewRegistryServerAdapter(manager),
	}
}

type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	database   IRPCServerAdapter
	registry   IRPCServerAdapter
}

// Serve registers the request handler and starts the transport layer.
// It blocks until the transport is shut down.
func (s *RPCServer) Serve() error {
	s.transport.RegisterHandler(s.handle)
	Logger.Infof("propdb setup completed successfully")
	return s.transport.Listen(s.config)
}

// Shutdown stops the transport layer. Databases are saved by the manager's shutdown hook.
func (s *RPCServer) Shutdown(ctx context.Context) error {
	return s.transport.Shutdown(ctx)
}

// handle decodes one request, lets the matching adapter handle it and encodes the response
func (s *RPCServer) handle(database string, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	start := time.Now()

	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = s.dispatch(database, &msg)
	}

	requestCounter(msg.MsgType).Inc()
	if respMsg.Err != "" {
		failedRequests.Inc()
		Logger.Debugf("request %s for database '%s' failed: %s", msg.MsgType, database, respMsg.Err)
	}
	requestDuration.UpdateDuration(start)

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// dispatch routes msg to the registry or the database adapter
func (s *RPCServer) dispatch(database string, msg *common.Message) *common.Message {
	registryOp := msg.MsgType.IsRegistryOperation()
	switch {
	case database == "" && registryOp:
		return s.registry.Handle("", msg)
	case database != "" && !registryOp:
		return s.database.Handle(database, msg)
	case database == "":
		return common.NewFailedResponse(msg.MsgType,
			store.NewError(store.RetCInvalidOperation, fmt.Sprintf("operation %s requires a database name", msg.MsgType)))
	default:
		return common.NewFailedResponse(msg.MsgType,
			store.NewError(store.RetCInvalidOperation, fmt.Sprintf("operation %s is a registry operation, not sent to a database", msg.MsgType)))
	}
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	failedRequests  = metrics.NewCounter("propdb_rpc_failed_requests_total")
	requestDuration = metrics.NewHistogram("propdb_rpc_request_duration_seconds")
)

func requestCounter(t common.MessageType) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`propdb_rpc_requests_total{type=%q}`, t))
}
