package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/transport"
)

// DefaultWorkersPerConn is used when the server config does not set WorkersPerConn
const DefaultWorkersPerConn = 16

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	bufferPool *sync.Pool

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	connWg   sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. Request payloads
// up to bufferSize bytes are read into pooled buffers.
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	bufferSize = max(bufferSize, 1024)

	return &serverTransport{
		connector: connector,
		conns:     make(map[net.Conn]struct{}),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.workersPerConn())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.isClosed() {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(5 * time.Millisecond)
			continue
		}

		if !t.track(conn) {
			_ = conn.Close()
			return nil
		}

		// Handle the connection in a goroutine
		go t.handleConnection(conn)
	}
}

// Shutdown stops accepting connections, lets every connection finish the requests it
// already read and closes it. When ctx is done first, all connections are closed at once.
func (t *serverTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	listener := t.listener
	// unblock readers waiting for the next request
	for conn := range t.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
	t.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}

	done := make(chan struct{})
	go func() {
		t.connWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.mu.Lock()
		for conn := range t.conns {
			_ = conn.Close()
		}
		t.mu.Unlock()
		return ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *serverTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *serverTransport) workersPerConn() int {
	if t.config.WorkersPerConn > 0 {
		return t.config.WorkersPerConn
	}
	return DefaultWorkersPerConn
}

// track registers an accepted connection, it reports false after Shutdown
func (t *serverTransport) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[conn] = struct{}{}
	t.connWg.Add(1)
	return true
}

func (t *serverTransport) untrack(conn net.Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
	t.connWg.Done()
}

// armRead sets the read deadline for the next request. It reports false after
// Shutdown, so a deadline set by Shutdown is never overwritten.
func (t *serverTransport) armRead(conn net.Conn, timeout time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			Logger.Errorf("Failed to set read deadline: %v", err)
			return false
		}
	}
	return true
}

// handleConnection handles incoming requests for one connection
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.untrack(conn)
	defer conn.Close()

	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		Logger.Errorf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		return
	}

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// The buffered channel acts as a counting semaphore limiting concurrent workers
	workerSemaphore := make(chan struct{}, t.workersPerConn())

	// Wait for all workers to finish before closing the connection
	var wg sync.WaitGroup
	defer wg.Wait()

	// Protects writes to the connection
	var connMutex sync.Mutex

	handleResponse := func(req frame) {
		start := time.Now()
		resp := t.handler(req.database, req.data)
		Logger.Debugf("Processed request %d for database '%s' in %s", req.requestID, req.database, time.Since(start))

		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		// Write the response with the same requestID
		if err := writeFrame(conn, req.requestID, "", resp); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	}

	for {
		if !t.armRead(conn, timeout) {
			return
		}

		// Get a buffer from the pool
		buf := t.bufferPool.Get().([]byte)

		req, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			switch {
			case errors.Is(err, io.EOF):
				Logger.Debugf("Connection closed by client %s", conn.RemoteAddr())
			case t.isClosed():
				Logger.Debugf("Closing connection to %s on shutdown", conn.RemoteAddr())
			default:
				Logger.Errorf("Error handling request from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		// blocks if the worker limit is reached
		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer func() {
				t.bufferPool.Put(buf)
				<-workerSemaphore
				wg.Done()
			}()
			handleResponse(req)
		}()
	}
}
