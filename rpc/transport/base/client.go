package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var errConnectionLost = errors.New("connection lost")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// liveConn is one dialed connection. Requests waiting for a response are
// registered in pending until the reader goroutine delivers it.
type liveConn struct {
	conn    net.Conn
	writeMu sync.Mutex
	pending *xsync.MapOf[uint64, chan responseResult]
}

// clientConnection is one slot of the pool, it redials lazily after the connection was lost
type clientConnection struct {
	endpoint string
	parent   *clientTransport

	mu   sync.Mutex
	live *liveConn
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64 // Round Robin
	nextRequestID atomic.Uint64
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	t.config = config
	t.stopping.Store(false)

	connectionsPerEP := max(config.ConnectionsPerEndpoint, 1)
	connections := make([]*clientConnection, 0, len(config.Endpoints)*connectionsPerEP)
	connected := 0

	for _, endpoint := range config.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			c := &clientConnection{endpoint: endpoint, parent: t}
			connections = append(connections, c)

			if _, err := c.get(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connected++
		}
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	// at least one endpoint must be reachable now, the others are redialed on use
	if connected == 0 {
		t.closeConnections()
		return fmt.Errorf("failed to connect to any endpoint")
	}

	Logger.Infof("Connected %d out of %d connections to %d endpoints using %s transport",
		connected, len(connections), len(config.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(database string, req []byte) ([]byte, error) {
	if len(database) > MaxNameBytes {
		return nil, fmt.Errorf("database name too long (%d > %d bytes)", len(database), MaxNameBytes)
	}

	// We always try at least once
	attempts := t.config.RetryCount + 1
	if attempts < 1 {
		attempts = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < attempts; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			return nil, fmt.Errorf("transport is not connected")
		}

		data, err := conn.send(database, req)
		if err == nil {
			return data, nil
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d to %s failed: %v", i+1, attempts, conn.endpoint, err)

		if i+1 < attempts {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	return t.connections[t.nextConnIndex.Add(1)%uint64(len(t.connections))]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		c.drop()
	}
}

func (t *clientTransport) timeout() time.Duration {
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

// get returns the live connection, dialing a new one if there is none
func (c *clientConnection) get() (*liveConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != nil {
		return c.live, nil
	}
	if c.parent.stopping.Load() {
		return nil, fmt.Errorf("transport is closed")
	}

	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}

	live := &liveConn{
		conn:    conn,
		pending: xsync.NewMapOf[uint64, chan responseResult](),
	}
	c.live = live
	go c.readResponses(live)
	return live, nil
}

// drop closes the live connection, its reader fails all pending requests
func (c *clientConnection) drop() {
	c.mu.Lock()
	live := c.live
	c.live = nil
	c.mu.Unlock()

	if live != nil {
		_ = live.conn.Close()
	}
}

// send writes one request and waits for its response
func (c *clientConnection) send(database string, req []byte) ([]byte, error) {
	live, err := c.get()
	if err != nil {
		return nil, err
	}

	requestID := c.parent.nextRequestID.Add(1)
	timeout := c.parent.timeout()

	// Register the request before writing, the response may arrive at once
	respCh := make(chan responseResult, 1)
	live.pending.Store(requestID, respCh)
	defer live.pending.Delete(requestID)

	live.writeMu.Lock()
	if timeout > 0 {
		_ = live.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err = writeFrame(live.conn, requestID, database, req)
	live.writeMu.Unlock()

	if err != nil {
		c.lost(live)
		return nil, err
	}

	// Wait for response or timeout
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, fmt.Errorf("request %d timed out after %s", requestID, timeout)
	}
}

// lost forgets live if it is still the current connection and closes it
func (c *clientConnection) lost(live *liveConn) {
	c.mu.Lock()
	if c.live == live {
		c.live = nil
	}
	c.mu.Unlock()
	_ = live.conn.Close()
}

// readResponses reads responses in a loop and distributes them to waiting requests.
// When the connection fails every pending request fails and the slot is redialed on next use.
func (c *clientConnection) readResponses(live *liveConn) {
	for {
		resp, err := readFrame(live.conn, nil)
		if err != nil {
			if !c.parent.stopping.Load() {
				Logger.Warningf("Connection to %s lost: %v", c.endpoint, err)
			}
			c.lost(live)

			live.pending.Range(func(id uint64, ch chan responseResult) bool {
				select {
				case ch <- responseResult{err: fmt.Errorf("%w: %v", errConnectionLost, err)}:
				default:
				}
				return true
			})
			return
		}

		respCh, found := live.pending.Load(resp.requestID)
		if !found {
			Logger.Warningf("Received response for unknown request ID %d from %s", resp.requestID, c.endpoint)
			continue
		}
		select {
		case respCh <- responseResult{data: resp.data}:
		default:
		}
	}
}
