package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/propdb/lib/db"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type StorageType string

const (
	StorageMemory StorageType = "memory" // in-memory property store, lost on exit
	StorageSQLite StorageType = "sqlite" // durable SQLite property store at DataPath
)

type TransportType string

const (
	TransportHTTP TransportType = "http" // HTTP/1.1, one route per database
	TransportTCP  TransportType = "tcp"  // framed requests over TCP connections
	TransportUnix TransportType = "unix" // framed requests over a Unix domain socket
)

// ParseTransportType returns the transport with the given name, an empty name is http.
func ParseTransportType(name string) (TransportType, error) {
	switch t := TransportType(strings.ToLower(strings.TrimSpace(name))); t {
	case "":
		return TransportHTTP, nil
	case TransportHTTP, TransportTCP, TransportUnix:
		return t, nil
	default:
		return "", fmt.Errorf("invalid transport %q, must be one of %s, %s, %s", name, TransportHTTP, TransportTCP, TransportUnix)
	}
}

// SocketConfig holds socket options of the framed transports (tcp, unix).
// Zero sizes and durations keep the operating system defaults.
type SocketConfig struct {
	WriteBufferSize int  // bytes
	ReadBufferSize  int  // bytes
	TCPNoDelay      bool // disable Nagle's algorithm
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ServerConfig holds all configuration parameters of a propdb server.
type ServerConfig struct {
	// Property store
	Storage  StorageType
	DataPath string

	// Quotas of the in-memory store (0 = unbounded)
	MaxValueBytes int
	MaxTotalBytes int

	// Idle eviction
	Cleaner db.CleanerConfig

	// RPC api settings
	Transport      TransportType
	Endpoint       string
	TimeoutSecond  int // read/write deadline of the framed transports (0 = none)
	WorkersPerConn int // concurrent requests per framed connection
	Socket         SocketConfig

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration for obvious mistakes.
func (c *ServerConfig) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.DataPath) == "" {
			return fmt.Errorf("storage %q requires a data path", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage %q, must be one of %s, %s", c.Storage, StorageMemory, StorageSQLite)
	}
	if c.Transport != "" {
		if _, err := ParseTransportType(string(c.Transport)); err != nil {
			return err
		}
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.TimeoutSecond < 0 || c.WorkersPerConn < 0 {
		return fmt.Errorf("timeout and workers per connection must not be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return c.Cleaner.Validate()
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Transport", string(c.transport()))
	addField("Endpoint", c.Endpoint)
	if c.transport() != TransportHTTP {
		addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
		addField("Workers Per Conn", strconv.Itoa(c.WorkersPerConn))
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Storage
	addSection("Storage")
	addField("Type", string(c.Storage))
	if c.Storage == StorageSQLite {
		addField("Data Path", c.DataPath)
	} else {
		addField("Max Value Bytes", quota(c.MaxValueBytes))
		addField("Max Total Bytes", quota(c.MaxTotalBytes))
	}

	// Cache cleaner
	addSection("Cache Cleaner")
	addField("Enabled", strconv.FormatBool(c.Cleaner.Enabled))
	if c.Cleaner.Enabled {
		addField("Sweep Interval", c.Cleaner.SweepInterval().String())
		addField("Idle Threshold", c.Cleaner.IdleThreshold().String())
	}

	return sb.String()
}

// transport returns the configured transport, http when unset
func (c *ServerConfig) transport() TransportType {
	if c.Transport == "" {
		return TransportHTTP
	}
	return c.Transport
}

func quota(n int) string {
	if n <= 0 {
		return "unbounded"
	}
	return strconv.Itoa(n)
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int // framed transports only (0 = 1)
	Socket                 SocketConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	if c.ConnectionsPerEndpoint > 1 {
		addField("Conns Per Endpoint", strconv.Itoa(c.ConnectionsPerEndpoint))
	}

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
