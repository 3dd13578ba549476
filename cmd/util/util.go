package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/propdb/lib/value"
	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/serializer"
	"github.com/ValentinKolb/propdb/rpc/transport"
	"github.com/ValentinKolb/propdb/rpc/transport/http"
	"github.com/ValentinKolb/propdb/rpc/transport/tcp"
	"github.com/ValentinKolb/propdb/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (PROPDB_<FLAG>)
	EnvPrefix = "propdb"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitEnv loads .env files and makes viper read PROPDB_* environment variables
func InitEnv() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the propdb server. Multiple endpoints can be specified as a comma-separated list, requests are balanced round-robin"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 2, WrapString("How many times to retry a failed request"))

	key = "conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint (ignored for http)"))

	SetupSocketFlags(cmd)
}

// SetupSocketFlags adds the socket options of the framed transports to a command
func SetupSocketFlags(cmd *cobra.Command) {
	key := "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer in KB, 0 = system default (ignored for http)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer in KB, 0 = system default (ignored for http)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds, 0 = disabled (only for tcp)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time in seconds, 0 = system default (only for tcp)"))
}

// GetSocketConfig reads the socket options from viper
func GetSocketConfig() common.SocketConfig {
	return common.SocketConfig{
		WriteBufferSize: viper.GetInt("write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
	}
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return &common.ClientConfig{
		Endpoints:              endpoints,
		TimeoutSecond:          viper.GetInt("timeout"),
		RetryCount:             viper.GetInt("retries"),
		ConnectionsPerEndpoint: viper.GetInt("conn-per-endpoint"),
		Socket:                 GetSocketConfig(),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetTransportType reads the transport selected with --transport
func GetTransportType() (common.TransportType, error) {
	return common.ParseTransportType(viper.GetString("transport"))
}

// GetClientTransport creates the client transport selected with --transport
func GetClientTransport() (transport.IRPCClientTransport, error) {
	t, err := GetTransportType()
	if err != nil {
		return nil, err
	}
	switch t {
	case common.TransportTCP:
		return tcp.NewTCPClientTransport(), nil
	case common.TransportUnix:
		return unix.NewUnixClientTransport(), nil
	default:
		return http.NewHttpClientTransport(), nil
	}
}

// GetServerTransport creates the server transport selected with --transport
func GetServerTransport() (transport.IRPCServerTransport, error) {
	t, err := GetTransportType()
	if err != nil {
		return nil, err
	}
	switch t {
	case common.TransportTCP:
		return tcp.NewTCPServerTransport(tcp.DefaultBufferSize), nil
	case common.TransportUnix:
		return unix.NewUnixDefaultServerTransport(), nil
	default:
		return http.NewHttpServerTransport(), nil
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Value arguments
// --------------------------------------------------------------------------

// ParseValueArg converts a command line argument into a value of the given type:
// string, number, bool, vector ("x,y,z") or json (any value in its JSON text).
func ParseValueArg(kind, arg string) (value.Value, error) {
	switch strings.ToLower(kind) {
	case "", "string":
		return value.String(arg), nil
	case "number":
		f, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid number %q: %w", arg, err)
		}
		return value.Number(f), nil
	case "bool":
		b, err := strconv.ParseBool(strings.TrimSpace(arg))
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid bool %q: %w", arg, err)
		}
		return value.Bool(b), nil
	case "vector":
		parts := strings.Split(arg, ",")
		if len(parts) != 3 {
			return value.Value{}, fmt.Errorf("invalid vector %q, expected x,y,z", arg)
		}
		var xyz [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return value.Value{}, fmt.Errorf("invalid vector component %q: %w", p, err)
			}
			xyz[i] = f
		}
		return value.Vector(xyz[0], xyz[1], xyz[2]), nil
	case "json":
		return value.ParseValue(arg)
	default:
		return value.Value{}, fmt.Errorf("invalid value type %q, must be one of string, number, bool, vector, json", kind)
	}
}
