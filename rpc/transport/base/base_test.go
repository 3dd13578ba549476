package base

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/transport"
)

// --------------------------------------------------------------------------
// Test connectors (plain TCP on a random local port)
// --------------------------------------------------------------------------

type testServerConnector struct {
	addr chan string
}

func (c *testServerConnector) GetName() string { return "test" }

func (c *testServerConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	l, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return nil, err
	}
	c.addr <- l.Addr().String()
	return l, nil
}

func (c *testServerConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

type testClientConnector struct{}

func (c *testClientConnector) GetName() string { return "test" }

func (c *testClientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *testClientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// startServer starts a framed server with handler and returns its address.
// The server is shut down when the test ends.
func startServer(t *testing.T, handler transport.ServerHandleFunc, workers int) (transport.IRPCServerTransport, string, <-chan error) {
	t.Helper()

	connector := &testServerConnector{addr: make(chan string, 1)}
	st := NewBaseServerTransport(connector, 1024)
	st.RegisterHandler(handler)

	done := make(chan error, 1)
	go func() {
		done <- st.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0", WorkersPerConn: workers})
	}()

	select {
	case addr := <-connector.addr:
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = st.Shutdown(ctx)
		})
		return st, addr, done
	case err := <-done:
		t.Fatalf("Listen failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}
	return nil, "", nil
}

func connectClient(t *testing.T, cfg common.ClientConfig) transport.IRPCClientTransport {
	t.Helper()
	ct := NewBaseClientTransport(&testClientConnector{})
	if err := ct.Connect(cfg); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = ct.Close() })
	return ct
}

func echo(database string, req []byte) []byte {
	return []byte(database + "|" + string(req))
}

// --------------------------------------------------------------------------
// Frames
// --------------------------------------------------------------------------

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		id       uint64
		database string
		data     []byte
	}{
		{"Registry", 1, "", []byte("payload")},
		{"Database", 42, "player data/steve", []byte{0, 1, 2}},
		{"Unicode", 1 << 63, "ünïcödé", []byte("x")},
		{"EmptyPayload", 7, "db", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeFrame(&buf, tc.id, tc.database, tc.data); err != nil {
				t.Fatalf("writeFrame failed: %v", err)
			}
			f, err := readFrame(&buf, make([]byte, 2))
			if err != nil {
				t.Fatalf("readFrame failed: %v", err)
			}
			if f.requestID != tc.id || f.database != tc.database || !bytes.Equal(f.data, tc.data) {
				t.Errorf("Expected (%d, %q, %q), got (%d, %q, %q)", tc.id, tc.database, tc.data, f.requestID, f.database, f.data)
			}
			if buf.Len() != 0 {
				t.Errorf("Expected the whole frame to be consumed, %d bytes left", buf.Len())
			}
		})
	}
}

func TestFrameLimits(t *testing.T) {
	if err := writeFrame(io.Discard, 1, strings.Repeat("a", MaxNameBytes+1), nil); err == nil {
		t.Errorf("Expected an error for a too long name")
	}

	// header announcing a payload above the limit
	var buf bytes.Buffer
	if err := writeFrame(&buf, 1, "", nil); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	header := buf.Bytes()
	header[10], header[11], header[12], header[13] = 0xff, 0xff, 0xff, 0xff
	if _, err := readFrame(bytes.NewReader(header), nil); err == nil {
		t.Errorf("Expected an error for a too large frame")
	}

	// truncated frames
	buf.Reset()
	if err := writeFrame(&buf, 1, "name", []byte("data")); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	full := buf.Bytes()
	for _, n := range []int{headerSize + 2, len(full) - 1} {
		if _, err := readFrame(bytes.NewReader(full[:n]), nil); !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("Expected ErrUnexpectedEOF for %d of %d bytes, got %v", n, len(full), err)
		}
	}
	if _, err := readFrame(bytes.NewReader(nil), nil); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF between frames, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Transport
// --------------------------------------------------------------------------

func TestSendRoutesDatabaseName(t *testing.T) {
	_, addr, _ := startServer(t, echo, 4)
	ct := connectClient(t, common.ClientConfig{Endpoints: []string{addr}, TimeoutSecond: 5})

	for _, name := range []string{"", "foo", "player data/steve", "ünï"} {
		resp, err := ct.Send(name, []byte("body"))
		if err != nil {
			t.Fatalf("Send(%q) failed: %v", name, err)
		}
		if string(resp) != name+"|body" {
			t.Errorf("Expected %q, got %q", name+"|body", resp)
		}
	}
}

func TestConcurrentRequestsAreCorrelated(t *testing.T) {
	// answers arrive out of order: later requests are answered faster
	handler := func(database string, req []byte) []byte {
		if strings.HasSuffix(database, "0") {
			time.Sleep(20 * time.Millisecond)
		}
		return echo(database, req)
	}
	_, addr, _ := startServer(t, handler, 8)
	ct := connectClient(t, common.ClientConfig{Endpoints: []string{addr}, TimeoutSecond: 5, ConnectionsPerEndpoint: 2})

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("db%d", i)
			body := fmt.Sprintf("req-%d", i)
			resp, err := ct.Send(name, []byte(body))
			if err != nil {
				errs <- err
				return
			}
			if string(resp) != name+"|"+body {
				errs <- fmt.Errorf("request %d got response %q", i, resp)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConnectWithoutServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	ct := NewBaseClientTransport(&testClientConnector{})
	if err := ct.Connect(common.ClientConfig{Endpoints: []string{addr}}); err == nil {
		t.Errorf("Expected Connect to fail without a server")
	}
	if err := ct.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected Connect to fail without endpoints")
	}
	if _, err := ct.Send("db", nil); err == nil {
		t.Errorf("Expected Send to fail without connection")
	}
}

func TestSendRejectsLongName(t *testing.T) {
	_, addr, _ := startServer(t, echo, 1)
	ct := connectClient(t, common.ClientConfig{Endpoints: []string{addr}, TimeoutSecond: 5})

	if _, err := ct.Send(strings.Repeat("n", MaxNameBytes+1), nil); err == nil {
		t.Errorf("Expected an error for a too long database name")
	}
	// the connection is still usable
	if _, err := ct.Send("ok", nil); err != nil {
		t.Errorf("Send after rejected request failed: %v", err)
	}
}

func TestShutdownDrainsRunningRequests(t *testing.T) {
	started := make(chan struct{})
	handler := func(database string, req []byte) []byte {
		close(started)
		time.Sleep(100 * time.Millisecond)
		return echo(database, req)
	}
	st, addr, listenDone := startServer(t, handler, 1)
	ct := connectClient(t, common.ClientConfig{Endpoints: []string{addr}, TimeoutSecond: 5})

	type result struct {
		resp []byte
		err  error
	}
	sent := make(chan result, 1)
	go func() {
		resp, err := ct.Send("slow", []byte("x"))
		sent <- result{resp, err}
	}()

	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	r := <-sent
	if r.err != nil || string(r.resp) != "slow|x" {
		t.Errorf("Expected the running request to be answered, got %q, %v", r.resp, r.err)
	}

	select {
	case err := <-listenDone:
		if err != nil {
			t.Errorf("Expected Listen to return nil after Shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("Listen did not return after Shutdown")
	}
}

func TestShutdownTimeoutClosesConnections(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	handler := func(database string, req []byte) []byte {
		started <- struct{}{}
		<-release
		return nil
	}
	st, addr, _ := startServer(t, handler, 1)
	defer close(release)

	ct := connectClient(t, common.ClientConfig{Endpoints: []string{addr}, TimeoutSecond: 5})
	sent := make(chan error, 1)
	go func() {
		_, err := ct.Send("stuck", nil)
		sent <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := st.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}

	// the closed connection fails the pending request instead of waiting for the timeout
	select {
	case err := <-sent:
		if err == nil {
			t.Errorf("Expected the pending request to fail")
		}
	case <-time.After(4 * time.Second):
		t.Errorf("pending request was not failed")
	}
}

func TestRedialAfterConnectionLoss(t *testing.T) {
	_, addr, _ := startServer(t, echo, 1)
	ct := connectClient(t, common.ClientConfig{Endpoints: []string{addr}, TimeoutSecond: 5, RetryCount: 1})

	if _, err := ct.Send("a", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// break the live connection from the client side
	c := ct.(*clientTransport).getNextConnection()
	live, err := c.get()
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	_ = live.conn.Close()

	resp, err := ct.Send("b", []byte("again"))
	if err != nil {
		t.Fatalf("Send after connection loss failed: %v", err)
	}
	if string(resp) != "b|again" {
		t.Errorf("Unexpected response %q", resp)
	}
}

func TestListenAfterShutdown(t *testing.T) {
	st := NewBaseServerTransport(&testServerConnector{addr: make(chan string, 1)}, 0)
	st.RegisterHandler(echo)
	if err := st.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := st.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}); err != nil {
		t.Errorf("Expected Listen after Shutdown to return nil, got %v", err)
	}
}
