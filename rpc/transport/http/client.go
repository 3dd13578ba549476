package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/ValentinKolb/propdb/rpc/transport"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	mu         sync.RWMutex
	serverURLs []string
	client     *http.Client
	counter    atomic.Uint32
	retryCount int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("http transport: no endpoints configured")
	}

	// Parse each server URL
	parsedURLs := make([]string, len(config.Endpoints))
	for i, server := range config.Endpoints {
		if !strings.Contains(server, "://") {
			server = "http://" + server
		}
		parsedURL, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("http transport: invalid endpoint %q: %w", config.Endpoints[i], err)
		}
		parsedURLs[i] = strings.TrimRight(parsedURL.String(), "/")
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second

	// Create client with default transport
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.client = client
	t.serverURLs = parsedURLs
	t.retryCount = max(config.RetryCount, 0)
	t.counter.Store(0)

	return nil
}

func (t *httpClientTransport) Send(database string, req []byte) (resp []byte, err error) {
	t.mu.RLock()
	client, serverURLs, retries := t.client, t.serverURLs, t.retryCount
	t.mu.RUnlock()

	// Check if the transport is initialized
	if client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	// One attempt plus the configured retries, each on the next server (round-robin)
	for attempt := 0; attempt <= retries; attempt++ {
		idx := t.counter.Add(1) % uint32(len(serverURLs))
		resp, err = t.send(client, requestURL(serverURLs[idx], database), req)
		if err == nil {
			return resp, nil
		}
		Logger.Debugf("Request for database '%s' failed (attempt %d/%d): %v", database, attempt+1, retries+1, err)
	}
	return nil, err
}

func (t *httpClientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Close the client
	if t.client != nil {
		t.client.CloseIdleConnections()
	}

	// Reset the client and server URLs
	t.client = nil
	t.serverURLs = nil

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// requestURL returns the url of a database, or of the registry if database is empty
func requestURL(server, database string) string {
	if database == "" {
		return server + "/registry"
	}
	return server + "/db/" + url.PathEscape(database)
}

func (t *httpClientTransport) send(client *http.Client, requestURL string, req []byte) ([]byte, error) {
	// Create the request
	httpRequest, err := http.NewRequest(http.MethodPost, requestURL, bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	httpRequest.Header.Set("Content-Type", "application/octet-stream")

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	// Read the response body
	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, err
	}

	// Check if the response status code is OK
	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %s: %s", httpResponse.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
