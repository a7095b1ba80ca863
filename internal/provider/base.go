package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// connectTimeout bounds dialing only; generation can take arbitrarily long.
const connectTimeout = 5 * time.Second

// BaseProvider provides common functionality for HTTP-based providers.
type BaseProvider struct {
	name      string
	client    *http.Client
	baseURL   string
	model     string
	maxTokens int
}

// BaseConfig holds configuration for creating a BaseProvider.
type BaseConfig struct {
	Name      string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewBaseProvider creates a new base provider with common configuration.
func NewBaseProvider(cfg BaseConfig) *BaseProvider {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &BaseProvider{
		name:      cfg.Name,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		maxTokens: maxTokens,
		client:    &http.Client{Transport: transport},
	}
}

// Name returns the provider's identifier.
func (b *BaseProvider) Name() string {
	return b.name
}

// GetModel returns the current model.
func (b *BaseProvider) GetModel() string {
	return b.model
}

// BaseURL returns the endpoint requests are sent to.
func (b *BaseProvider) BaseURL() string {
	return b.baseURL
}

// DoRequest performs an HTTP request with common error handling.
func (b *BaseProvider) DoRequest(ctx context.Context, method, url string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// ReadSSEStream reads a Server-Sent Events stream and sends chunks to the channel.
// The parseFunc extracts content from each SSE data line.
func (b *BaseProvider) ReadSSEStream(ctx context.Context, resp *http.Response, out chan<- StreamChunk, parseFunc func([]byte) (string, bool, error)) {
	defer resp.Body.Close()
	defer close(out)

	send := func(chunk StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()

		// Skip empty lines and comments
		if len(line) == 0 || line[0] == ':' {
			continue
		}

		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		data = bytes.TrimSpace(data)

		if bytes.Equal(data, []byte("[DONE]")) {
			send(StreamChunk{Done: true})
			return
		}

		content, done, err := parseFunc(data)
		if err != nil {
			send(StreamChunk{Error: err})
			return
		}

		if content != "" {
			if !send(StreamChunk{Content: content}) {
				return
			}
		}

		if done {
			send(StreamChunk{Done: true})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		send(StreamChunk{Error: fmt.Errorf("reading stream: %w", err)})
		return
	}

	// Stream ended without a terminator.
	send(StreamChunk{Done: true})
}
