// Package lmstudio checks that a local LM Studio server is reachable, lists
// the models it serves and fetches a missing model through the lms CLI.
package lmstudio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jxmullins/lmsready/internal/config"
	"github.com/jxmullins/lmsready/internal/version"
)

const (
	// ConnectTimeout bounds the TCP connect phase only. Requests have no
	// overall deadline.
	ConnectTimeout = 5 * time.Second

	// MaxResponseSize is the largest /models body ListModels accepts.
	MaxResponseSize = 10 * 1024 * 1024

	opHealth     = "health"
	opListModels = "list_models"
)

// Client talks to the OpenAI-compatible API of a local LM Studio server.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:1234/v1". It does not contact the server.
func NewClient(baseURL string) *Client {
	return &Client{
		client:  newHTTPClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewClientFromConfig creates a client for the built-in LM Studio provider
// and verifies the server responds before returning it.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no configuration", ErrConfigurationMissing)
	}

	provider, ok := cfg.GetProvider(config.LMStudioProviderID)
	if !ok {
		return nil, fmt.Errorf("%w: built-in provider %s not found", ErrConfigurationMissing, config.LMStudioProviderID)
	}
	if provider.BaseURL == "" {
		return nil, fmt.Errorf("%w: provider %s has no base_url", ErrConfigurationMissing, config.LMStudioProviderID)
	}

	c := NewClient(provider.BaseURL)
	if err := c.CheckHealth(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &http.Client{Transport: transport}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) modelsURL() string {
	return c.baseURL + "/models"
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "lmsready/"+version.Version)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return resp, nil
}

// CheckHealth verifies the server answers GET /models with a 2xx status.
// The body is ignored.
func (c *Client) CheckHealth(ctx context.Context) error {
	url := c.modelsURL()
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		_ = resp.Body.Close()
	}()

	if !isSuccess(resp.StatusCode) {
		return &ServerError{URL: url, Op: opHealth, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return nil
}

// ListModels returns the IDs of the models the server reports, in order.
// Entries without a string "id" are skipped.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	url := c.modelsURL()
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, &ServerError{URL: url, Op: opListModels, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("reading response body from %s: %w", url, err)}
	}
	if len(body) > MaxResponseSize {
		return nil, &MalformedResponseError{Err: fmt.Errorf("response exceeds %d MiB", MaxResponseSize>>20)}
	}

	return parseModelIDs(body)
}

func parseModelIDs(body []byte) ([]string, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{Field: "data", Err: fmt.Errorf("top-level value is %T, not an object", payload)}
	}

	entries, ok := obj["data"].([]any)
	if !ok {
		return nil, &MalformedResponseError{Field: "data", Err: fmt.Errorf("field is %T, not an array", obj["data"])}
	}

	models := make([]string, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := obj["id"].(string); ok {
			models = append(models, id)
		}
	}

	return models, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
