package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"trustmed/core"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	defaultHTTPTimeout = 60 * time.Second
	maxErrorBody       = 512
)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *core.Logger
}

// Client talks to the TrustMedAI backend (/chat and /tts).
type Client struct {
	baseURL string
	http    *http.Client
	logger  *core.Logger
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		logger:  logger.With(map[string]interface{}{"component": "backend"}),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// postJSON sends body to path and decodes a 2xx response into out. Any other
// status, or a failed round trip, comes back as *core.ServiceError.
func (c *Client) postJSON(ctx context.Context, service, path string, body, out any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: %s: encode request: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("backend: %s: build request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &core.ServiceError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.ServiceError{Service: service, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug("backend response", "service", service, "status", resp.StatusCode, "elapsed_ms", time.Since(started).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		svcErr := &core.ServiceError{Service: service, StatusCode: resp.StatusCode}
		if detail := strings.TrimSpace(string(data)); detail != "" {
			svcErr.Err = errors.New(truncate(detail, maxErrorBody))
		}
		return svcErr
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backend: %s: decode response: %w: %w", service, core.ErrMalformedResponse, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
