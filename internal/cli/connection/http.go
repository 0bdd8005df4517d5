package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/imrelay/internal/infra/buildinfo"
)

// HTTPClient talks to the relay's metrics listener.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// Health is the decoded /healthz reply.
type Health struct {
	Healthy bool   `json:"healthy" yaml:"healthy"`
	Status  string `json:"status" yaml:"status"`
	Time    string `json:"time" yaml:"time"`
}

// NewHTTPClient accepts "host:port" or a full URL.
func NewHTTPClient(server string) *HTTPClient {
	base := strings.TrimRight(server, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &HTTPClient{
		baseURL: base,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get issues a GET for path and decodes a JSON body into out. Statuses
// listed in accept are decoded like 200; any other status of 400 or more
// is an error carrying the server's code when it sent one.
func (c *HTTPClient) Get(ctx context.Context, path string, out any, accept ...int) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "imrelay-cli/"+buildinfo.Get().Version)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && !accepted(resp.StatusCode, accept) {
		return resp.StatusCode, statusError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func accepted(code int, accept []int) bool {
	for _, a := range accept {
		if a == code {
			return true
		}
	}
	return false
}

func statusError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return fmt.Errorf("[%s] %s", body.Code, body.Message)
	}
	return fmt.Errorf("request failed: %s", resp.Status)
}

// Health queries /healthz. A 503 reply is a valid, unhealthy answer.
func (c *HTTPClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	code, err := c.Get(ctx, "/healthz", &h, http.StatusServiceUnavailable)
	if err != nil {
		return nil, err
	}
	h.Healthy = code == http.StatusOK
	return &h, nil
}
