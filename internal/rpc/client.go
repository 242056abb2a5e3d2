// Package rpc is the thin adapter to the external area store. The store
// owns the records; this client only fetches them and writes back accepted
// fixes. It is deliberately kept out of the validation and lint packages,
// which take and return in-memory values only.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/arealint/internal/model"
	"github.com/ppiankov/arealint/internal/worker"
)

const (
	maxRetries   = 3
	listPageSize = 500
)

// sleepFunc is the sleep used between retries (injectable for tests)
var sleepFunc = time.Sleep

// Client is a JSON-RPC 2.0 client for the area store
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *worker.Limiter
}

// NewClient creates a client for the given API base URL. The token is sent
// as a bearer credential on every call; pass "" for read-only public use.
func NewClient(cfg model.APIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		limiter:    worker.NewLimiter(cfg.RequestsPerS, cfg.Burst),
	}
}

// Error is a JSON-RPC error object returned by the store
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// GetArea fetches a single area by id
func (c *Client) GetArea(ctx context.Context, id string) (*model.AreaRecord, error) {
	var area model.AreaRecord
	if err := c.call(ctx, "get_area", map[string]any{"id": id}, &area); err != nil {
		return nil, err
	}
	return &area, nil
}

// ListAreas fetches the whole corpus, paging on the updated_at cursor
func (c *Client) ListAreas(ctx context.Context) ([]model.AreaRecord, error) {
	var all []model.AreaRecord
	cursor := ""
	for {
		params := map[string]any{"limit": listPageSize}
		if cursor != "" {
			params["updated_since"] = cursor
		}
		var page []model.AreaRecord
		if err := c.call(ctx, "get_areas", params, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		cursor = page[len(page)-1].UpdatedAt
	}
}

// SetAreaTag writes one tag value back to the store
func (c *Client) SetAreaTag(ctx context.Context, id, name string, value any) error {
	params := map[string]any{"id": id, "name": name, "value": value}
	return c.call(ctx, "set_area_tag", params, nil)
}

// SetAreaIcon uploads an icon image for an area. The store hosts it at the
// standard static location and updates the icon:square tag itself.
func (c *Client) SetAreaIcon(ctx context.Context, id, iconBase64, ext string) error {
	params := map[string]any{"id": id, "icon_base64": iconBase64, "icon_ext": ext}
	return c.call(ctx, "set_area_icon", params, nil)
}

// call executes one JSON-RPC request, retrying transient failures with
// exponential backoff. An error object in the response body is final and
// never retried.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	payload, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			sleepFunc(backoff)
		}
		if err := c.limiter.Wait(ctx, c.baseURL); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		retryable, err := c.doOnce(ctx, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("%s: %w", method, lastErr)
}

// doOnce performs a single HTTP round trip. The bool reports whether the
// failure is worth retrying.
func (c *Client) doOnce(ctx context.Context, payload []byte, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return true, fmt.Errorf("http %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("http %d", resp.StatusCode)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return false, decoded.Error
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return false, fmt.Errorf("decode result: %w", err)
		}
	}
	return false, nil
}
