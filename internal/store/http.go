package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to a Webflow-style collection-items API:
//
//	POST  {base}/collections/{collection}/items
//	PATCH {base}/collections/{collection}/items/{id}
//	GET   {base}/collections/{collection}/items/{id}
//
// Requests carry a bearer token and JSON bodies; failures come back as
// *APIError classified from the response status.
type HTTPClient struct {
	base       string
	token      string
	collection string
	limiter    *Limiter
	http       *http.Client
}

// NewHTTPClient creates a client for one collection. The limiter is shared
// by every call; pass the same instance to every client hitting the same
// API account.
func NewHTTPClient(base, token, collection string, limiter *Limiter) *HTTPClient {
	return &HTTPClient{
		base:       strings.TrimRight(base, "/"),
		token:      token,
		collection: collection,
		limiter:    limiter,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

type itemRequest struct {
	IsDraft   bool           `json:"isDraft"`
	FieldData map[string]any `json:"fieldData"`
}

type itemResponse struct {
	ID          string    `json:"id"`
	CreatedOn   time.Time `json:"createdOn"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type errResponse struct {
	Message string `json:"message"`
}

// Create inserts a new collection item.
func (c *HTTPClient) Create(ctx context.Context, payload map[string]any, draft bool) (*Item, error) {
	url := fmt.Sprintf("%s/collections/%s/items", c.base, c.collection)
	return c.do(ctx, http.MethodPost, url, &itemRequest{IsDraft: draft, FieldData: payload})
}

// Update overwrites the item bound to id.
func (c *HTTPClient) Update(ctx context.Context, id string, payload map[string]any, draft bool) (*Item, error) {
	url := fmt.Sprintf("%s/collections/%s/items/%s", c.base, c.collection, id)
	return c.do(ctx, http.MethodPatch, url, &itemRequest{IsDraft: draft, FieldData: payload})
}

// Get fetches the item bound to id.
func (c *HTTPClient) Get(ctx context.Context, id string) (*Item, error) {
	url := fmt.Sprintf("%s/collections/%s/items/%s", c.base, c.collection, id)
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body *itemRequest) (*Item, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("store: wait for rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("store: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("store: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Network-level failures are transient as far as the engine
		// is concerned.
		return nil, &APIError{Kind: KindServerError, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.limiter.UpdateFromResponse(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errResponse
		msg := resp.Status
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(data, &eb) == nil && eb.Message != "" {
				msg = eb.Message
			}
		}
		return nil, &APIError{Kind: classify(resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}

	var ir itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("store: decode response: %w", err)
	}
	return &Item{ID: ir.ID, CreatedOn: ir.CreatedOn, LastUpdated: ir.LastUpdated}, nil
}

// Verify HTTPClient satisfies Client at compile time.
var _ Client = (*HTTPClient)(nil)
