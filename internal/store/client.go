// Package store is the thin HTTP binding to the CMS collection-items API,
// with classified errors and a shared rate limiter.
package store

import (
	"context"
	"time"
)

// Item is the remote record surface the sync core cares about.
type Item struct {
	ID          string    `json:"id"`
	CreatedOn   time.Time `json:"createdOn"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Client is the capability surface consumed by the reconciliation engine.
type Client interface {
	// Create inserts a new collection item and returns its identifier.
	Create(ctx context.Context, payload map[string]any, draft bool) (*Item, error)
	// Update overwrites the item bound to id. Same payload, same target:
	// idempotent by construction.
	Update(ctx context.Context, id string, payload map[string]any, draft bool) (*Item, error)
	// Get fetches the item bound to id.
	Get(ctx context.Context, id string) (*Item, error)
}
