// Package cache provides content-addressed caching for restoration results.
//
// The pipeline hashes each file's decompiled content and caches the restored
// output under that hash, so re-running a restore only pays for files whose
// content actually changed. Backends range from a local directory (the CLI
// default) to Redis for shared environments; NullCache disables caching
// entirely.
package cache

import (
	"context"
	"time"
)

// Cache is the storage backend interface. All backends are safe for
// concurrent use.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the pipeline's cacheable stages.
type Keyer interface {
	// RestoreKey generates a key for a restored file, derived from the
	// restorer model and the hash of the input content.
	RestoreKey(model, contentHash string) string

	// GraphKey generates a key for a discovered dependency graph, derived
	// from the root file and the discovery options that shaped it.
	GraphKey(root string, opts GraphKeyOpts) string
}

// GraphKeyOpts captures the discovery options that change graph shape.
// Two runs with different options must never share a cached graph.
type GraphKeyOpts struct {
	MaxDepth    int      `json:"max_depth"`
	MaxNodes    int      `json:"max_nodes"`
	Extensions  []string `json:"extensions"`
	SearchRoots []string `json:"search_roots"`
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// RestoreKey generates a key of the form restore:{model}:{contentHash}.
func (k *DefaultKeyer) RestoreKey(model, contentHash string) string {
	return "restore:" + model + ":" + contentHash
}

// GraphKey generates a key of the form graph:{hash(root, opts)}.
func (k *DefaultKeyer) GraphKey(root string, opts GraphKeyOpts) string {
	return hashKey("graph", root, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
