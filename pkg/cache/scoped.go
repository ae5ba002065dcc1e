package cache

// ScopedKeyer wraps a Keyer with a prefix so separate projects sharing one
// backend (a common Redis, say) cannot collide.
//
// Example usage:
//
//	// Per-project keys on a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "proj:openwrt:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// RestoreKey generates a prefixed key for a restored file.
func (k *ScopedKeyer) RestoreKey(model, contentHash string) string {
	return k.prefix + k.inner.RestoreKey(model, contentHash)
}

// GraphKey generates a prefixed key for a dependency graph.
func (k *ScopedKeyer) GraphKey(root string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(root, opts)
}
