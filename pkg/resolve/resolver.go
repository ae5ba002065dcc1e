// Package resolve converts logical module identifiers into filesystem paths.
//
// A logical identifier like "luci.controller.network" maps to a relative
// path by replacing the dot separator with the directory delimiter and
// appending a source-file extension. The resolver probes that path under an
// ordered list of search roots and returns the first existing file.
//
// Resolution is a pure function of identifier, root order, extension order,
// and the filesystem snapshot: ties are broken by configured root priority,
// never alphabetically, and repeated lookups go through an explicit LRU
// cache owned by the resolver instance. The cache's lifetime is one
// discovery run; there is no process-wide state.
package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the resolved-path cache. Discovery touches each
// identifier a handful of times, so a few thousand entries covers even
// large firmware trees.
const DefaultCacheSize = 4096

// ErrNoRoots is returned by [New] when no search root is configured.
var ErrNoRoots = errors.New("at least one search root is required")

// Result is the outcome of resolving one identifier.
type Result struct {
	// Path is the canonical absolute path of the matched file.
	Path string
	// Found reports whether any root yielded a match. An unresolved
	// identifier is not an error; the caller records it and continues.
	Found bool
}

// Resolver maps logical identifiers to file paths under configured roots.
// It is safe for concurrent use.
type Resolver struct {
	roots      []string
	extensions []string
	stat       func(string) (os.FileInfo, error)
	cache      *lru.Cache[string, Result]
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStat replaces the filesystem probe, primarily for tests.
func WithStat(stat func(string) (os.FileInfo, error)) Option {
	return func(r *Resolver) { r.stat = stat }
}

// WithCacheSize overrides the resolved-path cache capacity.
func WithCacheSize(n int) Option {
	return func(r *Resolver) {
		if c, err := lru.New[string, Result](n); err == nil {
			r.cache = c
		}
	}
}

// New creates a resolver for the given search roots and extensions.
// Roots are tried in the given priority order; within a root, extensions
// are tried in order. Roots are canonicalized once at construction.
func New(roots []string, extensions []string, opts ...Option) (*Resolver, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}
	if len(extensions) == 0 {
		extensions = []string{".lua"}
	}

	abs := make([]string, len(roots))
	for i, root := range roots {
		a, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		abs[i] = filepath.Clean(a)
	}

	cache, err := lru.New[string, Result](DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		roots:      abs,
		extensions: extensions,
		stat:       os.Stat,
		cache:      cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Roots returns the canonicalized search roots in priority order.
func (r *Resolver) Roots() []string {
	out := make([]string, len(r.roots))
	copy(out, r.roots)
	return out
}

// Resolve maps the identifier to the first existing file under the search
// roots. The result is cached; identical calls within one run return the
// cached value without touching the filesystem.
func (r *Resolver) Resolve(identifier string) Result {
	if res, ok := r.cache.Get(identifier); ok {
		return res
	}

	res := r.probe(identifier)
	r.cache.Add(identifier, res)
	return res
}

func (r *Resolver) probe(identifier string) Result {
	rel := filepath.FromSlash(strings.ReplaceAll(identifier, ".", "/"))
	for _, root := range r.roots {
		for _, ext := range r.extensions {
			candidate := filepath.Join(root, rel+ext)
			info, err := r.stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			return Result{Path: filepath.Clean(candidate), Found: true}
		}
	}
	return Result{}
}

// RelativeTo returns the path of key relative to the first root that
// contains it, or the base name if no root does. Used when mirroring the
// source tree into an output directory.
func (r *Resolver) RelativeTo(key string) string {
	for _, root := range r.roots {
		if rel, err := filepath.Rel(root, key); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.Base(key)
}
