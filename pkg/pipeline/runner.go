package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/restitch/restitch/pkg/cache"
	"github.com/restitch/restitch/pkg/discover"
	"github.com/restitch/restitch/pkg/errors"
	"github.com/restitch/restitch/pkg/graph"
	"github.com/restitch/restitch/pkg/observability"
	"github.com/restitch/restitch/pkg/report"
	"github.com/restitch/restitch/pkg/resolve"
	"github.com/restitch/restitch/pkg/restore"
)

// Runner executes the pipeline with caching. It is stateless apart from its
// collaborators; one Runner can serve multiple runs.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Restorer restore.Restorer
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer gets
// the default scheme, and a nil restorer limits the pipeline to analysis.
func NewRunner(c cache.Cache, keyer cache.Keyer, restorer restore.Restorer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Restorer: restorer, Logger: logger}
}

// Execute runs the complete discover → linearize → restore pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}

	if len(opts.SearchRoots) == 0 {
		opts.SearchRoots = []string{filepath.Dir(opts.Root)}
	}
	resolver, err := resolve.New(opts.SearchRoots, opts.Extensions)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "configure resolver")
	}

	result := &Result{}

	// Stage 1: Discover
	graphKey := r.Keyer.GraphKey(opts.Root, cache.GraphKeyOpts{
		MaxDepth:    opts.MaxDepth,
		MaxNodes:    opts.MaxNodes,
		Extensions:  opts.Extensions,
		SearchRoots: opts.SearchRoots,
	})

	discoverStart := time.Now()
	observability.Discovery().OnRunStart(ctx, opts.Root)

	snap := r.loadSnapshot(ctx, opts, graphKey)
	if snap == nil {
		driver := discover.NewDriver(resolver, discover.OSReader{Timeout: opts.ReadTimeout})
		g, err := driver.Run(ctx, opts.Root, discover.Options{
			Workers:  opts.Workers,
			MaxDepth: opts.MaxDepth,
			MaxNodes: opts.MaxNodes,
			Logger:   opts.Logger,
		})
		if err != nil {
			observability.Discovery().OnRunComplete(ctx, opts.Root, nodeCount(g), time.Since(discoverStart), err)
			return nil, err
		}
		snap = g.Snapshot()
		r.storeSnapshot(ctx, opts, graphKey, snap)
	}
	result.Stats.DiscoverTime = time.Since(discoverStart)
	observability.Discovery().OnRunComplete(ctx, opts.Root, snap.NodeCount(), result.Stats.DiscoverTime, nil)

	result.Snapshot = snap
	result.Stats.NodeCount = result.Snapshot.NodeCount()
	result.Stats.EdgeCount = result.Snapshot.EdgeCount()

	// Stage 2: Linearize
	result.Linearization = graph.Linearize(result.Snapshot)
	result.Summary = report.Build(result.Snapshot, result.Linearization, opts.Root)

	opts.Logger.Info("discovered dependencies",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"cycles", len(result.Linearization.Cycles),
		"duration", result.Stats.DiscoverTime)

	if !opts.Restore {
		return result, nil
	}
	if r.Restorer == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "restoration requested but no restorer configured")
	}

	// Stage 3: Restore
	restoreStart := time.Now()
	if err := r.restoreAll(ctx, opts, resolver, result); err != nil {
		return nil, err
	}
	result.Stats.RestoreTime = time.Since(restoreStart)

	opts.Logger.Info("restored files",
		"count", len(result.Restored),
		"cache_hits", result.CacheInfo.RestoreHits,
		"duration", result.Stats.RestoreTime)

	return result, nil
}

// restoreAll restores every readable file in linearized order. Files inside
// a cycle group see only the members restored before them.
func (r *Runner) restoreAll(ctx context.Context, opts Options, resolver *resolve.Resolver, result *Result) error {
	writer := restore.NewWriter(opts.OutputDir)
	reqs := restore.Requests(result.Snapshot, result.Linearization.Order, resolver)

	restored := make(map[string]restore.Dependency, len(reqs))

	for _, req := range reqs {
		for _, dep := range result.Snapshot.Dependencies(req.Key) {
			if d, ok := restored[dep]; ok {
				req.Dependencies = append(req.Dependencies, d)
			}
		}

		content, hit, err := r.restoreOne(ctx, opts, req)
		if err != nil {
			return err
		}
		if hit {
			result.CacheInfo.RestoreHits++
		} else {
			result.CacheInfo.RestoreMisses++
		}

		out, err := writer.Write(req.RelPath, content)
		if err != nil {
			return err
		}

		restored[req.Key] = restore.Dependency{RelPath: req.RelPath, Content: content}
		result.Restored = append(result.Restored, RestoredFile{
			Key:        req.Key,
			RelPath:    req.RelPath,
			OutputPath: out,
			FromCache:  hit,
		})
	}
	return nil
}

// restoreOne returns restored content for one request, consulting the cache
// first. The key is derived from the model and the content hash, so a file
// whose decompiled text is unchanged hits regardless of path.
func (r *Runner) restoreOne(ctx context.Context, opts Options, req restore.Request) (string, bool, error) {
	cacheKey := r.Keyer.RestoreKey(r.Restorer.Model(), cache.Hash([]byte(req.Content)))

	start := time.Now()
	observability.Restore().OnRestoreStart(ctx, req.RelPath)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "restore")
			observability.Restore().OnRestoreComplete(ctx, req.RelPath, true, time.Since(start), nil)
			return string(data), true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "restore")
	}

	content, err := r.Restorer.Restore(ctx, req)
	observability.Restore().OnRestoreComplete(ctx, req.RelPath, false, time.Since(start), err)
	if err != nil {
		return "", false, err
	}

	if err := r.Cache.Set(ctx, cacheKey, []byte(content), opts.CacheTTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "restore", len(content))
	}
	return content, false, nil
}

// loadSnapshot returns a cached discovery snapshot, or nil when graph
// caching is off or nothing usable is stored. Snapshot caching is opt-in
// through CacheTTL: a cached graph cannot observe file edits, so its
// lifetime must be bounded.
func (r *Runner) loadSnapshot(ctx context.Context, opts Options, key string) *graph.Snapshot {
	if opts.CacheTTL <= 0 || opts.Refresh {
		return nil
	}
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		if snap, err := decodeSnapshot(data); err == nil {
			observability.Cache().OnCacheHit(ctx, "graph")
			return snap
		}
	}
	observability.Cache().OnCacheMiss(ctx, "graph")
	return nil
}

func (r *Runner) storeSnapshot(ctx context.Context, opts Options, key string, snap *graph.Snapshot) {
	if opts.CacheTTL <= 0 {
		return
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, opts.CacheTTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "graph", len(data))
	}
}

func nodeCount(g *graph.Graph) int {
	if g == nil {
		return 0
	}
	return g.NodeCount()
}
