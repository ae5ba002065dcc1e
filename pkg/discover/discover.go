// Package discover drives dependency discovery over a tree of source files.
//
// Starting from one root file, the driver repeatedly reads file content,
// extracts module references, resolves them to paths, and expands the graph
// until no new reachable file remains. Reads and reference extraction for
// different files run concurrently on a bounded worker pool; every graph
// mutation is funneled through a single collector goroutine, so two workers
// discovering the same key still produce exactly one node.
package discover

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/restitch/restitch/pkg/errors"
	"github.com/restitch/restitch/pkg/extract"
	"github.com/restitch/restitch/pkg/graph"
	"github.com/restitch/restitch/pkg/observability"
	"github.com/restitch/restitch/pkg/resolve"
)

// Defaults applied by Options.withDefaults.
const (
	DefaultWorkers  = 8
	DefaultMaxDepth = 10
	DefaultMaxNodes = 5000
)

// FileReader is the filesystem collaborator. Implementations must honor
// context cancellation.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// OSReader reads files from the local filesystem with an optional per-read
// timeout. The zero value reads without a deadline.
type OSReader struct {
	Timeout time.Duration
}

// ReadFile reads the file at path, bounded by the reader's timeout and the
// caller's context.
func (r OSReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	type readResult struct {
		data []byte
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		data, err := os.ReadFile(path)
		ch <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.data, res.err
	}
}

// Options configures one discovery run.
type Options struct {
	// Workers bounds the read/extract worker pool.
	Workers int
	// MaxDepth bounds reference-chain depth from the root. Nodes past the
	// limit are created but not expanded.
	MaxDepth int
	// MaxNodes bounds expansion; once reached, no further nodes are enqueued.
	MaxNodes int
	// Logger receives per-node progress. Defaults to a discarding logger.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Driver orchestrates discovery over a resolver and a file reader. The
// resolver and reader are externally owned; their lifetime must cover the
// run.
type Driver struct {
	resolver *resolve.Resolver
	reader   FileReader
}

// NewDriver creates a driver. If reader is nil, an OSReader without timeout
// is used.
func NewDriver(resolver *resolve.Resolver, reader FileReader) *Driver {
	if reader == nil {
		reader = OSReader{}
	}
	return &Driver{resolver: resolver, reader: reader}
}

// Run discovers all files reachable from rootPath and returns the built
// graph. Failures are node-local and non-fatal with one exception: if the
// root file itself cannot be read, no graph can be built and the run aborts
// with ErrCodeRootUnreadable. On cancellation the partially built graph is
// discarded.
func (d *Driver) Run(ctx context.Context, rootPath string, opts Options) (*graph.Graph, error) {
	rootKey, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "canonicalize root %s", rootPath)
	}
	rootKey = filepath.Clean(rootKey)

	c := &crawler{
		ctx:      ctx,
		opts:     opts.withDefaults(),
		resolver: d.resolver,
		reader:   d.reader,
		g:        graph.New(),
		visited:  make(map[string]bool),
	}
	c.jobs = make(chan job, c.opts.Workers*2)
	c.results = make(chan result, c.opts.Workers*2)
	return c.run(rootKey)
}

type job struct {
	key   string
	depth int
}

type result struct {
	job
	content []byte
	refs    []extract.Reference
	err     error
}

type crawler struct {
	ctx      context.Context
	opts     Options
	resolver *resolve.Resolver
	reader   FileReader

	g *graph.Graph

	jobs    chan job
	results chan result
	wg      sync.WaitGroup
	senders sync.WaitGroup

	mu      sync.Mutex
	visited map[string]bool
	pending int64
}

func (c *crawler) run(root string) (*graph.Graph, error) {
	for range c.opts.Workers {
		c.wg.Add(1)
		go c.worker()
	}

	var err error
	if _, err = c.g.Add(root); err == nil {
		c.enqueue(job{key: root})
		err = c.collect(root)
	}

	// Workers keep draining until jobs is closed, which must not happen
	// while any enqueue goroutine could still send.
	c.senders.Wait()
	close(c.jobs)
	c.wg.Wait()

	if err != nil {
		return nil, err
	}
	return c.g, nil
}

func (c *crawler) worker() {
	defer c.wg.Done()
	for j := range c.jobs {
		if c.ctx.Err() != nil {
			atomic.AddInt64(&c.pending, -1)
			continue
		}
		content, err := c.reader.ReadFile(c.ctx, j.key)
		r := result{job: j, content: content, err: err}
		if err == nil {
			r.refs = extract.Scan(string(content))
		}
		c.results <- r
	}
}

// enqueue marks the key visited and schedules a read. Called only from the
// collector goroutine, but the visited set is mutex-guarded so future
// callers cannot race it.
func (c *crawler) enqueue(j job) bool {
	c.mu.Lock()
	if c.visited[j.key] {
		c.mu.Unlock()
		return false
	}
	c.visited[j.key] = true
	c.mu.Unlock()

	if n, ok := c.g.Node(j.key); ok {
		n.State = graph.StateReading
	}
	atomic.AddInt64(&c.pending, 1)

	c.senders.Add(1)
	go func() {
		defer c.senders.Done()
		select {
		case c.jobs <- j:
		case <-c.ctx.Done():
		}
	}()
	return true
}

// collect is the single writer: it drains worker results and applies every
// graph mutation in one goroutine.
func (c *crawler) collect(root string) error {
	for {
		select {
		case r := <-c.results:
			if err := c.handle(r, root); err != nil {
				return err
			}
			if atomic.AddInt64(&c.pending, -1) == 0 {
				return nil
			}
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}

func (c *crawler) handle(r result, root string) error {
	if r.err != nil {
		if r.key == root {
			return errors.Wrap(errors.ErrCodeRootUnreadable, r.err, "read root file %s", root)
		}
		c.opts.Logger.Warn("read failed", "file", r.key, "err", r.err)
		_ = c.g.MarkError(r.key, errors.Wrap(errors.ErrCodeReadError, r.err, "read %s", r.key))
		return nil
	}

	node, ok := c.g.Node(r.key)
	if !ok {
		return errors.New(errors.ErrCodeInternal, "result for unknown node %s", r.key)
	}
	node.Content = string(r.content)
	node.RawReferences = extract.Identifiers(r.refs)
	node.DynamicCount = extract.Count(r.refs, extract.KindDynamic)
	node.MalformedCount = extract.Count(r.refs, extract.KindMalformed)

	c.expand(node, r.depth)
	node.State = graph.StateResolved
	observability.Discovery().OnNodeResolved(c.ctx, r.key, len(node.RawReferences), len(node.Unresolved))

	c.opts.Logger.Debug("resolved",
		"file", r.key,
		"refs", len(node.RawReferences),
		"unresolved", len(node.Unresolved),
		"dynamic", node.DynamicCount)
	return nil
}

// expand resolves the node's references, adds edges, and schedules any
// newly reachable files. Missing dependencies never block the node itself:
// it still ends up StateResolved with unresolved entries recorded.
func (c *crawler) expand(node *graph.Node, depth int) {
	unresolvedSeen := make(map[string]bool)

	for _, id := range node.RawReferences {
		if err := errors.ValidateIdentifier(id); err != nil {
			node.MalformedCount++
			c.opts.Logger.Warn("skipping unsafe identifier", "file", node.Key, "identifier", id)
			continue
		}

		res := c.resolver.Resolve(id)
		if !res.Found {
			if !unresolvedSeen[id] {
				unresolvedSeen[id] = true
				node.Unresolved = append(node.Unresolved, id)
				c.opts.Logger.Debug("unresolved reference", "file", node.Key, "identifier", id)
			}
			continue
		}

		if _, err := c.g.AddEdge(node.Key, res.Path); err != nil {
			c.opts.Logger.Warn("edge rejected", "from", node.Key, "to", res.Path, "err", err)
			continue
		}

		if depth >= c.opts.MaxDepth || c.g.NodeCount() > c.opts.MaxNodes {
			continue
		}
		c.enqueue(job{key: res.Path, depth: depth + 1})
	}
}
