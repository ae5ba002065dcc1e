// Package pipeline provides the discover → linearize → restore pipeline.
//
// The pipeline ties the lower-level packages together so the CLI and any
// other entry point behave identically:
//
//  1. Discover: walk require() references from a root file into a graph
//  2. Linearize: order files so dependencies come before dependents,
//     collapsing cycles into groups
//  3. Restore: feed each file plus its restored dependencies to the model,
//     writing output that mirrors the source tree
//
// Restoration results are cached by content hash, so re-running a restore
// only pays for files that changed.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, restorer, logger)
//	opts := pipeline.Options{
//	    Root:        "/src/luci/main.lua",
//	    SearchRoots: []string{"/src/luci"},
//	    Restore:     true,
//	}
//	result, err := runner.Execute(ctx, opts)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/restitch/restitch/pkg/errors"
	"github.com/restitch/restitch/pkg/graph"
	"github.com/restitch/restitch/pkg/report"
)

// Defaults shared by CLI flags and Options validation.
const (
	DefaultWorkers     = 8
	DefaultMaxDepth    = 10
	DefaultMaxNodes    = 5000
	DefaultReadTimeout = 30 * time.Second
	DefaultOutputDir   = "restored"
)

// Options contains all configuration for one pipeline run.
type Options struct {
	// Root is the file discovery starts from.
	Root string
	// SearchRoots are the directories used to resolve identifiers, in
	// priority order. Defaults to the root file's directory.
	SearchRoots []string
	// Extensions are the file extensions probed per root, in priority order.
	Extensions []string

	Workers     int
	MaxDepth    int
	MaxNodes    int
	ReadTimeout time.Duration

	// Restore enables the restoration stage; without it the pipeline stops
	// after analysis.
	Restore   bool
	OutputDir string
	// Refresh bypasses cache reads; results are still written back.
	Refresh bool
	// CacheTTL bounds cached entries' lifetime. A nonzero TTL also enables
	// caching of discovery snapshots, which cannot observe later file edits;
	// zero limits caching to content-addressed restorations.
	CacheTTL time.Duration

	Logger *log.Logger
}

// ValidateAndSetDefaults checks required fields and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Root == "" {
		return errors.New(errors.ErrCodeInvalidInput, "root file is required")
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".lua.unluac", ".lua"}
	}
	return nil
}

// RestoredFile records one file written by the restoration stage.
type RestoredFile struct {
	Key        string
	RelPath    string
	OutputPath string
	FromCache  bool
}

// Stats collects timing and size information for one run.
type Stats struct {
	DiscoverTime time.Duration
	RestoreTime  time.Duration
	NodeCount    int
	EdgeCount    int
}

// CacheInfo reports restoration cache effectiveness.
type CacheInfo struct {
	RestoreHits   int
	RestoreMisses int
}

// Result is the complete output of one pipeline run.
type Result struct {
	Snapshot      *graph.Snapshot
	Linearization graph.Linearization
	Summary       *report.Summary
	Restored      []RestoredFile
	Stats         Stats
	CacheInfo     CacheInfo
}
