// Package restore turns decompiled source files back into readable code.
//
// Restoration walks the dependency graph in linearized order, so every file
// is restored after the files it requires. The restored dependencies are
// handed to the model as context, which is the whole point of the ordering:
// the model sees real signatures instead of guessing them.
package restore

import (
	"context"

	"github.com/restitch/restitch/pkg/graph"
	"github.com/restitch/restitch/pkg/resolve"
)

// Dependency is a restored dependency passed to the model as context.
type Dependency struct {
	RelPath string
	Content string
}

// Request is one file to restore.
type Request struct {
	// Key is the canonical absolute path of the source file.
	Key string
	// RelPath is the path relative to its search root, used for output
	// placement and in the prompt.
	RelPath string
	// Content is the decompiled file text.
	Content string
	// Dependencies holds the already-restored files this one requires.
	Dependencies []Dependency
}

// Restorer produces restored source text for a request.
type Restorer interface {
	// Restore returns the restored text for the request.
	Restore(ctx context.Context, req Request) (string, error)
	// Model names the underlying model, used in cache keys and reports.
	Model() string
	// Close releases client resources.
	Close() error
}

// Requests builds restoration requests for the given keys, in the given
// order. Nodes without content (never read, or read failed) are skipped:
// there is nothing to restore. Dependency context is left empty; the caller
// fills it in as restoration progresses.
func Requests(s *graph.Snapshot, order []string, r *resolve.Resolver) []Request {
	reqs := make([]Request, 0, len(order))
	for _, key := range order {
		n, ok := s.Node(key)
		if !ok || n.State != graph.StateResolved {
			continue
		}
		reqs = append(reqs, Request{
			Key:     key,
			RelPath: r.RelativeTo(key),
			Content: n.Content,
		})
	}
	return reqs
}
