package deps

import (
	"os"
	"path/filepath"

	"github.com/pageforge/pageforge/internal/logging"
)

// DefaultMaxDepth bounds the dependency breadth-first search when no
// explicit depth is configured.
const DefaultMaxDepth = 5

// Evaluator computes the logical modification time of a template: the
// maximum whole-second modification time across the template and the
// part of its include closure reachable within MaxDepth BFS rounds.
// Truncating to seconds is deliberate; platforms disagree on sub-second
// mtime precision and the disagreement would otherwise show up as
// spurious staleness.
type Evaluator struct {
	Resolver *Resolver
	MaxDepth int
	log      logging.Logger
}

// NewEvaluator returns an Evaluator over resolver with the given BFS
// bound; maxDepth <= 0 selects DefaultMaxDepth.
func NewEvaluator(resolver *Resolver, maxDepth int, log logging.Logger) *Evaluator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Evaluator{
		Resolver: resolver,
		MaxDepth: maxDepth,
		log:      log.WithComponent("mtime"),
	}
}

// ModTime returns the truncated-to-seconds modification time of path, or
// 0 when the file does not exist.
func ModTime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

// LogicalModTime returns the latest modification time of the template at
// path and its dependency closure within MaxDepth+1 BFS rounds, or the
// sentinel 0 when the template itself does not exist (meaning: not
// comparable, treat as needing render).
//
// The per-path visited set lives only for the duration of one call; the
// dependency set or file existence may change between calls, so nothing
// is cached across computations.
func (e *Evaluator) LogicalModTime(path string) int64 {
	if _, err := os.Stat(path); err != nil {
		return 0
	}

	var max int64
	visited := make(map[string]struct{}) // per-computation, never reused
	frontier := map[string]struct{}{path: {}}
	truncated := false

	for round := 0; round <= e.MaxDepth; round++ {
		next := make(map[string]struct{})
		for dep := range frontier {
			visited[dep] = struct{}{}
			info, err := os.Stat(dep)
			if err != nil {
				continue // vanished between discovery and stat
			}
			if t := info.ModTime().Unix(); t > max {
				max = t
			}
			for d := range e.Resolver.Dependencies(dep) {
				if _, seen := visited[d]; !seen {
					next[d] = struct{}{}
				}
			}
		}

		if len(next) == 0 {
			return max
		}
		if round == e.MaxDepth {
			truncated = true
		}
		frontier = next
	}

	if truncated {
		// The depth bound cut the closure short: deeper dependencies do
		// not influence the result. Surfaced here so deep include chains
		// are diagnosable.
		e.log.Debug("dependency depth bound reached, deeper includes ignored",
			"template", filepath.Base(path), "depth", e.MaxDepth)
	}
	return max
}
