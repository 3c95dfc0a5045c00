// Package deps extracts include references from templates and computes
// logical modification times over the resulting dependency relation.
package deps

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	pferrors "github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/textio"
)

// directivePattern matches one include directive per line:
//
//	{{template "REF"}} or {{template "REF" .}}
//
// with optional whitespace trim markers. REF is the referenced file.
// Multi-line directives are not supported; only the first match on each
// line is considered.
var directivePattern = regexp.MustCompile(`\{\{-?\s*template\s+"([^"]*)"`)

// Resolver extracts the one-level include references of a template.
// References are resolved to absolute paths: a reference starting with a
// path separator resolves against Root, anything else against the
// referencing file's own directory. The resolver never recurses.
type Resolver struct {
	Root string
	log  logging.Logger
}

// NewResolver returns a Resolver rooted at root.
func NewResolver(root string, log logging.Logger) *Resolver {
	return &Resolver{Root: root, log: log.WithComponent("deps")}
}

// Dependencies returns the deduplicated set of absolute paths referenced
// by include directives in the template at path. A missing template
// yields an empty set rather than an error: partially cleaned trees are a
// normal state between runs. Other read failures are logged and likewise
// yield an empty set.
func (r *Resolver) Dependencies(path string) map[string]struct{} {
	paths := make(map[string]struct{})

	f, err := textio.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn("dependency scan failed", "error", pferrors.NewDependencyReadError(path, err))
		}
		return paths
	}
	defer f.Close()

	dir := filepath.Dir(path)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := directivePattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		paths[r.resolve(dir, m[1])] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		r.log.Warn("dependency scan failed", "error", pferrors.NewDependencyReadError(path, err))
	}

	return paths
}

// resolve maps a directive reference to an absolute path.
func (r *Resolver) resolve(fromDir, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return filepath.Join(r.Root, strings.TrimLeft(ref, "/"))
	}
	return filepath.Clean(filepath.Join(fromDir, ref))
}

// Canonical returns the root-relative form of an absolute dependency
// path, with a leading "/" and forward slashes. This is the collision-free
// name under which the engine registers each template.
func (r *Resolver) Canonical(abs string) string {
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil {
		return "/" + filepath.ToSlash(abs)
	}
	return "/" + filepath.ToSlash(rel)
}
