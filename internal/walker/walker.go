// Package walker enumerates template files under a root directory.
package walker

import (
	"iter"
	"os"
	"path/filepath"
	"sort"

	pferrors "github.com/pageforge/pageforge/internal/errors"
)

// Walker produces the template files under Root whose names match
// "*"+Ext. A directory whose own name matches the pattern marks a
// template-owned subtree (for example a directory of partials named
// "layout.tmpl") and is skipped entirely, so nothing inside it is ever
// listed, rendered, or cleaned.
type Walker struct {
	Root string // absolute scan root
	Ext  string // template suffix, e.g. ".tmpl"
}

// New returns a Walker over root for the given template extension.
func New(root, ext string) *Walker {
	return &Walker{Root: root, Ext: ext}
}

func (w *Walker) matches(name string) bool {
	ok, _ := filepath.Match("*"+w.Ext, name)
	return ok
}

// List returns a lazy, restartable sequence of absolute template paths.
// Entries within each directory are visited in sorted order so the
// sequence is deterministic on every platform. A directory-listing
// failure yields a *errors.TraversalError and ends the sequence; such
// failures are fatal to the enclosing run.
func (w *Walker) List() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		w.walk(w.Root, yield)
	}
}

func (w *Walker) walk(dir string, yield func(string, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return yield("", pferrors.NewTraversalError(dir, err))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if w.matches(name) {
				continue // template-owned subtree, not processed
			}
			if !w.walk(path, yield) {
				return false
			}
			continue
		}

		// A file named exactly the extension has an empty stem, so its
		// destination would be the template itself. Never listed.
		if w.matches(name) && name != w.Ext {
			if !yield(path, nil) {
				return false
			}
		}
	}
	return true
}

// Destination returns the output path for a template path: the template
// extension stripped, if present.
func (w *Walker) Destination(path string) string {
	return StripExt(path, w.Ext)
}

// StripExt removes ext from the end of path, if present.
func StripExt(path, ext string) string {
	if ext != "" && len(path) > len(ext) && path[len(path)-len(ext):] == ext {
		return path[:len(path)-len(ext)]
	}
	return path
}
