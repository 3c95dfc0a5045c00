// Package engine adapts Go's text/template to file-based template lookup.
//
// Templates reference each other with {{template "REF" .}} directives
// where REF is a file path: a leading "/" resolves against the lookup
// root, anything else against the referencing file's directory. Lookup
// loads the requested file plus its include closure into one template
// set. Include references are rewritten to their canonical root-relative
// form at parse time so the same partial loaded from two directories
// shares one name and relative references can never collide.
package engine

import (
	"fmt"
	"html"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/pageforge/pageforge/internal/deps"
	pferrors "github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/site"
	"github.com/pageforge/pageforge/internal/textio"
)

// directiveRef captures an include directive up to its reference string,
// so the reference can be rewritten in place.
var directiveRef = regexp.MustCompile(`(\{\{-?\s*template\s+)"([^"]*)"`)

// PageInfo is the page-local half of a render context.
type PageInfo struct {
	Name string // template path relative to the root
	Dest string // destination path relative to the root
	Dir  string // directory containing the template, relative to the root
	Root string // relative prefix from the destination back to the root, e.g. "../.."
}

// Context is the immutable data passed into one render: the site-wide
// value tree plus page-local fields.
type Context struct {
	Site site.Values
	Page PageInfo
}

// Renderable is one looked-up template, ready to execute.
type Renderable interface {
	// Render executes the template. A failure is reported as a
	// *errors.RenderError so callers can distinguish engine failures
	// from infrastructure ones.
	Render(ctx Context) (string, error)
}

// Engine looks templates up by root-relative name and produces
// diagnostic pages for failed renders.
type Engine interface {
	Lookup(relName string) (Renderable, error)
	DiagnosticPage(relName string, err error) string
}

// FileEngine is the production Engine: templates are files under Root.
type FileEngine struct {
	Root     string
	resolver *deps.Resolver
}

// New returns a FileEngine rooted at root, sharing the given resolver for
// include extraction.
func New(root string, resolver *deps.Resolver) *FileEngine {
	return &FileEngine{Root: root, resolver: resolver}
}

// Lookup loads the template at relName (relative to Root) and its include
// closure. Parse problems in any file of the closure surface as a
// *errors.RenderError.
func (e *FileEngine) Lookup(relName string) (Renderable, error) {
	abs := filepath.Join(e.Root, filepath.FromSlash(relName))
	mainName := e.resolver.Canonical(abs)

	root := template.New(mainName)

	// Visited-set BFS over the include relation; cycles are legal in
	// source (mutual includes) and terminate here by deduplication.
	loaded := map[string]bool{}
	frontier := []string{abs}
	for len(frontier) > 0 {
		var next []string
		for _, p := range frontier {
			name := e.resolver.Canonical(p)
			if loaded[name] {
				continue
			}
			loaded[name] = true

			text, err := textio.ReadFile(p)
			if err != nil {
				return nil, pferrors.NewRenderError(relName,
					fmt.Errorf("loading %s: %w", name, err))
			}

			t := root.New(name)
			if _, err := t.Parse(e.canonicalize(p, text)); err != nil {
				return nil, pferrors.NewRenderError(relName, err)
			}

			for _, dep := range e.includes(p, text) {
				if !loaded[e.resolver.Canonical(dep)] {
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}

	return &fileTemplate{name: relName, main: mainName, tmpl: root}, nil
}

// canonicalize rewrites every include reference in text to its canonical
// root-relative name so references stay consistent across the set.
func (e *FileEngine) canonicalize(absPath, text string) string {
	dir := filepath.Dir(absPath)
	return directiveRef.ReplaceAllStringFunc(text, func(m string) string {
		sub := directiveRef.FindStringSubmatch(m)
		return sub[1] + `"` + e.resolver.Canonical(e.resolveRef(dir, sub[2])) + `"`
	})
}

// includes returns the absolute path of every include reference in text.
// Staleness scanning counts only the first directive per line; rendering
// must load every referenced template, so all matches count here.
func (e *FileEngine) includes(absPath, text string) []string {
	dir := filepath.Dir(absPath)
	var paths []string
	for _, m := range directiveRef.FindAllStringSubmatch(text, -1) {
		paths = append(paths, e.resolveRef(dir, m[2]))
	}
	return paths
}

// resolveRef maps a directive reference to an absolute path: a leading
// "/" resolves against Root, anything else against the referencing
// file's directory.
func (e *FileEngine) resolveRef(dir, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return filepath.Join(e.Root, strings.TrimLeft(ref, "/"))
	}
	return filepath.Clean(filepath.Join(dir, ref))
}

type fileTemplate struct {
	name string // relative name as requested
	main string // canonical name inside the template set
	tmpl *template.Template
}

func (t *fileTemplate) Render(ctx Context) (string, error) {
	var sb strings.Builder
	if err := t.tmpl.ExecuteTemplate(&sb, t.main, ctx); err != nil {
		return "", pferrors.NewRenderError(t.name, err)
	}
	return sb.String(), nil
}

// DiagnosticPage renders a small HTML page describing a failed render, so
// a browser preview of the destination surfaces the failure in place.
func (e *FileEngine) DiagnosticPage(relName string, err error) string {
	return fmt.Sprintf(diagnosticHTML,
		html.EscapeString(path.Base(relName)),
		html.EscapeString(relName),
		html.EscapeString(err.Error()))
}

const diagnosticHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Render error: %s</title>
<style>
body { font-family: monospace; margin: 2em; background: #fff6f6; }
h1 { color: #b00020; font-size: 1.2em; }
pre { background: #fff; border: 1px solid #e0b4b4; padding: 1em; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>Failed to render %s</h1>
<pre>%s</pre>
</body>
</html>
`
