package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/pageforge/internal/deps"
	pferrors "github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/site"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newEngine(t *testing.T, root string) *FileEngine {
	t.Helper()
	return New(root, deps.NewResolver(root, logging.NewNop()))
}

func render(t *testing.T, e *FileEngine, name string, ctx Context) (string, error) {
	t.Helper()
	tmpl, err := e.Lookup(name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx)
}

func TestRenderPlainTemplate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html.tmpl"),
		`<h1>{{.Site.Get "title"}}</h1><p>{{.Page.Name}}</p>`)

	out, err := render(t, newEngine(t, root), "index.html.tmpl", Context{
		Site: site.Values{"title": "Home"},
		Page: PageInfo{Name: "index.html.tmpl"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Home</h1><p>index.html.tmpl</p>", out)
}

func TestRenderWithIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "shared", "head.html"), `<head>{{.Page.Name}}</head>`)
	writeFile(t, filepath.Join(root, "blog", "nav.html"), `<nav>blog</nav>`)
	writeFile(t, filepath.Join(root, "blog", "post.html.tmpl"),
		`{{template "/shared/head.html" .}}{{template "nav.html" .}}<p>post</p>`)

	out, err := render(t, newEngine(t, root), "blog/post.html.tmpl", Context{
		Page: PageInfo{Name: "blog/post.html.tmpl"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<head>blog/post.html.tmpl</head><nav>blog</nav><p>post</p>", out)
}

func TestRenderMultipleIncludesOnOneLine(t *testing.T) {
	// Staleness scanning only counts the first directive per line, but
	// rendering must load every include on the line.
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.html"), "A")
	writeFile(t, filepath.Join(root, "b.html"), "B")
	writeFile(t, filepath.Join(root, "page.tmpl"),
		`{{template "a.html" .}} {{template "b.html" .}}`)

	out, err := render(t, newEngine(t, root), "page.tmpl", Context{})
	require.NoError(t, err)
	assert.Equal(t, "A B", out)
}

func TestRenderTransitiveIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.tmpl"), `A[{{template "b.html" .}}]`)
	writeFile(t, filepath.Join(root, "b.html"), `B[{{template "c.html" .}}]`)
	writeFile(t, filepath.Join(root, "c.html"), `C`)

	out, err := render(t, newEngine(t, root), "a.tmpl", Context{})
	require.NoError(t, err)
	assert.Equal(t, "A[B[C]]", out)
}

func TestRenderSameNamePartialsInDifferentDirs(t *testing.T) {
	// Two directories each carry a "part.html"; canonical root-relative
	// names keep them distinct inside one template set.
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x", "part.html"), "X")
	writeFile(t, filepath.Join(root, "y", "part.html"), "Y")
	writeFile(t, filepath.Join(root, "page.tmpl"),
		`{{template "/x/part.html" .}}{{template "/y/part.html" .}}`)
	writeFile(t, filepath.Join(root, "x", "page.tmpl"), `{{template "part.html" .}}`)

	e := newEngine(t, root)

	out, err := render(t, e, "page.tmpl", Context{})
	require.NoError(t, err)
	assert.Equal(t, "XY", out)

	out, err = render(t, e, "x/page.tmpl", Context{})
	require.NoError(t, err)
	assert.Equal(t, "X", out)
}

func TestLookupMissingTemplate(t *testing.T) {
	_, err := newEngine(t, t.TempDir()).Lookup("gone.tmpl")
	require.Error(t, err)
	assert.True(t, pferrors.IsRenderError(err))
}

func TestLookupMissingInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "page.tmpl"), `{{template "gone.html" .}}`)

	_, err := newEngine(t, root).Lookup("page.tmpl")
	require.Error(t, err)
	assert.True(t, pferrors.IsRenderError(err))
}

func TestRenderExecutionFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "page.tmpl"), `{{.Page.Missing.Field}}`)

	_, err := render(t, newEngine(t, root), "page.tmpl", Context{})
	require.Error(t, err)
	assert.True(t, pferrors.IsRenderError(err))
}

func TestLookupParseFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "page.tmpl"), `{{if}}broken`)

	_, err := newEngine(t, root).Lookup("page.tmpl")
	require.Error(t, err)
	assert.True(t, pferrors.IsRenderError(err))
}

func TestMutualIncludesTerminateAtLookup(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.tmpl"), `{{template "y.inc" .}}`)
	writeFile(t, filepath.Join(root, "y.inc"), `{{template "x.tmpl" .}}`)

	// Lookup must terminate despite the cycle; execution of a cyclic
	// include recurses at render time and is the template author's bug,
	// so only Lookup is exercised here.
	_, err := newEngine(t, root).Lookup("x.tmpl")
	require.NoError(t, err)
}

func TestDiagnosticPage(t *testing.T) {
	e := newEngine(t, t.TempDir())
	page := e.DiagnosticPage("blog/post.tmpl", assert.AnError)

	assert.Contains(t, page, "blog/post.tmpl")
	assert.Contains(t, page, assert.AnError.Error())
	assert.Contains(t, page, "<!DOCTYPE html>")
}

func TestDiagnosticPageEscapesHTML(t *testing.T) {
	e := newEngine(t, t.TempDir())
	page := e.DiagnosticPage("<script>.tmpl", assert.AnError)
	assert.NotContains(t, page, "<script>.tmpl")
	assert.Contains(t, page, "&lt;script&gt;.tmpl")
}
