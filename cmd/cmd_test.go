package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pageforge")
}

func TestRenderEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "shared", "head.html"), "<head>t</head>")
	writeFile(t, filepath.Join(root, "index.html.tmpl"),
		`{{template "/shared/head.html" .}}<body>hi</body>`)

	_, err := execute(t, root)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<head>t</head><body>hi</body>", string(data))
}

func TestRenderDryRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html.tmpl"), "content")

	t.Cleanup(func() { _ = rootCmd.Flags().Set("dry-run", "false") })

	_, err := execute(t, root, "--dry-run")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "index.html"))
}

func TestCleanCommand(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html.tmpl"), "content")
	writeFile(t, filepath.Join(root, "index.html"), "generated")
	writeFile(t, filepath.Join(root, "orphan.html"), "keep")

	_, err := execute(t, "clean", root)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "index.html"))
	assert.FileExists(t, filepath.Join(root, "orphan.html"))
}

func TestDepsCommand(t *testing.T) {
	root := t.TempDir()
	page := filepath.Join(root, "page.tmpl")
	writeFile(t, page, `{{template "inc.html" .}}`)
	writeFile(t, filepath.Join(root, "inc.html"), "partial")

	out, err := execute(t, "deps", "--root", root, page)
	require.NoError(t, err)

	assert.Contains(t, out, filepath.Join(root, "inc.html"))
	assert.Contains(t, out, "logical mtime:")
}

func TestDepsCommandMissingTemplate(t *testing.T) {
	root := t.TempDir()
	out, err := execute(t, "deps", "--root", root, filepath.Join(root, "gone.tmpl"))
	require.NoError(t, err)
	assert.Contains(t, out, "none")
}
