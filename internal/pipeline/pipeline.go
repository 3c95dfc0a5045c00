// Package pipeline drives the walk → staleness-check → render sequence
// over a template tree and owns the registry of outputs written by this
// process.
package pipeline

import (
	"os"
	"path/filepath"

	"github.com/pageforge/pageforge/internal/deps"
	"github.com/pageforge/pageforge/internal/engine"
	pferrors "github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/site"
	"github.com/pageforge/pageforge/internal/textio"
	"github.com/pageforge/pageforge/internal/walker"
)

// Options configures a Pipeline.
type Options struct {
	Root        string // absolute scan root
	Ext         string // template suffix, e.g. ".tmpl"
	DryRun      bool   // decide and log, write nothing, register nothing
	NoErrorPage bool   // never replace a failed render with a diagnostic page
	IgnoreMtime bool   // bypass staleness, render every discovered template
	MaxDepth    int    // dependency BFS bound; <= 0 selects the default
}

// Pipeline renders stale templates under a root. All rendering is
// synchronous on the calling goroutine, one template at a time; there is
// no queued or concurrent run. Serialization across the initial run and
// watch-triggered reruns comes from each rebuild running to completion
// inside the notification callback.
type Pipeline struct {
	opts      Options
	site      site.Values
	engine    engine.Engine
	walker    *walker.Walker
	resolver  *deps.Resolver
	evaluator *deps.Evaluator
	outputs   *OutputSet
	log       logging.Logger
}

// New wires a Pipeline from options and site data. The root is made
// absolute once here; everything downstream works in absolute paths.
func New(opts Options, siteData site.Values, log logging.Logger) (*Pipeline, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	opts.Root = root

	resolver := deps.NewResolver(root, log)
	return &Pipeline{
		opts:      opts,
		site:      siteData,
		engine:    engine.New(root, resolver),
		walker:    walker.New(root, opts.Ext),
		resolver:  resolver,
		evaluator: deps.NewEvaluator(resolver, opts.MaxDepth, log),
		outputs:   NewOutputSet(),
		log:       log.WithComponent("render"),
	}, nil
}

// Outputs exposes the registry of destinations written by this process.
func (p *Pipeline) Outputs() *OutputSet { return p.outputs }

// Resolver exposes dependency extraction for diagnostics.
func (p *Pipeline) Resolver() *deps.Resolver { return p.resolver }

// Evaluator exposes logical-mtime computation for diagnostics.
func (p *Pipeline) Evaluator() *deps.Evaluator { return p.evaluator }

// Run performs one full pass: every discovered template that is stale
// relative to its destination is rendered. Per-file failures are logged
// and skipped; only traversal failures abort the pass.
func (p *Pipeline) Run() error {
	if p.opts.DryRun {
		p.log.Info("dry run, no files will be altered")
	}
	if p.opts.IgnoreMtime {
		p.log.Debug("ignoring modification times")
	}

	for path, err := range p.walker.List() {
		if err != nil {
			return err
		}

		name := p.relName(path)
		dest := p.walker.Destination(path)

		if !p.opts.IgnoreMtime {
			destTime := deps.ModTime(dest)
			if destTime > 0 && destTime >= p.evaluator.LogicalModTime(path) {
				p.log.Debug("no change", "template", name)
				continue
			}
		}

		p.render(path, dest)
	}
	return nil
}

// Clean deletes every destination whose template was discovered and
// whose destination currently exists. Destinations without a surviving
// template are never touched, and nothing is removed from the output
// registry. In dry-run mode deletions are logged but not performed.
func (p *Pipeline) Clean() error {
	for path, err := range p.walker.List() {
		if err != nil {
			return err
		}

		dest := p.walker.Destination(path)
		if _, err := os.Stat(dest); err != nil {
			continue // no output to delete
		}

		name := p.relName(dest)
		if !p.opts.DryRun {
			if err := os.Remove(dest); err != nil {
				p.log.Error("cannot delete", "dest", dest, "error", err)
				continue
			}
		}
		p.log.Info("deleted", "dest", name, "dry_run", p.opts.DryRun)
	}
	return nil
}

// OnChange is the rebuild hook invoked by the change reactor. A path this
// process wrote itself is ignored; anything else triggers a full Run,
// deliberately coarse-grained: the staleness check is what keeps the
// rerun cheap, not fine-grained tracking of what changed. The result
// reports whether a rebuild pass actually ran.
func (p *Pipeline) OnChange(path string) bool {
	if p.outputs.Contains(path) {
		p.log.Debug("ignoring own output", "path", path)
		return false
	}
	if err := p.Run(); err != nil {
		p.log.Error("rebuild failed", "error", err)
	}
	return true
}

// render renders one template to dest, recovering from engine failures
// with a diagnostic page unless suppressed.
func (p *Pipeline) render(path, dest string) {
	name := p.relName(path)

	content, renderErr := p.renderContent(path, dest, name)
	if renderErr != nil {
		p.log.Error("cannot render", "template", name, "error", renderErr)
		if p.opts.NoErrorPage {
			return // destination left as-is
		}
		content = p.engine.DiagnosticPage(name, renderErr)
	} else {
		p.log.Info("rendered", "template", name, "dry_run", p.opts.DryRun)
	}

	if p.opts.DryRun {
		return // no write, no registration
	}

	if err := textio.WriteFile(dest, content); err != nil {
		p.log.Error("cannot write", "error", pferrors.NewWriteError(dest, err))
		return
	}
	p.outputs.Add(dest)
	p.log.Debug("wrote", "dest", p.relName(dest))
}

// renderContent looks up and executes one template.
func (p *Pipeline) renderContent(path, dest, name string) (string, error) {
	tmpl, err := p.engine.Lookup(name)
	if err != nil {
		return "", err
	}

	relDest := p.relName(dest)
	return tmpl.Render(engine.Context{
		Site: p.site,
		Page: engine.PageInfo{
			Name: name,
			Dest: relDest,
			Dir:  filepath.ToSlash(filepath.Dir(name)),
			Root: rootPrefix(relDest),
		},
	})
}

func (p *Pipeline) relName(path string) string {
	rel, err := filepath.Rel(p.opts.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// rootPrefix returns the relative prefix from a destination's directory
// back up to the root: "." at the top level, "../.." two levels down.
// Templates prepend it to site-absolute links.
func rootPrefix(relDest string) string {
	dir := filepath.Dir(filepath.FromSlash(relDest))
	prefix, err := filepath.Rel(filepath.Join("x", dir), "x")
	if err != nil {
		return "."
	}
	return filepath.ToSlash(prefix)
}
