package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/metrics"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
	"git.home.luguber.info/inful/skelbuilder/internal/workspace"
)

// Generator renders and packages one specification synchronously. It backs
// the generate command, which needs neither a queue nor a store.
type Generator struct {
	renderer         Renderer
	packager         Packager
	workspaceFactory func() *workspace.Manager
	recorder         metrics.Recorder
}

// NewGenerator creates a generator with a private staging area under os.TempDir.
func NewGenerator(renderer Renderer, packager Packager) *Generator {
	return &Generator{
		renderer: renderer,
		packager: packager,
		workspaceFactory: func() *workspace.Manager {
			return workspace.NewManager("")
		},
		recorder: metrics.NoopRecorder{},
	}
}

// WithWorkspaceFactory allows injecting a custom workspace factory (for testing).
func (g *Generator) WithWorkspaceFactory(factory func() *workspace.Manager) *Generator {
	g.workspaceFactory = factory
	return g
}

// WithRecorder sets the metrics recorder.
func (g *Generator) WithRecorder(r metrics.Recorder) *Generator {
	if r != nil {
		g.recorder = r
	}
	return g
}

// Generate returns the archive for spec. Nothing is retried; the caller
// sees the first error.
func (g *Generator) Generate(ctx context.Context, spec project.Specification) (*archive.Archive, error) {
	mgr := g.workspaceFactory()
	defer func() { _ = mgr.Close() }()
	staging, err := mgr.Acquire(spec.FileName())
	if err != nil {
		return nil, err
	}
	defer func() { _ = staging.Release() }()

	start := time.Now()
	tree, err := g.renderer.Render(ctx, spec, staging.Path())
	g.recorder.ObserveStageDuration(metrics.StageRender, time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	art, err := g.packager.Package(ctx, tree.Root, tree.Name)
	g.recorder.ObserveStageDuration(metrics.StagePackage, time.Since(start))
	if err != nil {
		return nil, err
	}

	slog.Info("Generated skeleton",
		slog.String("name", spec.Name),
		slog.Int("files", len(tree.Files)),
		logfields.Digest(art.Digest),
		logfields.Size(art.Size))
	return art, nil
}
