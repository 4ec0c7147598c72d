package render

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/git"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
	"git.home.luguber.info/inful/skelbuilder/internal/version"
)

const gitignore = `# Gradle
.gradle/
build/
!gradle/wrapper/gradle-wrapper.jar

# IDE
.idea/
*.iml
*.ipr
*.iws
.classpath
.project
.settings/
bin/
out/
.vscode/

# OS
.DS_Store
`

// Tree is a rendered skeleton on disk.
type Tree struct {
	Root  string   // absolute directory holding the project
	Name  string   // directory name, the sanitized project name
	Files []string // regular files relative to Root, '/'-separated, sorted; .git excluded
}

// Renderer turns a specification into a directory tree.
type Renderer struct {
	registry *Registry
	now      func() time.Time
	holder   string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRegistry replaces the built-in capability registry.
func WithRegistry(r *Registry) Option {
	return func(rd *Renderer) { rd.registry = r }
}

// WithClock sets the clock used for the license year.
func WithClock(now func() time.Time) Option {
	return func(rd *Renderer) { rd.now = now }
}

// WithLicenseHolder sets the copyright holder. Defaults to the project name.
func WithLicenseHolder(holder string) Option {
	return func(rd *Renderer) { rd.holder = holder }
}

// New builds a renderer and checks its registry covers every combination.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{registry: DefaultRegistry(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if err := r.registry.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Version identifies the templates this renderer emits.
func (r *Renderer) Version() string { return version.Renderer }

// Render writes the skeleton for spec into dir/<sanitized name>. dir must
// exist; the project directory must not.
func (r *Renderer) Render(ctx context.Context, spec project.Specification, dir string) (*Tree, error) {
	name := spec.FileName()
	root := filepath.Join(dir, name)
	if err := os.Mkdir(root, 0o755); err != nil {
		return nil, errors.FromIO(err, errors.CategoryRender, "failed to create project directory").
			WithContext("path", root).Build()
	}

	files, err := r.files(spec)
	if err != nil {
		return nil, err
	}

	for _, d := range sourceDirs(spec) {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755); err != nil {
			return nil, errors.FromIO(err, errors.CategoryRender, "failed to create source root").
				WithContext("path", d).Build()
		}
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeFile(root, f); err != nil {
			return nil, err
		}
	}

	if spec.VCS.Init {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := git.Init(root, spec.VCS.RemoteURL); err != nil {
			return nil, err
		}
	}

	tree := &Tree{Root: root, Name: name}
	for _, f := range files {
		tree.Files = append(tree.Files, f.Path)
	}
	slices.Sort(tree.Files)

	slog.Debug("Rendered skeleton",
		logfields.Path(root),
		slog.Int("files", len(tree.Files)),
		slog.Int("languages", len(spec.Languages)))
	return tree, nil
}

// files produces every regular file of the skeleton in memory.
func (r *Renderer) files(spec project.Specification) ([]File, error) {
	build, err := BuildDescriptor(spec).Render()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "build descriptor").Build()
	}
	files := []File{
		{Path: "build.gradle", Content: []byte(build), Mode: 0o644},
		{Path: "settings.gradle", Content: []byte("rootProject.name = '" + groovyEscape(spec.Name) + "'\n"), Mode: 0o644},
		{Path: ".gitignore", Content: []byte(gitignore), Mode: 0o644},
	}

	holder := r.holder
	if holder == "" {
		holder = spec.Name
	}
	license, err := renderLicense(spec.License, holder, r.now().Year())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "license template").
			WithContext("license", string(spec.License)).Build()
	}
	if license != nil {
		files = append(files, File{Path: "LICENSE", Content: license, Mode: 0o644})
	}

	for _, l := range spec.Languages {
		key := CapabilityKey{Language: l, Testing: spec.Testing, Logging: spec.Logging}
		fn, ok := r.registry.Lookup(key)
		if !ok {
			return nil, errors.CapabilityError("no template for combination").
				WithContext("capability", key.String()).Build()
		}
		generated, err := fn(spec)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryRender, "boilerplate generation failed").
				WithContext("capability", key.String()).Build()
		}
		files = append(files, generated...)
	}
	return files, nil
}

// sourceDirs lists the directories that exist even when empty.
func sourceDirs(spec project.Specification) []string {
	dirs := []string{"src/main/resources", "src/test/resources"}
	for _, l := range spec.Languages {
		dirs = append(dirs,
			path.Join("src/main", l.Dir(), spec.PackagePath()),
			path.Join("src/test", l.Dir(), spec.PackagePath()))
	}
	return dirs
}

func writeFile(root string, f File) error {
	target := filepath.Join(root, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.FromIO(err, errors.CategoryRender, "failed to create directory").
			WithContext("path", f.Path).Build()
	}
	mode := f.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(target, f.Content, mode.Perm()); err != nil {
		return errors.FromIO(err, errors.CategoryRender, "failed to write file").
			WithContext("path", f.Path).Build()
	}
	return nil
}

// Walk returns every regular file below root relative to it, skipping .git.
func Walk(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}
