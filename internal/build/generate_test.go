package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/render"
	"git.home.luguber.info/inful/skelbuilder/internal/workspace"
)

func TestGenerator_Generate(t *testing.T) {
	renderer, err := render.New()
	require.NoError(t, err)
	staging := workspace.NewManager(t.TempDir())
	g := NewGenerator(renderer, archive.NewPackager(0)).
		WithWorkspaceFactory(func() *workspace.Manager { return staging })

	art, err := g.Generate(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	assert.True(t, archive.Verify(art.Data, art.Digest))
	assert.Equal(t, 0, staging.Active(), "staging released")

	dest := t.TempDir()
	require.NoError(t, archive.Unpack(art.Data, dest))
	_, err = os.Stat(filepath.Join(dest, "myapp", "settings.gradle"))
	require.NoError(t, err)
}

func TestGenerator_ReportsFirstError(t *testing.T) {
	renderer := &failingRenderer{err: errors.RenderError("disk gone").Build()}
	staging := workspace.NewManager(t.TempDir())
	g := NewGenerator(renderer, archive.NewPackager(0)).
		WithWorkspaceFactory(func() *workspace.Manager { return staging })

	_, err := g.Generate(t.Context(), scenarioSpec(t))
	require.Error(t, err)
	assert.Equal(t, int32(1), renderer.calls.Load())
	assert.Equal(t, 0, staging.Active())
}
