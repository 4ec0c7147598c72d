package git

import (
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

func TestInit_WithoutRemote(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir, ""))

	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	remotes, err := repo.Remotes()
	require.NoError(t, err)
	assert.Empty(t, remotes)

	head, err := repo.Storer.Reference("HEAD")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/"+DefaultBranch, head.Target().String())
}

func TestInit_WithRemote(t *testing.T) {
	dir := t.TempDir()
	url := "https://git.example.com/team/myapp.git"
	require.NoError(t, Init(dir, url))

	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	remote, err := repo.Remote(RemoteName)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, remote.Config().URLs)
}

func TestInit_ExistingRepositoryFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir, ""))
	err := Init(dir, "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryVCS))
}

func TestValidateRemote(t *testing.T) {
	for _, ok := range []string{
		"https://example.com/a.git",
		"git@example.com:team/a.git",
		"ssh://git@example.com/a.git",
		filepath.Join(t.TempDir(), "bare.git"),
	} {
		assert.NoError(t, ValidateRemote(ok), ok)
	}
	err := ValidateRemote("http://[::1")
	require.Error(t, err)
	var invalid *InvalidRemoteError
	assert.ErrorAs(t, err, &invalid)
}

func TestInit_InvalidRemoteNotRetryable(t *testing.T) {
	err := Init(t.TempDir(), "http://[::1")
	require.Error(t, err)
	assert.False(t, errors.CanRetry(err))
}
