package git

import (
	"log/slog"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
)

// DefaultBranch is the initial branch of generated repositories.
const DefaultBranch = "main"

// RemoteName is the name given to the registered remote.
const RemoteName = "origin"

// ValidateRemote checks that url parses as a git endpoint (https, ssh, scp-like or file).
func ValidateRemote(url string) error {
	if _, err := transport.NewEndpoint(url); err != nil {
		return &InvalidRemoteError{URL: url, Err: err}
	}
	return nil
}

// Init creates a repository in dir and, when remoteURL is non-empty,
// registers it as origin.
func Init(dir, remoteURL string) error {
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch)},
	})
	if err != nil {
		return classify("init", dir, err)
	}
	slog.Debug("Initialized repository", logfields.Path(dir))

	if remoteURL == "" {
		return nil
	}
	if err := ValidateRemote(remoteURL); err != nil {
		return classify("remote", dir, err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: RemoteName, URLs: []string{remoteURL}}); err != nil {
		return classify("remote", dir, err)
	}
	slog.Debug("Registered remote", logfields.Path(dir), slog.String("remote", remoteURL))
	return nil
}
