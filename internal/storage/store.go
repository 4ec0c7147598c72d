// Package storage holds packaged artifacts keyed by build identity.
//
// A Store publishes each artifact atomically: readers either see the
// complete archive or nothing. An identity is written at most once and is
// only ever removed by Delete.
package storage

import (
	"context"
	stderrors "errors"
	"io"
	"regexp"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// Store is the artifact store used by the build orchestrator.
type Store interface {
	// Write publishes data under id. It fails with ErrAlreadyExists if id
	// was written before and has not been deleted.
	Write(ctx context.Context, id string, data []byte, digest string) error

	// Open returns a reader over the complete artifact, or ErrNotFound.
	// Opening counts as activity for idle retention.
	Open(ctx context.Context, id string) (io.ReadCloser, Info, error)

	// Delete removes the artifact. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Exists reports whether id is published.
	Exists(ctx context.Context, id string) (bool, error)

	// Stat returns metadata without opening the artifact.
	Stat(ctx context.Context, id string) (Info, error)

	// List returns metadata for every published artifact.
	List(ctx context.Context) ([]Info, error)

	// MarkDownloaded records a completed download.
	MarkDownloaded(ctx context.Context, id string) (Info, error)

	// Close releases any resources held by the store.
	Close() error
}

// Info describes a stored artifact.
type Info struct {
	ID         string    `json:"id"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	Downloads  int       `json:"downloads"`
}

// LastActivity is the later of creation and last access.
func (i Info) LastActivity() time.Time {
	if i.LastAccess.After(i.CreatedAt) {
		return i.LastAccess
	}
	return i.CreatedAt
}

var (
	// ErrNotFound is returned for ids that were never written or were deleted.
	ErrNotFound = stderrors.New("artifact not found")
	// ErrAlreadyExists is returned when writing an id twice.
	ErrAlreadyExists = stderrors.New("artifact already exists")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return stderrors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err is (or wraps) ErrAlreadyExists.
func IsAlreadyExists(err error) bool { return stderrors.Is(err, ErrAlreadyExists) }

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidID reports whether id can address an artifact. Anything else could
// escape the store's namespace.
func ValidID(id string) bool { return idPattern.MatchString(id) }

func notFound(id string) error {
	return errors.WrapError(ErrNotFound, errors.CategoryNotFound, "artifact not found").
		Info().
		WithContext("id", id).
		Build()
}

func alreadyExists(id string) error {
	return errors.WrapError(ErrAlreadyExists, errors.CategoryAlreadyExists, "artifact already exists").
		WithRetry(errors.RetryNever).
		WithContext("id", id).
		Build()
}

func invalidID(id string) error {
	return errors.ValidationError("invalid artifact id").WithContext("id", id).Build()
}

// Clock returns the current time. Stores take one so retention can be tested.
type Clock func() time.Time
