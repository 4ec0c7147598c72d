package git

import (
	"fmt"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// InvalidRemoteError reports a remote URL that go-git cannot parse as an endpoint.
type InvalidRemoteError struct {
	URL string
	Err error
}

func (e *InvalidRemoteError) Error() string {
	return fmt.Sprintf("invalid remote %q: %v", e.URL, e.Err)
}
func (e *InvalidRemoteError) Unwrap() error { return e.Err }

// classify turns go-git failures into classified errors. Remote parsing
// problems are user input and never retried; everything else is an I/O
// failure on the staging area.
func classify(op, dir string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*InvalidRemoteError); ok {
		return errors.WrapError(err, errors.CategoryVCS, "invalid remote URL").
			WithContext("op", op).
			Build()
	}
	return errors.WrapError(err, errors.CategoryVCS, op+" failed").
		Retryable().
		WithContext("op", op).
		WithContext("path", dir).
		Build()
}
