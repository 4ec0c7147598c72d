package build

import (
	stderrors "errors"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// errCanceled ends a pipeline that was canceled before packaging.
var errCanceled = stderrors.New(ReasonCanceled)

func notFound(id string) error {
	return errors.NotFoundError("build not found").WithContext("id", id).Build()
}

func notReady(r Request) error {
	return errors.NotReadyError("build not ready").
		WithContext("id", r.ID).
		WithContext("status", string(r.Status)).
		Build()
}

func failed(r Request) error {
	return errors.NewError(errors.CategoryBuildFailed, "build failed").
		WithContext("id", r.ID).
		WithContext("reason", r.Reason).
		Build()
}

// IsNotFound reports an identity that was never issued or has been purged.
func IsNotFound(err error) bool { return errors.HasCategory(err, errors.CategoryNotFound) }

// IsNotReady reports a known identity whose pipeline has not finished.
func IsNotReady(err error) bool { return errors.HasCategory(err, errors.CategoryNotReady) }

// FailedReason returns the recorded reason when err reports a FAILED build.
func FailedReason(err error) (string, bool) {
	c, ok := errors.AsClassified(err)
	if !ok || c.Category() != errors.CategoryBuildFailed {
		return "", false
	}
	return c.Context().GetString("reason")
}
