package errors

import (
	stderrors "errors"
	"io/fs"
	"syscall"
)

// FromIO wraps an I/O failure in category. Exhausted space is retried with
// backoff since a later attempt may find room; permission and read-only
// failures will not change between attempts and are never retried.
func FromIO(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := WrapError(err, category, message)
	switch {
	case stderrors.Is(err, syscall.ENOSPC):
		return b.Retryable().WithContext("exhausted", true)
	case stderrors.Is(err, fs.ErrPermission), stderrors.Is(err, syscall.EROFS):
		return b.WithRetry(RetryNever)
	default:
		return b.Retryable()
	}
}
