// Package errors provides the classified error primitives used across skelbuilder.
//
// Every error that crosses a package boundary carries a category (what kind of
// failure), a severity (how bad) and a retry strategy (whether the build
// pipeline may try again). Adapters translate classified errors into HTTP
// responses and CLI exit codes.
//
// Example usage:
//
//	err := errors.WrapError(ioErr, errors.CategoryStore, "artifact write failed").
//		Retryable().
//		WithContext("build_id", id).
//		Build()
package errors
