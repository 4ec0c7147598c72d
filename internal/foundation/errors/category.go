package errors

import "net/http"

// ErrorCategory names the kind of failure. The category decides the
// defaults of the named constructors and what the adapters report.
type ErrorCategory string

const (
	// Caller errors, surfaced synchronously and never retried.
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfig        ErrorCategory = "config"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryNotReady      ErrorCategory = "not_ready"
	CategoryAlreadyExists ErrorCategory = "already_exists"
	CategoryBuildFailed   ErrorCategory = "build_failed"

	// Pipeline errors, raised inside a build attempt.
	CategoryRender     ErrorCategory = "render"
	CategoryCapability ErrorCategory = "capability"
	CategoryPackage    ErrorCategory = "package"
	CategoryStore      ErrorCategory = "store"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryVCS        ErrorCategory = "vcs"
	CategoryEventStore ErrorCategory = "eventstore"

	// CategoryNetwork covers the blob store and NATS.
	CategoryNetwork ErrorCategory = "network"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity selects the log level an adapter uses.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy tells the build pipeline whether another attempt may help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// policy is how one category behaves by default and at the process edges.
type policy struct {
	severity ErrorSeverity
	retry    RetryStrategy
	status   int
	exitCode int
}

var fallbackPolicy = policy{severity: SeverityError, retry: RetryNever, status: http.StatusInternalServerError, exitCode: 1}

var policies = map[ErrorCategory]policy{
	CategoryValidation:    {SeverityError, RetryUserAction, http.StatusBadRequest, 2},
	CategoryConfig:        {SeverityFatal, RetryUserAction, http.StatusBadRequest, 7},
	CategoryNotFound:      {SeverityInfo, RetryNever, http.StatusNotFound, 3},
	CategoryNotReady:      {SeverityInfo, RetryNever, http.StatusConflict, 4},
	CategoryAlreadyExists: {SeverityWarning, RetryNever, http.StatusConflict, 4},
	CategoryBuildFailed:   {SeverityInfo, RetryNever, http.StatusGone, 5},

	CategoryRender:     {SeverityError, RetryBackoff, http.StatusInternalServerError, 11},
	CategoryCapability: {SeverityFatal, RetryNever, http.StatusInternalServerError, 10},
	CategoryPackage:    {SeverityError, RetryBackoff, http.StatusInternalServerError, 11},
	CategoryStore:      {SeverityError, RetryBackoff, http.StatusInternalServerError, 11},
	CategoryFileSystem: {SeverityError, RetryBackoff, http.StatusInternalServerError, 11},
	CategoryVCS:        {SeverityError, RetryBackoff, http.StatusInternalServerError, 11},
	CategoryEventStore: {SeverityError, RetryBackoff, http.StatusInternalServerError, 11},

	CategoryNetwork:  {SeverityError, RetryBackoff, http.StatusBadGateway, 8},
	CategoryRuntime:  {SeverityError, RetryNever, http.StatusServiceUnavailable, 12},
	CategoryInternal: {SeverityFatal, RetryNever, http.StatusInternalServerError, 10},
}

func policyFor(c ErrorCategory) policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return fallbackPolicy
}

// StatusCode is the HTTP status reported for c.
func (c ErrorCategory) StatusCode() int { return policyFor(c).status }

// ExitCode is the process exit status reported for c.
func (c ErrorCategory) ExitCode() int { return policyFor(c).exitCode }
