package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of category. It is not retryable until marked so;
// the named constructors below apply the category's defaults instead.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: policyFor(category).severity,
		retry:    RetryNever,
		message:  message,
	}}
}

// WrapError is NewError with cause attached.
func WrapError(cause error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = cause
	return b
}

func classified(category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.retry = policyFor(category).retry
	return b
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.severity = severity
	return b
}

func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.err.retry = strategy
	return b
}

// WithContext adds key=value to the error's context.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.with(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder { return b.WithSeverity(SeverityFatal) }

func (b *ErrorBuilder) Info() *ErrorBuilder { return b.WithSeverity(SeverityInfo) }

// Retryable marks the error as worth another attempt after backoff.
func (b *ErrorBuilder) Retryable() *ErrorBuilder { return b.WithRetry(RetryBackoff) }

// Build returns the error. The builder may keep being used afterwards.
func (b *ErrorBuilder) Build() *ClassifiedError {
	e := b.err
	return &e
}

// ValidationError rejects caller input. Context keys: field, reason.
func ValidationError(message string) *ErrorBuilder { return classified(CategoryValidation, message) }

func ConfigError(message string) *ErrorBuilder { return classified(CategoryConfig, message) }

// NotFoundError reports an identity that was never issued or has been purged.
func NotFoundError(message string) *ErrorBuilder { return classified(CategoryNotFound, message) }

// NotReadyError reports a known identity whose pipeline has not finished.
func NotReadyError(message string) *ErrorBuilder { return classified(CategoryNotReady, message) }

func RenderError(message string) *ErrorBuilder { return classified(CategoryRender, message) }

// CapabilityError reports a combination the renderer has no boilerplate for.
func CapabilityError(message string) *ErrorBuilder { return classified(CategoryCapability, message) }

func PackageError(message string) *ErrorBuilder { return classified(CategoryPackage, message) }

func StoreError(message string) *ErrorBuilder { return classified(CategoryStore, message) }

func FileSystemError(message string) *ErrorBuilder { return classified(CategoryFileSystem, message) }

func VCSError(message string) *ErrorBuilder { return classified(CategoryVCS, message) }

func NetworkError(message string) *ErrorBuilder { return classified(CategoryNetwork, message) }

func EventStoreError(message string) *ErrorBuilder { return classified(CategoryEventStore, message) }

func RuntimeError(message string) *ErrorBuilder { return classified(CategoryRuntime, message) }

func InternalError(message string) *ErrorBuilder { return classified(CategoryInternal, message) }
