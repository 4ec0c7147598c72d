package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsApplyCategoryPolicy(t *testing.T) {
	tests := []struct {
		name     string
		err      *ClassifiedError
		category ErrorCategory
		severity ErrorSeverity
		retry    bool
	}{
		{"validation", ValidationError("x").Build(), CategoryValidation, SeverityError, false},
		{"config", ConfigError("x").Build(), CategoryConfig, SeverityFatal, false},
		{"not found", NotFoundError("x").Build(), CategoryNotFound, SeverityInfo, false},
		{"not ready", NotReadyError("x").Build(), CategoryNotReady, SeverityInfo, false},
		{"render", RenderError("x").Build(), CategoryRender, SeverityError, true},
		{"capability", CapabilityError("x").Build(), CategoryCapability, SeverityFatal, false},
		{"package", PackageError("x").Build(), CategoryPackage, SeverityError, true},
		{"store", StoreError("x").Build(), CategoryStore, SeverityError, true},
		{"filesystem", FileSystemError("x").Build(), CategoryFileSystem, SeverityError, true},
		{"vcs", VCSError("x").Build(), CategoryVCS, SeverityError, true},
		{"network", NetworkError("x").Build(), CategoryNetwork, SeverityError, true},
		{"eventstore", EventStoreError("x").Build(), CategoryEventStore, SeverityError, true},
		{"runtime", RuntimeError("x").Build(), CategoryRuntime, SeverityError, false},
		{"internal", InternalError("x").Build(), CategoryInternal, SeverityFatal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.Equal(t, tt.severity, tt.err.Severity())
			assert.Equal(t, tt.retry, tt.err.CanRetry())
		})
	}
}

func TestNewErrorIsNotRetryableByDefault(t *testing.T) {
	err := WrapError(stderrors.New("exists"), CategoryStore, "identity holds other content").Build()
	assert.False(t, err.CanRetry())
	assert.Equal(t, SeverityError, err.Severity())
	assert.True(t, WrapError(err, CategoryStore, "again").Retryable().Build().CanRetry())
}

func TestErrorFormatAndUnwrap(t *testing.T) {
	cause := stderrors.New("no space left on device")
	err := WrapError(cause, CategoryFileSystem, "staging write failed").
		WithContext("path", "/tmp/x").
		Build()

	assert.Equal(t, "[filesystem] staging write failed: no space left on device", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[validation] bad", ValidationError("bad").Build().Error())
}

func TestClassificationThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("attempt 2: %w", StoreError("write failed").Build())

	assert.True(t, IsClassified(wrapped))
	assert.True(t, HasCategory(wrapped, CategoryStore))
	assert.False(t, HasCategory(wrapped, CategoryPackage))
	assert.True(t, CanRetry(wrapped))

	plain := stderrors.New("plain")
	assert.False(t, IsClassified(plain))
	assert.False(t, CanRetry(plain), "unclassified errors are never retried")
}

func TestSentinelComparison(t *testing.T) {
	sentinel := EventStoreError("failed to append event").Build()
	err := WrapError(stderrors.New("disk I/O error"), CategoryEventStore, "failed to append event").Build()

	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, EventStoreError("other").Build(), sentinel)
}

func TestContextIsCopied(t *testing.T) {
	b := RenderError("template missing").WithContext("language", "JAVA")
	first := b.Build()
	second := b.WithContext("stage", "render").Build()
	derived := first.WithContext("attempt", 2)

	_, ok := first.Context().Get("stage")
	assert.False(t, ok, "later builder calls must not leak into built errors")
	_, ok = first.Context().Get("attempt")
	assert.False(t, ok, "WithContext must not mutate the receiver")

	lang, ok := second.Context().GetString("language")
	require.True(t, ok)
	assert.Equal(t, "JAVA", lang)
	v, _ := derived.Context().Get("attempt")
	assert.Equal(t, 2, v)

	_, ok = derived.Context().GetString("attempt")
	assert.False(t, ok, "non-string values are not returned by GetString")
}

func TestCategoryCodes(t *testing.T) {
	assert.Equal(t, http.StatusGone, CategoryBuildFailed.StatusCode())
	assert.Equal(t, http.StatusConflict, CategoryAlreadyExists.StatusCode())
	assert.Equal(t, http.StatusInternalServerError, ErrorCategory("unknown").StatusCode())
	assert.Equal(t, 1, ErrorCategory("unknown").ExitCode())
	assert.Equal(t, 3, CategoryNotFound.ExitCode())
}

func TestFromIO(t *testing.T) {
	full := FromIO(fmt.Errorf("write: %w", syscall.ENOSPC), CategoryPackage, "archive write failed").Build()
	assert.True(t, full.CanRetry(), "disk full is retried by a later attempt")
	v, _ := full.Context().Get("exhausted")
	assert.Equal(t, true, v)

	denied := FromIO(fs.ErrPermission, CategoryStore, "publish failed").Build()
	assert.False(t, denied.CanRetry())

	readOnly := FromIO(&fs.PathError{Op: "open", Path: "/x", Err: syscall.EROFS}, CategoryStore, "publish failed").Build()
	assert.False(t, readOnly.CanRetry())

	other := FromIO(stderrors.New("short write"), CategoryRender, "write failed").Build()
	assert.True(t, other.CanRetry())
}
