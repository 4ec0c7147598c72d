package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStatus     = "status"
	KeyStage      = "stage"
	KeyAttempt    = "attempt"
	KeyRetry      = "retry"
	KeyDelay      = "delay"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyDigest     = "digest"
	KeySize       = "size"
	KeyLanguage   = "language"
	KeyWorker     = "worker"
	KeyReason     = "reason"
	KeyMethod     = "method"
	KeyRequestID  = "request_id"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Status(s string) slog.Attr         { return slog.String(KeyStatus, s) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func Attempt(n int) slog.Attr           { return slog.Int(KeyAttempt, n) }
func Retry(n int) slog.Attr             { return slog.Int(KeyRetry, n) }
func Delay(d time.Duration) slog.Attr   { return slog.Duration(KeyDelay, d) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Digest(d string) slog.Attr         { return slog.String(KeyDigest, d) }
func Size(n int64) slog.Attr            { return slog.Int64(KeySize, n) }
func Language(l string) slog.Attr       { return slog.String(KeyLanguage, l) }
func Worker(id int) slog.Attr           { return slog.Int(KeyWorker, id) }
func Reason(r string) slog.Attr         { return slog.String(KeyReason, r) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func RequestID(id string) slog.Attr     { return slog.String(KeyRequestID, id) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
