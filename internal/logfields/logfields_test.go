package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b-1", BuildID("b-1")},
		{"Status", KeyStatus, "READY", Status("READY")},
		{"Stage", KeyStage, "package", Stage("package")},
		{"Attempt", KeyAttempt, "2", Attempt(2)},
		{"Retry", KeyRetry, "1", Retry(1)},
		{"Delay", KeyDelay, "1.5s", Delay(1500 * time.Millisecond)},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Digest", KeyDigest, "sha256:ab", Digest("sha256:ab")},
		{"Size", KeySize, "42", Size(42)},
		{"Language", KeyLanguage, "KOTLIN", Language("KOTLIN")},
		{"Worker", KeyWorker, "3", Worker(3)},
		{"Reason", KeyReason, "canceled", Reason("canceled")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}
