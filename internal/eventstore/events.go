package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// Event kinds.
const (
	TypeBuildScheduled = "BuildScheduled"
	TypeBuildStarted   = "BuildStarted"
	TypeBuildRetrying  = "BuildRetrying"
	TypeBuildReady     = "BuildReady"
	TypeBuildFailed    = "BuildFailed"
)

// Status values recorded in the projection. They mirror the orchestrator's
// state machine without importing it.
const (
	StatusPending  = "PENDING"
	StatusBuilding = "BUILDING"
	StatusReady    = "READY"
	StatusFailed   = "FAILED"
)

func newEvent(buildID, kind string, at time.Time, body any) (Event, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Event{}, errors.WrapError(err, ErrEncodeEvent.Category(), ErrEncodeEvent.Message()).
			WithContext("build_id", buildID).
			WithContext("kind", kind).
			Build()
	}
	return Event{BuildID: buildID, Kind: kind, At: at, Body: data}, nil
}

// ScheduledPayload is the body of a BuildScheduled event.
type ScheduledPayload struct {
	Spec     project.Specification `json:"spec"`
	Renderer string                `json:"renderer"`
}

// NewBuildScheduled records a request entering PENDING.
func NewBuildScheduled(buildID string, spec project.Specification, renderer string, at time.Time) (Event, error) {
	return newEvent(buildID, TypeBuildScheduled, at, ScheduledPayload{Spec: spec, Renderer: renderer})
}

// NewBuildStarted records PENDING -> BUILDING.
func NewBuildStarted(buildID string, at time.Time) (Event, error) {
	return newEvent(buildID, TypeBuildStarted, at, struct{}{})
}

// RetryingPayload is the body of a BuildRetrying event.
type RetryingPayload struct {
	Attempt int    `json:"attempt"`
	DelayMS int64  `json:"delay_ms"`
	Error   string `json:"error"`
}

// NewBuildRetrying records a failed attempt that will be retried.
func NewBuildRetrying(buildID string, attempt int, delay time.Duration, cause string, at time.Time) (Event, error) {
	return newEvent(buildID, TypeBuildRetrying, at, RetryingPayload{Attempt: attempt, DelayMS: delay.Milliseconds(), Error: cause})
}

// ReadyPayload is the body of a BuildReady event.
type ReadyPayload struct {
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// NewBuildReady records BUILDING -> READY.
func NewBuildReady(buildID, digest string, size int64, at time.Time) (Event, error) {
	return newEvent(buildID, TypeBuildReady, at, ReadyPayload{Digest: digest, Size: size})
}

// FailedPayload is the body of a BuildFailed event.
type FailedPayload struct {
	Reason string `json:"reason"`
}

// NewBuildFailed records a transition to FAILED.
func NewBuildFailed(buildID, reason string, at time.Time) (Event, error) {
	return newEvent(buildID, TypeBuildFailed, at, FailedPayload{Reason: reason})
}
