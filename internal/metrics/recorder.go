package metrics

import "time"

// Stage names reported by the build pipeline.
const (
	StageRender  = "render"
	StagePackage = "package"
	StageStore   = "store"
)

// Outcome labels for finished builds.
const (
	OutcomeReady    = "ready"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// Recorder defines observability hooks for the build pipeline and artifact
// store. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string)
	IncBuildRetry(stage string)
	IncBuildRetryExhausted(stage string)
	SetQueueDepth(n int)
	SetActiveBuilds(n int)
	ObserveArtifactSize(bytes int64)
	IncArtifactsPurged(reason string)
	IncDownloads()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) IncBuildRetry(string)                       {}
func (NoopRecorder) IncBuildRetryExhausted(string)              {}
func (NoopRecorder) SetQueueDepth(int)                          {}
func (NoopRecorder) SetActiveBuilds(int)                        {}
func (NoopRecorder) ObserveArtifactSize(int64)                  {}
func (NoopRecorder) IncArtifactsPurged(string)                  {}
func (NoopRecorder) IncDownloads()                              {}
