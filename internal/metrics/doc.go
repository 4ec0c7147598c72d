// Package metrics provides build pipeline observability.
//
// Components receive a Recorder through their constructors. NoopRecorder is
// the default so callers never nil-check; PrometheusRecorder is installed by
// the serve command when monitoring.metrics.enabled is set, and HTTPHandler
// exposes its registry.
package metrics
