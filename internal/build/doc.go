// Package build owns the lifecycle of build requests.
//
// An Orchestrator accepts validated specifications, assigns each an
// identity and drives it through PENDING -> BUILDING -> READY|FAILED on a
// bounded worker pool. Every attempt renders the skeleton into a private
// staging directory, packages it and publishes the archive to the artifact
// store. I/O failures are retried with backoff; anything else fails the
// request at once. Callers poll Status and collect the archive with Fetch.
//
// Transitions of one request are serialized by that request's lock, so
// observers (journal, notifications) see them in order and Status never
// moves backwards.
package build
