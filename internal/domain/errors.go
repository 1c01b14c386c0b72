package domain

import "errors"

// Hard failure classes surfaced to callers. Provider timeouts and
// per-provider errors degrade to absent signals instead of propagating.
var (
	// ErrInvalidCandidate marks an unparseable URL; it fails fast and is
	// never enqueued.
	ErrInvalidCandidate = errors.New("invalid candidate url")

	// ErrProviderUnavailable marks a synchronous submission rejection by
	// the sandbox provider. Not retried by the pipeline.
	ErrProviderUnavailable = errors.New("scan provider rejected submission")

	// ErrQueueCancelled rejects pending queue items on ClearQueue.
	ErrQueueCancelled = errors.New("submission queue cleared")
)
