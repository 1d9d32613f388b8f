// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared across the conversion core. Concrete errors wrap these
// sentinels so callers can classify failures with errors.Is without
// depending on message text.
var (
	// ErrInputNotFound: the source path is missing or is not a regular file.
	ErrInputNotFound = errors.New("input file not found")

	// ErrInputUnreadable: the source path exists but cannot be read.
	ErrInputUnreadable = errors.New("input file not readable")

	// ErrUnsupportedFormat: no registered capability claims the file.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCapabilityFailure: a capability's parse failed. Recoverable within
	// the pipeline by falling through to the next candidate; reported only
	// once all candidates are exhausted.
	ErrCapabilityFailure = errors.New("capability failed")

	// ErrEmptyOutput: a capability returned success but produced no usable
	// content. Treated like ErrCapabilityFailure for fallback purposes.
	ErrEmptyOutput = errors.New("conversion produced empty output")

	// ErrChunkFailure: an entire chunk failed outside per-file handling.
	ErrChunkFailure = errors.New("chunk processing failed")

	// ErrDependencyUnavailable: a required external runtime is missing.
	// Fatal to cluster startup, never to individual files.
	ErrDependencyUnavailable = errors.New("required dependency unavailable")

	// ErrConfigInvalid: malformed coordinator configuration. Fatal before
	// any work starts.
	ErrConfigInvalid = errors.New("invalid configuration")
)
