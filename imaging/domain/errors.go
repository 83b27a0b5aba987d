package domain

import "errors"

// Error kinds. Every error returned by the imaging packages wraps exactly one of these,
// so callers can branch with errors.Is.
var (
	// ErrNotFound means the referenced local file or remote object does not exist
	ErrNotFound = errors.New("not found")

	// ErrResource means a staging directory could not be allocated or removed
	ErrResource = errors.New("staging resource error")

	// ErrUnpack means an archive was corrupt or one of its members was unreadable
	ErrUnpack = errors.New("unpack error")

	// ErrClassification means a member file could not be read while sniffing its format
	ErrClassification = errors.New("classification error")

	// ErrCapabilityUnavailable means the object store or database backend a strategy needs is not available
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrInvalidReference means a remote reference could not be parsed
	ErrInvalidReference = errors.New("invalid reference")
)
