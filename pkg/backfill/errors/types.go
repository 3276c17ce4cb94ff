package errors

import "fmt"

// DiscoveryError indicates the version discovery service was unreachable
// or returned a malformed listing. Retryable.
type DiscoveryError struct {
	RootID     string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("discover %s: HTTP %d: %s", e.RootID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("discover %s: %s", e.RootID, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// FetchError indicates the metadata service was unreachable or returned a
// malformed payload. Retryable.
type FetchError struct {
	VersionID  string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %s", e.VersionID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.VersionID, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates the metadata service confirmed a version does not
// exist. Terminal for that version only; never retried.
type NotFoundError struct {
	VersionID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("version %s not found", e.VersionID)
}

// CheckpointIOError indicates the checkpoint could not be read or written.
// Fatal: losing resumability silently is unacceptable.
type CheckpointIOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *CheckpointIOError) Error() string {
	return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *CheckpointIOError) Unwrap() error {
	return e.Err
}
