// Package errors provides the error taxonomy and retry machinery for the
// backfill engine.
//
// The package implements a layered error handling approach:
//   - Categorization: classify failures for appropriate handling
//   - Retry: handle transient failures with bounded exponential backoff
//   - Containment: failures local to one version or one root record are
//     reported to the caller but never abort a batch
package errors

import (
	"errors"
	"fmt"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: timeouts, 5xx responses, temporary network issues.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: malformed accessions, unwritable checkpoint paths.
	CategoryPermanent

	// CategoryNotFound indicates the external service confirmed the
	// requested version does not exist. Terminal for that version only.
	CategoryNotFound
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var nfErr *NotFoundError
	if errors.As(err, &nfErr) {
		return CategoryNotFound
	}

	var discErr *DiscoveryError
	if errors.As(err, &discErr) {
		return categorizeStatus(discErr.StatusCode)
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return categorizeStatus(fetchErr.StatusCode)
	}

	var cpErr *CheckpointIOError
	if errors.As(err, &cpErr) {
		return CategoryPermanent
	}

	// Unknown errors are permanent (fail safe).
	return CategoryPermanent
}

// categorizeStatus maps an HTTP status to a category. A zero status means
// the request never completed (transport failure or malformed body), which
// is worth retrying.
func categorizeStatus(status int) Category {
	switch {
	case status == 0:
		return CategoryTransient
	case status == 404:
		return CategoryNotFound
	case status == 429 || status >= 500:
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsNotFound reports whether the external service confirmed absence.
func IsNotFound(err error) bool {
	return Categorize(err) == CategoryNotFound
}
