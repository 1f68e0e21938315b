package service

import "errors"

var (
	// ErrObjectiveNotFound aborts a lock check: there is nothing meaningful
	// to evaluate for a nonexistent objective, so this is never folded into
	// an "unlocked" answer.
	ErrObjectiveNotFound = errors.New("objective not found")

	ErrNotFound = errors.New("not found")

	// ErrValidation wraps write-time rejections of malformed rules and
	// grants; they never reach the store.
	ErrValidation = errors.New("validation failed")

	// ErrStoreUnavailable marks infrastructure failures while loading rules
	// or objectives. Whether it reaches the caller depends on the
	// configured fail-open policy.
	ErrStoreUnavailable = errors.New("store unavailable")
)
