package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure crossing a collaborator boundary.
// The kind decides what the caller does next: validation failures surface
// immediately, unavailable failures queue, timeouts surface without queueing,
// rate limits fall back to cached data.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindUnavailable
	KindTimeout
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an underlying error with its kind.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify wraps err with the given kind. A nil err returns nil.
func Classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

// KindOf returns the classification of err, or KindUnknown when err carries
// no classification anywhere in its chain.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err should park the submission in the durable
// queue rather than fail it. Only unavailable errors are retryable: a
// validation error will fail again identically, and a timeout already has an
// attempt possibly still in flight.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
