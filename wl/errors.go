package wl

import (
	"errors"
	"fmt"
)

// Kind classifies a failure along the proxy's error taxonomy. The broker
// layer adds the two client-facing kinds (validation, local rate limit);
// everything else originates in the fetch client.
type Kind string

const (
	KindUnknown             Kind = "UNKNOWN_ERROR"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindUpstreamRateLimited Kind = "UPSTREAM_RATE_LIMITED"
	KindConnection          Kind = "CONNECTION_ERROR"
	KindTimeout             Kind = "TIMEOUT_ERROR"
	KindAccessDenied        Kind = "ACCESS_DENIED"
	KindNotFound            Kind = "NOT_FOUND"
	KindUpstreamAPI         Kind = "UPSTREAM_API_ERROR"
)

// Error is a classified fetch/proxy failure.
type Error struct {
	Kind    Kind
	StopID  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.StopID != "" {
		return fmt.Sprintf("%s: stop %s: %s", e.Kind, e.StopID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the taxonomy kind of err, or KindUnknown for anything
// that is not a classified *Error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindUnknown
}

// IsRateLimited reports whether err is a local or upstream rate limit.
// The aggregator uses this to decide when to stretch its pacing delay.
func IsRateLimited(err error) bool {
	k := KindOf(err)
	return k == KindRateLimited || k == KindUpstreamRateLimited
}

// IsAccessDenied reports whether err marks a stale or decommissioned
// stop code (upstream answers those with 403).
func IsAccessDenied(err error) bool {
	return KindOf(err) == KindAccessDenied
}
