package errors

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// common errors
	ErrConnectionTimeout = errors.New("connection timeout")

	// audio proxy errors
	ErrMalformedReference = errors.New("malformed audio reference")
)

// AuthError means the provider rejected the account credentials.
// It is terminal for the affected mailbox: retrying with the same
// credentials cannot succeed.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "voipms: authentication failed: " + e.Reason
}

// TransientError covers network failures and provider 5xx responses.
// The previous snapshot stays in place and the call is retried with backoff.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return "voipms: transient failure: " + e.Cause.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// RateLimitedError means the provider throttled the request.
// RetryAfter is the provider-suggested delay; zero means no hint was given.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "voipms: rate limited"
}

// NotFoundError means the referenced message no longer exists upstream.
type NotFoundError struct {
	Reference string
}

func (e *NotFoundError) Error() string {
	return "voipms: not found: " + e.Reference
}

func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

func IsRateLimited(err error) (time.Duration, bool) {
	var target *RateLimitedError
	if errors.As(err, &target) {
		return target.RetryAfter, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
