package generation

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/phrazzld/scry-gateway/internal/domain"
)

// Class is the retry classification of a failed provider call.
type Class int

const (
	// ClassFatal failures are not retried on the same credential.
	ClassFatal Class = iota
	// ClassRetryable failures are transient and retried with backoff on the same credential.
	ClassRetryable
	// ClassQuota failures mean the credential is throttled and must be rotated immediately.
	ClassQuota
)

func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassQuota:
		return "quota"
	default:
		return "fatal"
	}
}

// IsRetryable reports whether the failure is transient from the caller's point of view.
// Quota failures count as retryable: another credential, or a later call, may succeed.
func (c Class) IsRetryable() bool {
	return c == ClassRetryable || c == ClassQuota
}

// Default backoff settings.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultJitter     = 1 * time.Second

	// DefaultAttemptTimeout bounds a single provider call.
	DefaultAttemptTimeout = 15 * time.Second
)

// Policy is a capped exponential backoff with additive jitter.
type Policy struct {
	// MaxRetries is the number of attempts made on one credential for retryable failures.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration

	// AttemptTimeout bounds one provider call. A call that exceeds it fails
	// as retryable while the caller's context is still live. Zero disables it.
	AttemptTimeout time.Duration

	// jitterFn returns a value in [0, n). Tests replace it to make delays deterministic.
	jitterFn func(n time.Duration) time.Duration
}

// DefaultPolicy returns the standard policy: 3 attempts, 1s base, 10s cap,
// 1s jitter and 15s per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     DefaultMaxRetries,
		BaseDelay:      DefaultBaseDelay,
		MaxDelay:       DefaultMaxDelay,
		Jitter:         DefaultJitter,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Delay returns the wait before retry number attempt (1-based):
// min(MaxDelay, BaseDelay*2^(attempt-1) + rand[0, Jitter)).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempt && (p.MaxDelay <= 0 || delay < p.MaxDelay); i++ {
		delay *= 2
	}

	if p.Jitter > 0 {
		delay += p.jitter(p.Jitter)
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func (p Policy) jitter(n time.Duration) time.Duration {
	if p.jitterFn != nil {
		return p.jitterFn(n)
	}
	return rand.N(n)
}

// BackOff adapts the policy to the backoff.BackOff interface, stopping after
// MaxRetries attempts in total.
func (p Policy) BackOff() backoff.BackOff {
	return &policyBackOff{policy: p}
}

type policyBackOff struct {
	policy  Policy
	attempt int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.policy.MaxRetries > 0 && b.attempt >= b.policy.MaxRetries {
		return backoff.Stop
	}
	return b.policy.Delay(b.attempt)
}

func (b *policyBackOff) Reset() {
	b.attempt = 0
}

// statusOverloaded is the non-standard status some providers return when at capacity.
const statusOverloaded = 529

var (
	quotaMarkers = []string{
		"quota",
		"rate limit",
		"rate_limit",
		"ratelimit",
		"resource_exhausted",
		"too many requests",
		"429",
	}
	transientMarkers = []string{
		"network",
		"timeout",
		"timed out",
		"deadline exceeded",
		"fetch",
		"connection reset",
		"connection refused",
		"unexpected eof",
		"unavailable",
		"overloaded",
		"500",
		"502",
		"503",
		"504",
	}
)

// Classify maps err onto a Class. Rules are checked in order: sentinel errors,
// then the provider HTTP status, then message substrings. Anything unmatched is fatal.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrEmptyResponse),
		errors.Is(err, ErrContentBlocked),
		errors.Is(err, ErrAttachmentUnsupported),
		errors.Is(err, domain.ErrNoContent):
		return ClassFatal
	case errors.Is(err, context.DeadlineExceeded):
		return ClassRetryable
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		switch perr.StatusCode {
		case http.StatusTooManyRequests:
			return ClassQuota
		case http.StatusRequestTimeout,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			statusOverloaded:
			return ClassRetryable
		}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ClassRetryable
	}

	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return ClassQuota
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return ClassRetryable
		}
	}

	return ClassFatal
}

// IsRetryableMessage reports whether msg looks like a transient failure. It is
// used where only an error string is available, such as a gateway error envelope.
func IsRetryableMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, markers := range [][]string{quotaMarkers, transientMarkers} {
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return true
			}
		}
	}
	return strings.Contains(lower, "busy")
}
