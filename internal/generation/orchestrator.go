package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/scry-gateway/internal/platform/metrics"
)

const tracerName = "github.com/phrazzld/scry-gateway/internal/generation"

// Call is one unit of work for the orchestrator.
type Call struct {
	// Operation names the call in logs, spans and metrics.
	Operation  string
	Prompt     string
	Schema     Schema
	Attachment *Attachment

	// Accept validates the raw response inside the retry loop. A non-nil error
	// is classified like any provider failure, so malformed output rotates credentials.
	Accept func(raw string) error
}

// RetryAttempt describes one failed attempt for log context.
type RetryAttempt struct {
	Attempt    int
	Credential string
	Class      Class
	Delay      time.Duration
}

// LogValue implements slog.LogValuer.
func (a RetryAttempt) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("attempt", a.Attempt),
		slog.String("credential", a.Credential),
		slog.String("class", a.Class.String()),
		slog.Duration("delay", a.Delay),
	)
}

// Orchestrator runs a Call against a credential pool, retrying transient
// failures with backoff and rotating credentials on quota or fatal failures.
type Orchestrator struct {
	invoker Invoker
	policy  Policy
	logger  *slog.Logger
	tracer  trace.Tracer

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator.
//
// Parameters:
//   - invoker: The single-shot provider adapter
//   - policy: Backoff and retry budget applied per credential
//   - logger: A structured logger for attempt and rotation logging
//
// Returns:
//   - A ready Orchestrator, or an error if a dependency is missing
func NewOrchestrator(invoker Invoker, policy Policy, logger *slog.Logger) (*Orchestrator, error) {
	if invoker == nil {
		return nil, fmt.Errorf("%w: invoker cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}

	return &Orchestrator{
		invoker: invoker,
		policy:  policy,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		sleep:   sleepContext,
	}, nil
}

// Run executes call against pool and returns the first accepted response.
// When every credential has failed it returns an *ExhaustedError. Context
// cancellation stops the loop immediately.
func (o *Orchestrator) Run(ctx context.Context, pool *CredentialPool, call Call) (string, error) {
	if pool == nil {
		return "", ErrNoCredentials
	}

	var (
		lastErr   error
		lastClass = ClassFatal
		provider  = o.invoker.Name()
	)

	for !pool.Exhausted() {
		slot, ok := pool.Next()
		if !ok {
			break
		}

		raw, class, err := o.runCredential(ctx, slot, call)
		if err == nil {
			return raw, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, ctxErr)
		}

		lastErr, lastClass = err, class
		pool.MarkFailed(slot)
		metrics.CredentialRotated(provider, class.String())

		o.logger.WarnContext(ctx, "credential marked failed, rotating",
			"operation", call.Operation,
			"credential", slot.Name,
			"class", class.String(),
			"failed_count", len(pool.Failed()),
			"pool_size", pool.Len(),
			"error", err)
	}

	metrics.PoolExhausted(provider, lastClass.String())
	exhausted := &ExhaustedError{Class: lastClass, Failed: pool.Failed(), Last: lastErr}

	o.logger.ErrorContext(ctx, "credential pool exhausted",
		"operation", call.Operation,
		"class", lastClass.String(),
		"failed", exhausted.Failed,
		"error", lastErr)

	return "", exhausted
}

// runCredential spends the retry budget of one credential. The decision for
// each failure is a single switch over its classification.
func (o *Orchestrator) runCredential(ctx context.Context, slot *CredentialSlot, call Call) (string, Class, error) {
	for attempt := 1; ; attempt++ {
		raw, err := o.attempt(ctx, slot, call, attempt)
		if err == nil {
			return raw, ClassFatal, nil
		}
		if ctx.Err() != nil {
			return "", ClassFatal, err
		}

		class := Classify(err)
		switch class {
		case ClassRetryable:
			if attempt >= o.policy.MaxRetries {
				o.logger.WarnContext(ctx, "retry budget exhausted for credential",
					"operation", call.Operation,
					"credential", slot.Name,
					"attempts", attempt)
				return "", class, err
			}

			retry := RetryAttempt{
				Attempt:    attempt,
				Credential: slot.Name,
				Class:      class,
				Delay:      o.policy.Delay(attempt),
			}
			o.logger.InfoContext(ctx, "retrying after delay",
				"operation", call.Operation,
				"retry", retry,
				"error", err)

			if err := o.sleep(ctx, retry.Delay); err != nil {
				return "", ClassFatal, err
			}
		default:
			return "", class, err
		}
	}
}

// attempt makes one provider call and runs the acceptance hook on its output.
func (o *Orchestrator) attempt(ctx context.Context, slot *CredentialSlot, call Call, attempt int) (string, error) {
	provider := o.invoker.Name()
	ctx, span := o.tracer.Start(ctx, "generation.attempt",
		trace.WithAttributes(
			attribute.String("gen.provider", provider),
			attribute.String("gen.operation", call.Operation),
			attribute.String("gen.credential", slot.Name),
			attribute.Int("gen.attempt", attempt),
		))
	defer span.End()

	o.logger.DebugContext(ctx, "making provider call",
		"provider", provider,
		"operation", call.Operation,
		"credential", slot.Name,
		"attempt", attempt,
		"max_attempts", o.policy.MaxRetries)

	start := time.Now()
	raw, err := o.invoke(ctx, slot, call)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = ErrEmptyResponse
	}
	if err == nil && call.Accept != nil {
		err = call.Accept(raw)
	}
	elapsed := time.Since(start)

	if err != nil {
		class := Classify(err)
		metrics.ObserveAttempt(provider, call.Operation, class.String(), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, class.String())
		o.logger.DebugContext(ctx, "provider call failed",
			"provider", provider,
			"credential", slot.Name,
			"attempt", attempt,
			"class", class.String(),
			"error", err)
		return "", err
	}

	metrics.ObserveAttempt(provider, call.Operation, "success", elapsed)
	span.SetStatus(codes.Ok, "")
	o.logger.DebugContext(ctx, "provider call succeeded",
		"provider", provider,
		"credential", slot.Name,
		"attempt", attempt,
		"response_length", len(raw))
	return raw, nil
}

// invoke makes the provider call under the per-attempt budget. Expiry of that
// budget surfaces as context.DeadlineExceeded so it classifies as retryable.
func (o *Orchestrator) invoke(ctx context.Context, slot *CredentialSlot, call Call) (string, error) {
	if o.policy.AttemptTimeout <= 0 {
		return o.invoker.Invoke(ctx, slot.Credential, call.Prompt, call.Schema, call.Attachment)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
	defer cancel()

	raw, err := o.invoker.Invoke(attemptCtx, slot.Credential, call.Prompt, call.Schema, call.Attachment)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: attempt exceeded %s: %w", context.DeadlineExceeded, o.policy.AttemptTimeout, err)
	}
	return raw, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
