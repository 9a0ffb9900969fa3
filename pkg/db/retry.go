package db

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/pkg/config"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
)

// RetryPolicy bounds persistence calls with a timeout and a retry budget.
// Domain failures (record not found, typed errors) are never retried; only
// transient I/O failures are, and exhaustion surfaces as a persistence error.
type RetryPolicy struct {
	opTimeout time.Duration
	attempts  int
	backoff   time.Duration
}

// NewRetryPolicy derives a policy from the database configuration.
func NewRetryPolicy(cfg config.DBConfig) RetryPolicy {
	policy := RetryPolicy{
		opTimeout: cfg.OpTimeout,
		attempts:  cfg.RetryAttempts,
		backoff:   cfg.RetryBackoff,
	}
	if policy.opTimeout <= 0 {
		policy.opTimeout = 5 * time.Second
	}
	if policy.attempts < 0 {
		policy.attempts = 0
	}
	if policy.backoff <= 0 {
		policy.backoff = 100 * time.Millisecond
	}
	return policy
}

// DefaultRetryPolicy is the standing policy: bounded 5s operations with a
// single retry on transient failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		opTimeout: 5 * time.Second,
		attempts:  1,
		backoff:   100 * time.Millisecond,
	}
}

// EnsureRetryPolicy returns a usable policy, substituting the default for the
// zero value so services can treat the policy as optional wiring.
func EnsureRetryPolicy(p RetryPolicy) RetryPolicy {
	if p.opTimeout == 0 && p.backoff == 0 {
		return DefaultRetryPolicy()
	}
	return p
}

// Do runs fn with the policy's timeout, retrying transient failures up to the
// configured budget. The final failure is wrapped as a persistence error.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(p.attempts), retry.NewConstant(p.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
		defer cancel()

		if err := fn(opCtx); err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if IsUniqueViolation(err, "") {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, op)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if pkgerrors.As(err) != nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsUniqueViolation(err, "") {
		return false
	}
	return true
}
