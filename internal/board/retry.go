package board

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryProfile controls the retry envelope for provider calls. The delay
// before retry i (0-indexed) is BaseDelay*2^i plus a uniform jitter in
// [0, BaseDelay).
type RetryProfile struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryProfile is applied to every provider call.
var DefaultRetryProfile = RetryProfile{MaxAttempts: 5, BaseDelay: 120 * time.Millisecond}

// FastRetryProfile adds an extra retry envelope around high-priority
// mutations (create, move) on top of the provider-wide one.
var FastRetryProfile = RetryProfile{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond}

// jitterBackoff implements backoff.BackOff with the exact delay formula
// above. BackOff implementations are stateful; always use a fresh instance.
type jitterBackoff struct {
	profile RetryProfile
	attempt int
}

func (b *jitterBackoff) NextBackOff() time.Duration {
	if b.attempt >= b.profile.MaxAttempts-1 {
		return backoff.Stop
	}
	base := b.profile.BaseDelay
	if base < time.Millisecond {
		// Misconfigured profiles must not panic rand.Int63n.
		base = time.Millisecond
	}
	d := base<<uint(b.attempt) + time.Duration(rand.Int63n(int64(base)))
	b.attempt++
	return d
}

func (b *jitterBackoff) Reset() { b.attempt = 0 }

// retryable reports whether an error is worth retrying. Resolution and
// validation failures never change outcome on retry; everything else is
// assumed to be a transient provider error.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var amb *AmbiguousError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrColumnNotFound) ||
		errors.Is(err, ErrValidation) || errors.As(err, &amb) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Retry runs op under the given profile, returning the last error after
// the attempts are exhausted.
func Retry(ctx context.Context, profile RetryProfile, op func() error) error {
	bo := backoff.WithContext(&jitterBackoff{profile: profile}, ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

// RetryingProvider decorates a Provider so every call is retried with
// backoff and jitter.
type RetryingProvider struct {
	inner   Provider
	profile RetryProfile
}

// WithRetry wraps p with the default retry profile.
func WithRetry(p Provider) *RetryingProvider {
	return &RetryingProvider{inner: p, profile: DefaultRetryProfile}
}

// WithRetryProfile wraps p with an explicit profile.
func WithRetryProfile(p Provider, profile RetryProfile) *RetryingProvider {
	return &RetryingProvider{inner: p, profile: profile}
}

func (r *RetryingProvider) GetColumns(ctx context.Context) ([]Column, error) {
	var cols []Column
	err := Retry(ctx, r.profile, func() error {
		var err error
		cols, err = r.inner.GetColumns(ctx)
		return err
	})
	return cols, err
}

func (r *RetryingProvider) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := Retry(ctx, r.profile, func() error {
		var err error
		tasks, err = r.inner.ListTasks(ctx)
		return err
	})
	return tasks, err
}

func (r *RetryingProvider) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	var tasks []Task
	err := Retry(ctx, r.profile, func() error {
		var err error
		tasks, err = r.inner.SearchTasks(ctx, query)
		return err
	})
	return tasks, err
}

func (r *RetryingProvider) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task *Task
	err := Retry(ctx, r.profile, func() error {
		var err error
		task, err = r.inner.GetTask(ctx, taskID)
		return err
	})
	return task, err
}

func (r *RetryingProvider) CreateTask(ctx context.Context, title, description string) (string, error) {
	var id string
	err := Retry(ctx, r.profile, func() error {
		var err error
		id, err = r.inner.CreateTask(ctx, title, description)
		return err
	})
	return id, err
}

func (r *RetryingProvider) MoveTask(ctx context.Context, taskID, columnID string, position int, swimlaneID string) error {
	return Retry(ctx, r.profile, func() error {
		return r.inner.MoveTask(ctx, taskID, columnID, position, swimlaneID)
	})
}

func (r *RetryingProvider) UpdateTask(ctx context.Context, taskID string, updates TaskUpdates) error {
	return Retry(ctx, r.profile, func() error {
		return r.inner.UpdateTask(ctx, taskID, updates)
	})
}

func (r *RetryingProvider) AddComment(ctx context.Context, taskID, comment string) error {
	return Retry(ctx, r.profile, func() error {
		return r.inner.AddComment(ctx, taskID, comment)
	})
}

func (r *RetryingProvider) DeactivateTask(ctx context.Context, taskID string) error {
	return Retry(ctx, r.profile, func() error {
		return r.inner.DeactivateTask(ctx, taskID)
	})
}
