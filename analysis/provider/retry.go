package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type retryCompleter struct {
	next       Completer
	maxRetries int
	initial    time.Duration
}

// WithRetry wraps c so that transport failures, 429s and 5xx responses are
// retried with exponential backoff. maxRetries <= 0 returns c unchanged.
func WithRetry(c Completer, maxRetries int, initial time.Duration) Completer {
	if maxRetries <= 0 || c == nil {
		return c
	}
	if initial <= 0 {
		initial = 2 * time.Second
	}
	return &retryCompleter{next: c, maxRetries: maxRetries, initial: initial}
}

func (r *retryCompleter) Complete(ctx context.Context, prompt, text string, maxTokens int) (string, error) {
	var out string
	var lastErr error
	operation := func() error {
		s, err := r.next.Complete(ctx, prompt, text, maxTokens)
		if err != nil {
			lastErr = err
			if Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = s
		lastErr = nil
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.maxRetries)), ctx)

	if err := backoff.Retry(operation, b); err != nil {
		if lastErr != nil {
			return "", lastErr
		}
		return "", &TransportError{Err: err}
	}
	return out, nil
}
