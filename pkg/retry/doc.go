// Package retry runs operations with exponential backoff and provides the
// context-aware sleeping used across the scraper.
//
// Browser launch and navigation are retried on adapter errors:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return session.Navigate(ctx, url)
//	}, retry.FromConfig(cfg.Retry, log))
//
// Typed errors are retried only when errors.IsRetryable says so; context
// cancellation is never retried. Every wait goes through a Sleeper so
// callers can substitute a fake clock in tests.
package retry
