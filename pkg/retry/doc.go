// Package retry re-runs transport operations that failed for transient
// reasons, with exponential backoff between tries.
//
// The default policy makes exactly one attempt. Raising retry.max_attempts
// enables retries for network errors, 429 and 5xx responses.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return fetchOnce(ctx)
//	}, retry.FromConfig(cfg.Retry, log))
package retry
