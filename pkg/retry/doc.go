// Package retry provides a bounded retry combinator with pluggable backoff.
//
// The combinator is parameterized by a predicate that classifies errors as
// retryable, a maximum number of attempts and a backoff strategy. Upstream
// throttling uses ThrottleConfig: a constant cool-down between attempts and
// ErrTooManyRetries once the budget is spent.
//
//	items, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]models.ContentItem, error) {
//		return source.Listing(ctx, "startups", query)
//	}, retry.ThrottleConfig(5, time.Minute, log))
//	if errors.Is(err, errs.ErrTooManyRetries) {
//		// skip this subreddit
//	}
package retry
