package extractor

import (
	"context"

	"golang.org/x/time/rate"
)

// Limited throttles calls to an extractor with a token bucket.
type Limited struct {
	next    Extractor
	limiter *rate.Limiter
}

// NewLimited wraps next with a limiter of r requests per second.
// A non-positive rate returns next unchanged.
func NewLimited(next Extractor, r float64, burst int) Extractor {
	if r <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(r), burst)}
}

// Extract waits for a token, then delegates.
func (l *Limited) Extract(ctx context.Context, image []byte) (Result, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Result{}, &Error{Kind: KindUnavailable, Op: "throttle", Err: err}
	}
	return l.next.Extract(ctx, image)
}
