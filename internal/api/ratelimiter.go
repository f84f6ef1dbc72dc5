package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimiter gates requests in front of the router. A nil limiter means no
// limiting at all.
type rateLimiter interface {
	Allow() bool
}

// tokenBucket adapts rate.Limiter to the rateLimiter seam.
type tokenBucket struct {
	limiter *rate.Limiter
}

// newTokenBucketLimiter builds the request limiter guarding the bridge. A
// rate or burst of zero or less disables limiting: the result is nil and
// rateLimitMiddleware passes requests straight through.
func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 || burst <= 0 {
		return nil
	}
	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *tokenBucket) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
