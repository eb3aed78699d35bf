package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// WriteHeaders sets the quota headers for d. Retry-After is only set on a
// rejected decision and is rounded up to whole seconds.
func WriteHeaders(h http.Header, d Decision, now time.Time) {
	h.Set(headerRateLimitRequests, strconv.FormatInt(d.Limit, 10))
	h.Set(headerRateLimitRemainingRequests, strconv.FormatInt(d.Remaining, 10))
	h.Set(headerRateLimitReset, d.ResetAt.Format(time.RFC3339))

	if !d.Allowed {
		secs := int64(math.Ceil(d.RetryAfter(now).Seconds()))
		h.Set(headerRetryAfter, strconv.FormatInt(secs, 10))
	}
}
