package marketsource

import "golang.org/x/time/rate"

// NewOutboundLimiter returns a token-bucket limiter bounding outbound calls
// to the upstream market source.
func NewOutboundLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
