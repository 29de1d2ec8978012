package ratelimit

import (
	"net"
	"net/http"
	"strconv"

	"caretrack/internal/transport/http/shared"
	dErrors "caretrack/pkg/domain-errors"
)

// Middleware throttles by client IP and answers 429 with the standard error
// envelope. X-RateLimit headers are set on every response so devices can back
// off before hitting the limit.
func Middleware(limiter *SlidingWindow) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Allow(clientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				shared.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many reports, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
