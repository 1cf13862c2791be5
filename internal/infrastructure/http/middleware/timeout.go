package middleware

import (
	"context"
	"net/http"
	"time"
)

// writeGrace is the time left for writing the response once d has elapsed.
const writeGrace = 5 * time.Second

// Timeout bounds the request context with d. Handlers see the deadline
// through r.Context() and pass it on to AvaTax calls. The connection's write
// deadline is moved to d plus a short grace so the server's WriteTimeout
// cannot cut off a response the route is allowed to take longer for.
// A non-positive d is a no-op.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Recorders and other writers without deadlines return ErrNotSupported.
			_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d + writeGrace))

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
