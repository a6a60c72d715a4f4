package httpx

import (
	"log"
	"net/http"
	"runtime/debug"
)

// RecoveryMiddleware turns a handler panic into a logged 500.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := RequestIDFrom(r)
				log.Printf("panic recovered: method=%s path=%s request_id=%s error=%v stack=%s",
					r.Method, r.URL.Path, requestID, err, string(debug.Stack()))

				// Once the status line is out, the best we can do is log.
				if rw, ok := w.(*responseWriter); ok && rw.wroteHeader() {
					return
				}
				JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
