package httpx

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
)

// StatusCoder is implemented by authorization errors that are safe to show
// to the caller. Anything else is answered with a generic 500.
type StatusCoder interface {
	error
	StatusCode() int
	ErrorCode() string
}

// AuthorizeFunc resolves the caller from the raw Authorization header.
type AuthorizeFunc func(ctx context.Context, authorization string) (userID int64, role string, err error)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. It returns "" when the scheme is missing or the token empty.
func BearerToken(authorization string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func AuthMiddleware(authorize AuthorizeFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, role, err := authorize(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				var sc StatusCoder
				if errors.As(err, &sc) {
					log.Printf("auth rejected: method=%s path=%s request_id=%s reason=%q",
						r.Method, r.URL.Path, RequestIDFrom(r), sc.Error())
					JSONError(w, r, sc.StatusCode(), sc.ErrorCode(), sc.Error(), nil)
					return
				}
				InternalError(w, r, "authorize", err)
				return
			}

			if rw, ok := w.(*responseWriter); ok {
				rw.userID = userID
			}
			ctx := ContextWithUser(r.Context(), userID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
