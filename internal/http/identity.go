package http

import (
	"net/http"
	"strconv"
	"strings"

	"reimburse/internal/core"
	"reimburse/internal/log"
)

// HeaderUserID names the acting user of a request.
const HeaderUserID = "X-User-ID"

// withIdentity puts the acting user in the request context. A malformed
// header is rejected; a missing one falls back to defaultUser when set.
// Requests without any identity reach the services anonymous, and writes
// then fail with a validation error.
func withIdentity(defaultUser core.UserID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := defaultUser
			if raw := strings.TrimSpace(r.Header.Get(HeaderUserID)); raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					ErrorResponse(&badRequestError{core.Invalidf("invalid %s header %q", HeaderUserID, raw)}).Write(w)
					return
				}
				user = core.UserID(id)
			}
			if user <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := core.WithActor(r.Context(), user)
			ctx = log.WithContext(ctx, log.FromContext(ctx).With(log.FieldActor, int64(user)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
