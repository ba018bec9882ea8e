package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// BrowserContextKey carries the anonymous browser identifier through the
// request context. Cart and session state is keyed on it.
const BrowserContextKey contextKey = "browserID"

const anonCookieName = "anon_id"

// one year; the identifier outlives login sessions and logout
const anonCookieMaxAge = 365 * 24 * 60 * 60

// AnonIDMiddleware assigns each browser a stable anonymous identifier via a
// cookie. Logout clears the session but never this cookie, so the cart
// survives across logins.
func AnonIDMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var browserID string
			if cookie, err := r.Cookie(anonCookieName); err == nil && cookie.Value != "" {
				browserID = cookie.Value
			} else {
				browserID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     anonCookieName,
					Value:    browserID,
					Path:     "/",
					MaxAge:   anonCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), BrowserContextKey, browserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BrowserID extracts the anonymous identifier set by AnonIDMiddleware.
func BrowserID(r *http.Request) string {
	id, _ := r.Context().Value(BrowserContextKey).(string)
	return id
}
