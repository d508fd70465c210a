package internal

import "net/http"

const (
	SessionCookie       = "skribly_session"
	SessionCookieLegacy = "skribly_session_id"
	SessionHeader       = "X-Session-ID"
)

// SessionFromRequest resolves the caller's session ID, trying the session
// cookie, the explicit client-set cookie, then the header. Returns "" when
// none is present.
func SessionFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if c, err := r.Cookie(SessionCookieLegacy); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(SessionHeader)
}
