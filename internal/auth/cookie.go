package auth

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

// CookieName is the name of the session cookie.
const CookieName = "yatube_session"

// SetCookie writes the session cookie. SameSite=Lax keeps cross-site form
// posts from carrying the session.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	dropSessionCookie(w.Header())
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	dropSessionCookie(w.Header())
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// dropSessionCookie forgets a session cookie written earlier in the same
// response, so a refresh by the middleware never races a login or logout.
func dropSessionCookie(h http.Header) {
	lines := slices.DeleteFunc(h.Values("Set-Cookie"), func(line string) bool {
		return strings.HasPrefix(line, CookieName+"=")
	})
	if len(lines) == 0 {
		h.Del("Set-Cookie")
		return
	}
	h["Set-Cookie"] = lines
}

// TokenFromRequest returns the session token carried by r, if any.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
