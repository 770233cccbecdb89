package auth

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the cookie that carries the session token.
const CookieName = "Authentication"

type CookieOptions struct {
	Secure   bool
	SameSite string
	Domain   string
}

func (o CookieOptions) sameSite() http.SameSite {
	switch strings.ToLower(o.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SessionCookie is the HTTP-only cookie set on a successful login. It
// expires together with the token it carries.
func SessionCookie(s Session, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    s.Token,
		Path:     "/",
		Domain:   opts.Domain,
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.sameSite(),
	}
}

// ExpiredCookie clears the session cookie.
func ExpiredCookie(opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.sameSite(),
	}
}

// TokenFromRequest reads the session token from the cookie, falling back to
// an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
