package security

import (
	"net/http"
	"time"
)

const AssertionCookieName = "access_token"

// CookieManager centralizes cookie attributes so every handler sets the
// assertion cookie with the same domain, secure, and same-site policy.
type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	mode := http.SameSiteLaxMode
	switch sameSite {
	case "strict":
		mode = http.SameSiteStrictMode
	case "none":
		mode = http.SameSiteNoneMode
	}
	return &CookieManager{Domain: domain, Secure: secure, SameSite: mode}
}

// SetAssertionCookie stores the stage-1 assertion as an HttpOnly bearer
// cookie, mirroring the token returned in the response body.
func (m *CookieManager) SetAssertionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AssertionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
}

func (m *CookieManager) ClearAssertionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AssertionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
}

// GetCookie returns the named cookie value or "".
func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// AssertionFromRequest extracts the assertion from the cookie or, failing
// that, a bearer Authorization header.
func AssertionFromRequest(r *http.Request) string {
	if v := GetCookie(r, AssertionCookieName); v != "" {
		return v
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
