package utils

import (
	"net/http"
	"time"
)

// Admin session cookie names. These are browser cookies, httpOnly so the
// admin SPA never reads them directly.
const (
	AccessCookieName  = "accesstoken"
	RefreshCookieName = "refreshtoken"
)

// CookiePolicy derives admin cookie attributes from the environment.
// Secure and a real domain only apply in production; locally the cookies
// stay host-scoped so the dev frontend can talk to the API.
type CookiePolicy struct {
	Prod   bool
	Domain string
}

// Cookie builds a session cookie whose max age matches the lifetime of
// the token it carries, so cookie and token always expire together.
func (p CookiePolicy) Cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Prod,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	}
	if p.Prod {
		c.Domain = p.Domain
	}
	return c
}

// Expired returns a clearing cookie for the given name.
func (p CookiePolicy) Expired(name string) *http.Cookie {
	c := p.Cookie(name, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}
