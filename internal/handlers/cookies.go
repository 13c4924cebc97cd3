package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
)

const (
	sessionCookieBase     = "next-auth.session-token"
	csrfCookieBase        = "next-auth.csrf-token"
	callbackURLCookieBase = "next-auth.callback-url"
)

var authCookieBases = []string{sessionCookieBase, csrfCookieBase, callbackURLCookieBase}

var cookiePrefixes = []string{"", "__Secure-", "__Host-"}

type cookieJar struct {
	secure bool
}

func newCookieJar(baseURL string) cookieJar {
	return cookieJar{secure: strings.HasPrefix(baseURL, "https://")}
}

// name returns the cookie name for base. Secure deployments use the __Secure- prefix,
// or __Host- for the CSRF cookie.
func (j cookieJar) name(base string) string {
	switch {
	case !j.secure:
		return base
	case base == csrfCookieBase:
		return "__Host-" + base
	default:
		return "__Secure-" + base
	}
}

func (j cookieJar) set(c *drift.Context, base, value string, expires time.Time, httpOnly bool) {
	cookie := &http.Cookie{
		Name:     j.name(base),
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires
		cookie.MaxAge = int(time.Until(expires).Seconds())
	}
	setCookie(c, cookie)
}

func (j cookieJar) get(c *drift.Context, base string) string {
	if cookie, err := c.Request.Cookie(j.name(base)); err == nil {
		return cookie.Value
	}
	return ""
}

// clearAuthCookies expires every auth cookie under every prefix, whichever mode set them.
func clearAuthCookies(c *drift.Context) {
	for _, base := range authCookieBases {
		for _, prefix := range cookiePrefixes {
			setCookie(c, &http.Cookie{
				Name:     prefix + base,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				Expires:  time.Unix(0, 0),
				Secure:   prefix != "",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
}

func setCookie(c *drift.Context, cookie *http.Cookie) {
	if v := cookie.String(); v != "" {
		c.Response.Header().Add("Set-Cookie", v)
	}
}
