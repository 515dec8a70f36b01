// Package session owns the mapping from a token pair to the cookie pair
// carried by browsers. Every path that sets or clears session cookies
// (signup, signin, refresh, set-session, signout, silent refresh) goes
// through one Policy so the attributes can never diverge between set and
// clear.
package session

import (
	"net/http"
	"time"
)

// RememberMaxAge is the persistent-cookie lifetime when "remember" was
// requested at login: 60 days, in seconds.
const RememberMaxAge = int(60 * 24 * time.Hour / time.Second)

// Policy is the pure cookie-attribute computation. It is built once from
// the environment and never mutated.
type Policy struct {
	AccessName  string
	RefreshName string
	Secure      bool
	SameSite    http.SameSite
	Domain      string
}

// NewPolicy derives the cookie policy from the environment. sameSite may
// override the default, which is None in production (cross-site frontend
// over HTTPS) and Lax in development.
func NewPolicy(accessName, refreshName string, secure bool, sameSite string, domain string) Policy {
	p := Policy{
		AccessName:  accessName,
		RefreshName: refreshName,
		Secure:      secure,
		Domain:      domain,
	}
	switch sameSite {
	case "strict":
		p.SameSite = http.SameSiteStrictMode
	case "lax":
		p.SameSite = http.SameSiteLaxMode
	case "none":
		p.SameSite = http.SameSiteNoneMode
	default:
		if secure {
			p.SameSite = http.SameSiteNoneMode
		} else {
			p.SameSite = http.SameSiteLaxMode
		}
	}
	return p
}

// Pair returns the access/refresh cookie pair for a token pair. remember
// selects a 60-day persistent pair; otherwise the cookies are
// session-scoped (no MaxAge).
func (p Policy) Pair(accessToken, refreshToken string, remember bool) []*http.Cookie {
	maxAge := 0
	if remember {
		maxAge = RememberMaxAge
	}
	return []*http.Cookie{
		p.cookie(p.AccessName, accessToken, maxAge),
		p.cookie(p.RefreshName, refreshToken, maxAge),
	}
}

// Cleared returns the expiring pair. Attributes match Pair exactly;
// browsers only honor the clear when SameSite/Secure/Domain agree with the
// set.
func (p Policy) Cleared() []*http.Cookie {
	return []*http.Cookie{
		p.cookie(p.AccessName, "", -1),
		p.cookie(p.RefreshName, "", -1),
	}
}

func (p Policy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

// Write sets a cookie batch on the response.
func Write(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}
