package handlers

import (
	"net/http"
	"time"

	"github.com/handsomefox/nextep/internal/env"
)

const (
	authCookieName   = "trakt_token"
	browseCookieName = "nextep_browse"

	// Used when Trakt omits expires_in.
	defaultTokenLifetime = 90 * 24 * time.Hour
)

func setAuthCookie(w http.ResponseWriter, value string, lifetime time.Duration) {
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(lifetime),
		MaxAge:   int(lifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   env.Current.Secure(),
	})
}

func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   env.Current.Secure(),
	})
}

// setBrowseCookie is session scoped: closing the browser drops the list.
func setBrowseCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     browseCookieName,
		Value:    id,
		Path:     "/api/browse",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   env.Current.Secure(),
	})
}

func authToken(r *http.Request) string {
	c, err := r.Cookie(authCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
