package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
)

type CookieConfig struct {
	Secure        bool
	Domain        string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	}
}

func (c CookieConfig) setTokens(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, c.cookie(common.AccessTokenCookieName, access, c.AccessMaxAge))
	http.SetCookie(w, c.cookie(common.RefreshTokenCookieName, refresh, c.RefreshMaxAge))
}

func (c CookieConfig) clearTokens(w http.ResponseWriter) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}
