package handlers

import (
	"net/http"
	"strings"
	"time"

	"ukepenger/internal/platform/config"
)

// Cookies writes the kiosk session and child pin cookies.
type Cookies struct {
	KioskName   string
	ChildName   string
	KioskTTL    time.Duration
	ChildPinTTL time.Duration
	Secure      bool
}

func NewCookies(cfg config.SessionConfig) Cookies {
	return Cookies{
		KioskName:   cfg.KioskCookieName,
		ChildName:   cfg.ChildCookieName,
		KioskTTL:    cfg.KioskTTL,
		ChildPinTTL: cfg.ChildPinTTL,
		Secure:      cfg.SecureCookies,
	}
}

func (c Cookies) secure(r *http.Request) bool {
	if c.Secure || r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (c Cookies) set(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) SetKiosk(w http.ResponseWriter, r *http.Request, value string) {
	c.set(w, r, c.KioskName, value, c.KioskTTL)
}

func (c Cookies) SetChildPin(w http.ResponseWriter, r *http.Request, childID string) {
	c.set(w, r, c.ChildName, childID, c.ChildPinTTL)
}

func (c Cookies) ClearAll(w http.ResponseWriter, r *http.Request) {
	c.clear(w, r, c.KioskName)
	c.clear(w, r, c.ChildName)
}

func (c Cookies) Kiosk(r *http.Request) string {
	if ck, err := r.Cookie(c.KioskName); err == nil {
		return ck.Value
	}
	return ""
}

func (c Cookies) ChildPin(r *http.Request) string {
	if ck, err := r.Cookie(c.ChildName); err == nil {
		return ck.Value
	}
	return ""
}
