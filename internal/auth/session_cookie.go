package auth

import (
	"net/http"
	"time"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "ignitecall.session-token"

// SetSessionCookie はセッショントークンをCookieに設定する。有効期限はセッションに合わせる。
func SetSessionCookie(w http.ResponseWriter, session AdapterSession, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.SessionToken,
		Path:     "/",
		Expires:  session.Expires,
		MaxAge:   int(time.Until(session.Expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを破棄する。
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken はリクエストのCookieからセッショントークンを取り出す。
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
