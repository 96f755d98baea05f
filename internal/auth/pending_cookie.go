package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PendingUserCookieName はユーザー名確保後、カレンダー接続完了までの仮登録ユーザーIDを保持するCookie名。
const PendingUserCookieName = "@ignitecall:userId"

// PendingUserCookieMaxAge は仮登録Cookieの有効期間。
const PendingUserCookieMaxAge = 7 * 24 * time.Hour

// net/httpのCookie名検証は'@'と':'を許可しないため、Set-Cookieヘッダーを直接組み立てる。
func pendingCookieHeader(value string, maxAge int, secure bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s; Path=/; Max-Age=%d", PendingUserCookieName, url.QueryEscape(value), maxAge)
	if maxAge < 0 {
		b.WriteString("; Expires=Thu, 01 Jan 1970 00:00:00 GMT")
	}
	b.WriteString("; HttpOnly; SameSite=Lax")
	if secure {
		b.WriteString("; Secure")
	}
	return b.String()
}

// SetPendingUserCookie は仮登録ユーザーIDをCookieに設定する。
func SetPendingUserCookie(w http.ResponseWriter, userID string, secure bool) {
	w.Header().Add("Set-Cookie", pendingCookieHeader(userID, int(PendingUserCookieMaxAge.Seconds()), secure))
}

// ClearPendingUserCookie は仮登録Cookieを破棄する。
// secureは設定時と揃えないとブラウザが別Cookieとして扱う。
func ClearPendingUserCookie(w http.ResponseWriter, secure bool) {
	w.Header().Add("Set-Cookie", pendingCookieHeader("", -1, secure))
}

// PendingUserID はリクエストのCookieヘッダーから仮登録ユーザーIDを取り出す。
// 存在しない場合は空文字列を返す。
func PendingUserID(r *http.Request) string {
	for _, header := range r.Header.Values("Cookie") {
		for _, part := range strings.Split(header, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok || name != PendingUserCookieName {
				continue
			}
			decoded, err := url.QueryUnescape(strings.Trim(value, `"`))
			if err != nil {
				return ""
			}
			return decoded
		}
	}
	return ""
}
