package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func csrfCookieFrom(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == csrfCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFMiddleware_SafeMethods_PassThroughWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			handlerCalled := false
			handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, "/schedule/diego", nil))

			if !handlerCalled {
				t.Fatalf("handler should have been called for %s request", method)
			}
		})
	}
}

func TestCSRFMiddleware_GETRequest_SetsCookieAndExposesToken(t *testing.T) {
	var tokenInContext string
	handler := NewCSRFMiddleware(CSRFConfig{CookieDomain: "example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenInContext = CSRFTokenFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/register", nil))

	cookie := csrfCookieFrom(w.Result())
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected CSRF cookie to be set on GET request")
	}
	if cookie.HttpOnly {
		t.Error("CSRF cookie should NOT be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode || cookie.Path != "/" {
		t.Errorf("cookie attributes = %+v", cookie)
	}
	// 初回表示のフォームにも同じトークンを埋め込める
	if tokenInContext != cookie.Value {
		t.Errorf("context token = %q, cookie = %q", tokenInContext, cookie.Value)
	}
}

func TestCSRFMiddleware_GETRequest_ExistingCookie_DoesNotReplace(t *testing.T) {
	var tokenInContext string
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenInContext = CSRFTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if csrfCookieFrom(w.Result()) != nil {
		t.Error("CSRF cookie should not be re-set when already present")
	}
	if tokenInContext != "existing-token" {
		t.Errorf("context token = %q", tokenInContext)
	}
}

func TestCSRFMiddleware_StateChangingRequests(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		cookie      string
		header      string
		form        string
		wantAllowed bool
	}{
		{name: "POST Cookieなし", method: http.MethodPost, header: "tok", wantAllowed: false},
		{name: "POST トークンなし", method: http.MethodPost, cookie: "tok", wantAllowed: false},
		{name: "POST ヘッダー不一致", method: http.MethodPost, cookie: "tok", header: "other", wantAllowed: false},
		{name: "POST ヘッダー一致", method: http.MethodPost, cookie: "tok", header: "tok", wantAllowed: true},
		{name: "POST フォーム一致", method: http.MethodPost, cookie: "tok", form: "tok", wantAllowed: true},
		{name: "POST フォーム不一致", method: http.MethodPost, cookie: "tok", form: "other", wantAllowed: false},
		{name: "PUT ヘッダー一致", method: http.MethodPut, cookie: "tok", header: "tok", wantAllowed: true},
		{name: "PATCH トークンなし", method: http.MethodPatch, wantAllowed: false},
		{name: "DELETE トークンなし", method: http.MethodDelete, wantAllowed: false},
		{name: "DELETE ヘッダー一致", method: http.MethodDelete, cookie: "tok", header: "tok", wantAllowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			}))

			var req *http.Request
			if tt.form != "" {
				body := url.Values{CSRFFormField: {tt.form}}.Encode()
				req = httptest.NewRequest(tt.method, "/register", strings.NewReader(body))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				req = httptest.NewRequest(tt.method, "/api/test", nil)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if handlerCalled != tt.wantAllowed {
				t.Errorf("handler called = %v, want %v", handlerCalled, tt.wantAllowed)
			}
			if !tt.wantAllowed && w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
			}
		})
	}
}

// --- CSRFトークン取得エンドポイントのテスト ---

func TestCSRFTokenHandler_SetsTokenCookieAndReturnsJSON(t *testing.T) {
	h := NewCSRFTokenHandler(CSRFConfig{CookieDomain: "example.com"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	cookie := csrfCookieFrom(resp)
	if cookie == nil {
		t.Fatal("expected CSRF cookie to be set")
	}
	if body.Token == "" || cookie.Value != body.Token {
		t.Errorf("cookie value = %q, response token = %q; should match", cookie.Value, body.Token)
	}
}

func TestCSRFTokenHandler_ExistingCookie_ReturnsSameToken(t *testing.T) {
	h := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-csrf-token"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Token != "existing-csrf-token" {
		t.Errorf("token = %q, want existing token", body.Token)
	}
}
