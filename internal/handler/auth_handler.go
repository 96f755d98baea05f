package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/metrics"
	"github.com/hitoshi/ignitecall/internal/middleware"
)

const oauthStateCookie = "oauth_state"

// 認証後の遷移先
const (
	connectCalendarPath        = "/register/connect-calendar"
	permissionsErrorRedirect   = connectCalendarPath + "?error=permissions"
	pendingUserMissingRedirect = "/register"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, adapter auth.PersistenceAdapter, code string) (*auth.AdapterSession, error)
	Logout(ctx context.Context, adapter auth.PersistenceAdapter, sessionToken string) error
}

// AuthMetrics は認証コールバックの結果を記録する。
type AuthMetrics interface {
	RecordAuthCallback(result string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	store   auth.Store
	config  AuthHandlerConfig
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。recorderがnilの場合は記録しない。
func NewAuthHandler(service AuthServiceInterface, store auth.Store, config AuthHandlerConfig, recorder AuthMetrics) *AuthHandler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AuthHandler{
		service: service,
		store:   store,
		config:  config,
		metrics: recorder,
	}
}

// SignIn はGoogle OAuthフローを開始する。
// GET /api/auth/signin/google
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、セッションCookieを発行する。
// GET /api/auth/callback/google?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	state := query.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		h.metrics.RecordAuthCallback(metrics.AuthResultInvalidState)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 同意画面で拒否された場合もカレンダー権限なしとして扱う
	if providerErr := query.Get("error"); providerErr != "" {
		slog.Info("oauth consent denied", slog.String("error", providerErr))
		h.metrics.RecordAuthCallback(metrics.AuthResultPermissionDenied)
		http.Redirect(w, r, permissionsErrorRedirect, http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.metrics.RecordAuthCallback(metrics.AuthResultError)
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	adapter := auth.NewAdapter(h.store, w, r)
	session, err := h.service.HandleCallback(r.Context(), adapter, code)
	switch {
	case errors.Is(err, auth.ErrCalendarPermissionDenied):
		h.metrics.RecordAuthCallback(metrics.AuthResultPermissionDenied)
		http.Redirect(w, r, permissionsErrorRedirect, http.StatusSeeOther)
		return
	case errors.Is(err, auth.ErrPendingUserNotFound):
		slog.Warn("oauth callback without pending user")
		h.metrics.RecordAuthCallback(metrics.AuthResultPendingMissing)
		http.Redirect(w, r, pendingUserMissingRedirect, http.StatusSeeOther)
		return
	case err != nil:
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.metrics.RecordAuthCallback(metrics.AuthResultError)
		middleware.WriteInternalServerError(w)
		return
	}

	auth.SetSessionCookie(w, *session, h.config.CookieSecure)
	h.metrics.RecordAuthCallback(metrics.AuthResultSuccess)

	http.Redirect(w, r, connectCalendarPath, http.StatusSeeOther)
}

// SignOut はセッションを破棄する。
// POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := auth.SessionToken(r); token != "" {
		adapter := auth.NewAdapter(h.store, w, r)
		if err := h.service.Logout(r.Context(), adapter, token); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	auth.ClearSessionCookie(w, h.config.CookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

// sessionResponse は現在のセッション情報のレスポンス。
type sessionResponse struct {
	User    sessionUserResponse `json:"user"`
	Expires time.Time           `json:"expires"`
}

type sessionUserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Session は現在のログインユーザーとセッション有効期限を返す。
// セッションミドルウェアの内側に置く。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		requireUserID(w, r)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(current))
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
