// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey  = contextKey("user_id")
	sessionContextKey = contextKey("session")
)

// CurrentUserFinder はセッショントークンから現在のユーザーを解決するインターフェース。
// auth.Serviceが満たす。
type CurrentUserFinder interface {
	CurrentUser(ctx context.Context, adapter auth.PersistenceAdapter, sessionToken string) (*auth.SessionAndUser, error)
}

// SessionConfig はセッションミドルウェアの設定。
type SessionConfig struct {
	Store        auth.Store
	CookieSecure bool
}

// NewSessionMiddleware はセッションCookieを検証し、認証済みユーザーをコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401を返す。
func NewSessionMiddleware(finder CurrentUserFinder, config SessionConfig) func(next http.Handler) http.Handler {
	return sessionMiddleware(finder, config, true)
}

// NewOptionalSessionMiddleware はセッションがあればコンテキストに注入し、なければそのまま通すミドルウェアを返す。
// ページ表示用。
func NewOptionalSessionMiddleware(finder CurrentUserFinder, config SessionConfig) func(next http.Handler) http.Handler {
	return sessionMiddleware(finder, config, false)
}

func sessionMiddleware(finder CurrentUserFinder, config SessionConfig, required bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.SessionToken(r)
			if token == "" {
				if required {
					WriteErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			adapter := auth.NewAdapter(config.Store, w, r)
			current, err := finder.CurrentUser(r.Context(), adapter, token)
			if err != nil {
				if errors.Is(err, auth.ErrSessionNotFound) {
					auth.ClearSessionCookie(w, config.CookieSecure)
				} else {
					slog.Error("failed to find session",
						slog.String("error", err.Error()),
					)
				}
				if required {
					WriteErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// ローリング延長された有効期限をCookieにも反映する
			auth.SetSessionCookie(w, current.Session, config.CookieSecure)

			noteUserID(r.Context(), current.User.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), current)))
		})
	}
}

func unauthorizedError() *model.APIError {
	return &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "Sessão inválida ou expirada.",
		Category: "auth",
		Action:   "Faça login novamente.",
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionFromContext はリクエストコンテキストからセッションとユーザーを取得する。
func SessionFromContext(ctx context.Context) (*auth.SessionAndUser, bool) {
	current, ok := ctx.Value(sessionContextKey).(*auth.SessionAndUser)
	return current, ok && current != nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSession はコンテキストにセッションとユーザーを注入する。
func ContextWithSession(ctx context.Context, current *auth.SessionAndUser) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, current.User.ID)
	return context.WithValue(ctx, sessionContextKey, current)
}
