// Package auth はOAuth認証フロー、永続化アダプター、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrCalendarPermissionDenied はカレンダー権限が付与されなかった場合のエラー。
	ErrCalendarPermissionDenied = errors.New("calendar permission not granted")
	// ErrSessionNotFound はセッションが存在しないか期限切れの場合のエラー。
	ErrSessionNotFound = errors.New("session not found or expired")
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	Provider       string
	Token          TokenInfo
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証フローを提供する。永続化はリクエストごとのPersistenceAdapterに委譲する。
type Service struct {
	oauth  OAuthProvider
	config ServiceConfig
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, config ServiceConfig) *Service {
	return &Service{
		oauth:  oauth,
		config: config,
		now:    time.Now,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

func (s *Service) maxAge() time.Duration {
	return time.Duration(s.config.SessionMaxAge) * time.Second
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 連携済みアカウント、同一メールアドレスのユーザー、仮登録ユーザーの順に紐付け先を決定する。
func (s *Service) HandleCallback(ctx context.Context, adapter PersistenceAdapter, code string) (*AdapterSession, error) {
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	if !info.Token.HasScope(CalendarScope) {
		return nil, ErrCalendarPermissionDenied
	}

	account := AdapterAccount{
		Type:              "oauth",
		Provider:          info.Provider,
		ProviderAccountID: info.ProviderUserID,
		RefreshToken:      info.Token.RefreshToken,
		AccessToken:       info.Token.AccessToken,
		ExpiresAt:         info.Token.ExpiresAtUnix(),
		TokenType:         info.Token.TokenType,
		Scope:             info.Token.Scope,
		IDToken:           info.Token.IDToken,
	}

	user, err := adapter.GetUserByAccount(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by account: %w", err)
	}

	if user != nil {
		// 連携済み: メールアドレスとアバターのみ最新化し、名前はユーザーが登録したものを維持する
		if _, err := adapter.UpdateUser(ctx, AdapterUser{
			ID:        user.ID,
			Email:     info.Email,
			AvatarURL: info.AvatarURL,
		}); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		if err := adapter.UpdateAccountTokens(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to update account tokens: %w", err)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", info.Provider),
		)
	} else {
		user, err = adapter.GetUserByEmail(ctx, info.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if user == nil {
			user, err = adapter.CreateUser(ctx, AdapterUser{
				Name:      info.Name,
				Email:     info.Email,
				AvatarURL: info.AvatarURL,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}
			slog.Info("pending user completed registration",
				slog.String("user_id", user.ID),
				slog.String("provider", info.Provider),
			)
		}

		account.UserID = user.ID
		if err := adapter.LinkAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to link account: %w", err)
		}
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session, err := adapter.CreateSession(ctx, AdapterSession{
		SessionToken: token,
		UserID:       user.ID,
		Expires:      s.now().Add(s.maxAge()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// CurrentUser はセッショントークンから現在のユーザーを取得する。
// 残り有効期間がMaxAgeの半分を切っている場合は有効期限を延長する。
func (s *Service) CurrentUser(ctx context.Context, adapter PersistenceAdapter, sessionToken string) (*SessionAndUser, error) {
	if sessionToken == "" {
		return nil, ErrSessionNotFound
	}

	found, err := adapter.GetSessionAndUser(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	now := s.now()
	if found == nil || !found.Session.Expires.After(now) {
		return nil, ErrSessionNotFound
	}

	if found.Session.Expires.Sub(now) < s.maxAge()/2 {
		updated, err := adapter.UpdateSession(ctx, AdapterSession{
			SessionToken: sessionToken,
			UserID:       found.Session.UserID,
			Expires:      now.Add(s.maxAge()),
		})
		if err != nil {
			// 延長に失敗しても現在のセッションは有効なので継続する
			slog.Warn("failed to extend session", slog.String("error", err.Error()))
		} else {
			found.Session = *updated
		}
	}

	return found, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, adapter PersistenceAdapter, sessionToken string) error {
	if sessionToken == "" {
		return fmt.Errorf("session token is required")
	}

	if err := adapter.DeleteSession(ctx, sessionToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
