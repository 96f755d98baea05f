package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
)

// ErrPendingUserNotFound は仮登録Cookieが存在しない状態でCreateUserが呼ばれた場合のエラー。
var ErrPendingUserNotFound = errors.New("pending user id not found in cookies")

// AdapterUser は認証フローが扱うユーザー表現。
type AdapterUser struct {
	ID            string
	Name          string
	Username      string
	Email         string
	AvatarURL     string
	EmailVerified *time.Time // 常にnil
}

// AdapterAccount は認証フローが扱う外部アカウント表現。
type AdapterAccount struct {
	UserID            string
	Type              string
	Provider          string
	ProviderAccountID string
	RefreshToken      string
	AccessToken       string
	ExpiresAt         *int64
	TokenType         string
	Scope             string
	IDToken           string
	SessionState      string
}

// AdapterSession は認証フローが扱うセッション表現。
type AdapterSession struct {
	SessionToken string
	UserID       string
	Expires      time.Time
}

// SessionAndUser はGetSessionAndUserの戻り値。
type SessionAndUser struct {
	Session AdapterSession
	User    AdapterUser
}

// PersistenceAdapter は認証フローとデータベースの橋渡しを行う操作群。
type PersistenceAdapter interface {
	CreateUser(ctx context.Context, user AdapterUser) (*AdapterUser, error)
	GetUser(ctx context.Context, id string) (*AdapterUser, error)
	GetUserByEmail(ctx context.Context, email string) (*AdapterUser, error)
	GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*AdapterUser, error)
	UpdateUser(ctx context.Context, user AdapterUser) (*AdapterUser, error)
	LinkAccount(ctx context.Context, account AdapterAccount) error
	UpdateAccountTokens(ctx context.Context, account AdapterAccount) error
	CreateSession(ctx context.Context, session AdapterSession) (*AdapterSession, error)
	GetSessionAndUser(ctx context.Context, sessionToken string) (*SessionAndUser, error)
	UpdateSession(ctx context.Context, session AdapterSession) (*AdapterSession, error)
	DeleteSession(ctx context.Context, sessionToken string) error
}

// Store はAdapterが利用するリポジトリの組。
type Store struct {
	Users    repository.UserRepository
	Accounts repository.AccountRepository
	Sessions repository.SessionRepository
	// CookieSecure は仮登録Cookieを破棄するときのSecure属性。
	CookieSecure bool
}

// Adapter は1つのHTTPリクエスト/レスポンスに束縛された永続化アダプター。
// CreateUserがリクエストの仮登録Cookieを読み、レスポンスで破棄するため、リクエストごとに生成する。
type Adapter struct {
	store Store
	w     http.ResponseWriter
	r     *http.Request
}

// NewAdapter はリクエストに束縛されたAdapterを生成する。
func NewAdapter(store Store, w http.ResponseWriter, r *http.Request) *Adapter {
	return &Adapter{store: store, w: w, r: r}
}

// CreateUser は仮登録ユーザーにプロフィール情報を付与して本登録する。
// 仮登録Cookieが存在しない場合はErrPendingUserNotFoundを返す。
func (a *Adapter) CreateUser(ctx context.Context, user AdapterUser) (*AdapterUser, error) {
	pendingID := PendingUserID(a.r)
	if pendingID == "" {
		return nil, ErrPendingUserNotFound
	}

	updated, err := a.store.Users.UpdateProfile(ctx, pendingID, repository.ProfileUpdate{
		Name:      model.StringPtr(user.Name),
		Email:     model.StringPtr(user.Email),
		AvatarURL: model.StringPtr(user.AvatarURL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete pending user: %w", err)
	}

	ClearPendingUserCookie(a.w, a.store.CookieSecure)
	return toAdapterUser(updated), nil
}

// GetUser はIDでユーザーを取得する。見つからない場合はnilを返す。
func (a *Adapter) GetUser(ctx context.Context, id string) (*AdapterUser, error) {
	user, err := a.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAdapterUser(user), nil
}

// GetUserByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*AdapterUser, error) {
	user, err := a.store.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toAdapterUser(user), nil
}

// GetUserByAccount は外部アカウントに紐付くユーザーを取得する。見つからない場合はnilを返す。
func (a *Adapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*AdapterUser, error) {
	found, err := a.store.Accounts.FindByProviderAccount(ctx, provider, providerAccountID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}
	return toAdapterUser(&found.User), nil
}

// UpdateUser はname/email/avatar_urlを更新する。空のフィールドは変更しない。
func (a *Adapter) UpdateUser(ctx context.Context, user AdapterUser) (*AdapterUser, error) {
	updated, err := a.store.Users.UpdateProfile(ctx, user.ID, repository.ProfileUpdate{
		Name:      model.StringPtr(user.Name),
		Email:     model.StringPtr(user.Email),
		AvatarURL: model.StringPtr(user.AvatarURL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return toAdapterUser(updated), nil
}

// LinkAccount は外部アカウントをユーザーに紐付ける。
func (a *Adapter) LinkAccount(ctx context.Context, account AdapterAccount) error {
	return a.store.Accounts.Create(ctx, &model.Account{
		ID:                uuid.New().String(),
		UserID:            account.UserID,
		Type:              account.Type,
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		RefreshToken:      model.StringPtr(account.RefreshToken),
		AccessToken:       model.StringPtr(account.AccessToken),
		ExpiresAt:         account.ExpiresAt,
		TokenType:         model.StringPtr(account.TokenType),
		Scope:             model.StringPtr(account.Scope),
		IDToken:           model.StringPtr(account.IDToken),
		SessionState:      model.StringPtr(account.SessionState),
	})
}

// UpdateAccountTokens は再ログイン時に受け取ったトークンで既存アカウントを更新する。
// アカウントが未連携の場合は何もしない。
func (a *Adapter) UpdateAccountTokens(ctx context.Context, account AdapterAccount) error {
	existing, err := a.store.Accounts.FindByProviderAccount(ctx, account.Provider, account.ProviderAccountID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	return a.store.Accounts.UpdateTokens(ctx, existing.Account.ID,
		model.StringPtr(account.AccessToken), model.StringPtr(account.RefreshToken), account.ExpiresAt)
}

// CreateSession はセッションを保存し、入力をそのまま返す。
func (a *Adapter) CreateSession(ctx context.Context, session AdapterSession) (*AdapterSession, error) {
	if err := a.store.Sessions.Create(ctx, &model.Session{
		ID:           uuid.New().String(),
		SessionToken: session.SessionToken,
		UserID:       session.UserID,
		Expires:      session.Expires,
	}); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionAndUser はセッションとユーザーを取得する。見つからない場合はnilを返す。
func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionToken string) (*SessionAndUser, error) {
	found, err := a.store.Sessions.FindByTokenWithUser(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}
	return &SessionAndUser{
		Session: toAdapterSession(&found.Session),
		User:    *toAdapterUser(&found.User),
	}, nil
}

// UpdateSession はセッションの有効期限とユーザーIDを更新し、保存後の値を返す。
func (a *Adapter) UpdateSession(ctx context.Context, session AdapterSession) (*AdapterSession, error) {
	updated, err := a.store.Sessions.Update(ctx, session.SessionToken, session.UserID, session.Expires)
	if err != nil {
		return nil, err
	}
	s := toAdapterSession(updated)
	return &s, nil
}

// DeleteSession はセッションを削除する。
func (a *Adapter) DeleteSession(ctx context.Context, sessionToken string) error {
	return a.store.Sessions.DeleteByToken(ctx, sessionToken)
}

func toAdapterUser(u *model.User) *AdapterUser {
	if u == nil {
		return nil
	}
	return &AdapterUser{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.EmailOrEmpty(),
		AvatarURL: u.AvatarURLOrEmpty(),
	}
}

func toAdapterSession(s *model.Session) AdapterSession {
	return AdapterSession{
		SessionToken: s.SessionToken,
		UserID:       s.UserID,
		Expires:      s.Expires,
	}
}

// compile-time interface check
var _ PersistenceAdapter = (*Adapter)(nil)
