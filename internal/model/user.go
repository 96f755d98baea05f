// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ユーザー名の確保時点ではName/Usernameのみを持つ仮登録状態で作成され、
// カレンダー接続（OAuth連携）の完了時にEmail/AvatarURLが付与される。
type User struct {
	ID        string
	Username  string
	Name      string
	Bio       string
	Email     *string
	AvatarURL *string
	CreatedAt time.Time
}

// EmailOrEmpty はEmailを文字列で返す。未設定の場合は空文字列を返す。
func (u *User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// AvatarURLOrEmpty はAvatarURLを文字列で返す。未設定の場合は空文字列を返す。
func (u *User) AvatarURLOrEmpty() string {
	if u.AvatarURL == nil {
		return ""
	}
	return *u.AvatarURL
}

// Account は外部OAuthプロバイダーのアカウントとユーザーの紐付けを表す。
// (provider, provider_account_id) の組で一意となる。
type Account struct {
	ID                string
	UserID            string
	Type              string
	Provider          string
	ProviderAccountID string
	RefreshToken      *string
	AccessToken       *string
	ExpiresAt         *int64 // UNIX秒
	TokenType         *string
	Scope             *string
	IDToken           *string
	SessionState      *string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID           string
	SessionToken string
	UserID       string
	Expires      time.Time
}

// SessionWithUser はセッションとその所有ユーザーを結合したモデル。
type SessionWithUser struct {
	Session Session
	User    User
}

// AccountWithUser はアカウントとその所有ユーザーを結合したモデル。
type AccountWithUser struct {
	Account Account
	User    User
}

// StringPtr は文字列のポインタを返す。空文字列の場合はnilを返す。
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
