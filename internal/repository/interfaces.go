// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

var (
	// ErrNotFound は更新・削除対象のレコードが存在しない場合のエラー。
	ErrNotFound = errors.New("record not found")
	// ErrUsernameTaken はユーザー名の一意制約違反を表す。
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken はメールアドレスの一意制約違反を表す。
	ErrEmailTaken = errors.New("email already taken")
	// ErrAccountAlreadyLinked は(provider, provider_account_id)の一意制約違反を表す。
	ErrAccountAlreadyLinked = errors.New("account already linked")
	// ErrSchedulingConflict は同一ユーザー・同一時刻の予約の一意制約違反を表す。
	ErrSchedulingConflict = errors.New("scheduling conflict")
)

// ProfileUpdate はユーザープロフィールの部分更新内容。
// nilのフィールドは変更しない。
type ProfileUpdate struct {
	Name      *string
	Email     *string
	AvatarURL *string
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create は仮登録ユーザーを作成する。
	// ユーザー名が重複する場合はErrUsernameTakenを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はname/email/avatar_urlを部分更新し、更新後のユーザーを返す。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*model.User, error)

	// UpdateBio は自己紹介文を更新する。
	UpdateBio(ctx context.Context, id, bio string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するaccounts、sessions、user_time_intervals、schedulingsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// AccountRepository は外部OAuthアカウントの永続化インターフェース。
type AccountRepository interface {
	// Create はアカウントを作成する。
	// 既に同じプロバイダーアカウントが紐付いている場合はErrAccountAlreadyLinkedを返す。
	Create(ctx context.Context, account *model.Account) error

	// FindByProviderAccount はproviderとprovider_account_idでアカウントと所有ユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*model.AccountWithUser, error)

	// FindByUserAndProvider はユーザーの指定プロバイダーのアカウントを取得する。
	// 見つからない場合はnilを返す。
	FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.Account, error)

	// UpdateTokens はアクセストークン、リフレッシュトークン、有効期限を更新する。
	// refreshTokenがnilの場合は既存の値を維持する。
	UpdateTokens(ctx context.Context, id string, accessToken, refreshToken *string, expiresAt *int64) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByTokenWithUser はセッショントークンでセッションと所有ユーザーを取得する。
	// 期限切れかどうかは判定しない。見つからない場合はnilを返す。
	FindByTokenWithUser(ctx context.Context, sessionToken string) (*model.SessionWithUser, error)

	// Update はセッションの有効期限とユーザーIDを更新し、更新後のセッションを返す。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, sessionToken, userID string, expires time.Time) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。
	DeleteByToken(ctx context.Context, sessionToken string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TimeIntervalRepository は予約受付時間帯の永続化インターフェース。
type TimeIntervalRepository interface {
	// ReplaceForUser はユーザーの受付時間帯を同一トランザクションで全置換する。
	ReplaceForUser(ctx context.Context, userID string, intervals []model.TimeInterval) error

	// ListByUserID はユーザーの受付時間帯を曜日順に返す。
	ListByUserID(ctx context.Context, userID string) ([]model.TimeInterval, error)

	// FindByUserAndWeekDay は指定曜日の受付時間帯を返す。見つからない場合はnilを返す。
	FindByUserAndWeekDay(ctx context.Context, userID string, weekDay int) (*model.TimeInterval, error)

	// DeleteByUserID はユーザーの全受付時間帯を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// SchedulingRepository は予約の永続化インターフェース。
type SchedulingRepository interface {
	// Create は予約を作成する。
	// 同一ユーザー・同一時刻の予約が既に存在する場合はErrSchedulingConflictを返す。
	Create(ctx context.Context, scheduling *model.Scheduling) error

	// ListByUserBetween は [from, to) の範囲の予約をdate昇順で返す。
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Scheduling, error)

	// DeleteByUserID はユーザーの全予約を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
