package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, session_token, user_id, expires)
		 VALUES ($1, $2, $3, $4)`,
		session.ID, session.SessionToken, session.UserID, session.Expires,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByTokenWithUser はセッショントークンでセッションと所有ユーザーを取得する。
// 期限切れの判定は呼び出し側で行う。
func (r *PostgresSessionRepo) FindByTokenWithUser(ctx context.Context, sessionToken string) (*model.SessionWithUser, error) {
	result := &model.SessionWithUser{}
	var email, avatarURL sql.NullString

	targets := []any{&result.Session.ID, &result.Session.SessionToken, &result.Session.UserID, &result.Session.Expires}
	targets = append(targets, userScanTargets(&result.User, &email, &avatarURL)...)

	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.session_token, s.user_id, s.expires, `+userColumns+`
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.session_token = $1`,
		sessionToken,
	).Scan(targets...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	applyNullableUserFields(&result.User, email, avatarURL)
	return result, nil
}

// Update はセッションの有効期限とユーザーIDを更新する。userIDが空の場合は変更しない。
func (r *PostgresSessionRepo) Update(ctx context.Context, sessionToken, userID string, expires time.Time) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE sessions SET user_id = COALESCE(NULLIF($2, '')::uuid, user_id), expires = $3
		 WHERE session_token = $1
		 RETURNING id, session_token, user_id, expires`,
		sessionToken, userID, expires,
	).Scan(&session.ID, &session.SessionToken, &session.UserID, &session.Expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return session, nil
}

// DeleteByToken は指定トークンのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByToken(ctx context.Context, sessionToken string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_token = $1`,
		sessionToken,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *PostgresSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
