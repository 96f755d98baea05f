package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
)

// userColumns はusersテーブルのSELECT対象カラム。scanUserの引数順と一致させる。
const userColumns = `u.id, u.username, u.name, u.bio, u.email, u.avatar_url, u.created_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// userScanTargets はuserColumnsに対応するScan先を返す。
// JOINクエリで他テーブルのカラムと組み合わせて使う。
func userScanTargets(user *model.User, email, avatarURL *sql.NullString) []any {
	return []any{&user.ID, &user.Username, &user.Name, &user.Bio, email, avatarURL, &user.CreatedAt}
}

// applyNullableUserFields はNULL許容カラムの値をUserに反映する。
func applyNullableUserFields(user *model.User, email, avatarURL sql.NullString) {
	if email.Valid {
		user.Email = &email.String
	}
	if avatarURL.Valid {
		user.AvatarURL = &avatarURL.String
	}
}

// scanUser は1行分のusersカラムをUserに読み込む。
func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var email, avatarURL sql.NullString
	if err := row.Scan(userScanTargets(user, &email, &avatarURL)...); err != nil {
		return nil, err
	}
	applyNullableUserFields(user, email, avatarURL)
	return user, nil
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		// uuid型カラムへの不正な値はPostgreSQLがエラーにするため、未検出として扱う
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Create は仮登録ユーザーを作成する。
// ユーザー名が重複する場合はErrUsernameTakenを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, name, bio, email, avatar_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		user.ID, user.Username, user.Name, user.Bio, user.Email, user.AvatarURL,
	).Scan(&user.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			if constraint == "uq_users_email" {
				return ErrEmailTaken
			}
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateProfile はname/email/avatar_urlを部分更新し、更新後のユーザーを返す。
// 対象が存在しない場合はErrNotFoundを返す。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users u SET
			name = COALESCE($2, u.name),
			email = COALESCE($3, u.email),
			avatar_url = COALESCE($4, u.avatar_url)
		 WHERE u.id = $1
		 RETURNING `+userColumns,
		id, update.Name, update.Email, update.AvatarURL,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok && constraint == "uq_users_email" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// UpdateBio は自己紹介文を更新する。
func (r *PostgresUserRepo) UpdateBio(ctx context.Context, id, bio string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET bio = $2 WHERE id = $1`,
		id, bio,
	)
	if err != nil {
		return fmt.Errorf("failed to update bio: %w", err)
	}
	return requireAffected(result, "user", id)
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するaccounts、sessions、user_time_intervals、schedulingsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result, "user", id)
}

// requireAffected は更新件数が0件の場合にErrNotFoundを返す。
func requireAffected(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
