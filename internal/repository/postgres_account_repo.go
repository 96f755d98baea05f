package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/ignitecall/internal/model"
)

const accountColumns = `a.id, a.user_id, a.type, a.provider, a.provider_account_id,
	a.refresh_token, a.access_token, a.expires_at, a.token_type, a.scope, a.id_token, a.session_state`

// nullableAccountFields はaccountsのNULL許容カラムのScan先。
type nullableAccountFields struct {
	refreshToken, accessToken, tokenType, scope, idToken, sessionState sql.NullString
	expiresAt                                                          sql.NullInt64
}

func (n *nullableAccountFields) targets(account *model.Account) []any {
	return []any{
		&account.ID, &account.UserID, &account.Type, &account.Provider, &account.ProviderAccountID,
		&n.refreshToken, &n.accessToken, &n.expiresAt, &n.tokenType, &n.scope, &n.idToken, &n.sessionState,
	}
}

func (n *nullableAccountFields) apply(account *model.Account) {
	account.RefreshToken = nullStringPtr(n.refreshToken)
	account.AccessToken = nullStringPtr(n.accessToken)
	account.TokenType = nullStringPtr(n.tokenType)
	account.Scope = nullStringPtr(n.scope)
	account.IDToken = nullStringPtr(n.idToken)
	account.SessionState = nullStringPtr(n.sessionState)
	if n.expiresAt.Valid {
		v := n.expiresAt.Int64
		account.ExpiresAt = &v
	}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// PostgresAccountRepo はPostgreSQLを使用したOAuthアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// Create はアカウントを作成する。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, type, provider, provider_account_id,
			refresh_token, access_token, expires_at, token_type, scope, id_token, session_state)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID, account.UserID, account.Type, account.Provider, account.ProviderAccountID,
		account.RefreshToken, account.AccessToken, account.ExpiresAt,
		account.TokenType, account.Scope, account.IDToken, account.SessionState,
	)
	if err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return ErrAccountAlreadyLinked
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindByProviderAccount はproviderとprovider_account_idでアカウントと所有ユーザーを取得する。
func (r *PostgresAccountRepo) FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*model.AccountWithUser, error) {
	result := &model.AccountWithUser{}
	var accountNulls nullableAccountFields
	var email, avatarURL sql.NullString

	targets := accountNulls.targets(&result.Account)
	targets = append(targets, userScanTargets(&result.User, &email, &avatarURL)...)

	err := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+`, `+userColumns+`
		 FROM accounts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.provider = $1 AND a.provider_account_id = $2`,
		provider, providerAccountID,
	).Scan(targets...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	accountNulls.apply(&result.Account)
	applyNullableUserFields(&result.User, email, avatarURL)
	return result, nil
}

// FindByUserAndProvider はユーザーの指定プロバイダーのアカウントを取得する。
func (r *PostgresAccountRepo) FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.Account, error) {
	account := &model.Account{}
	var nulls nullableAccountFields

	err := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts a
		 WHERE a.user_id = $1 AND a.provider = $2
		 ORDER BY a.id
		 LIMIT 1`,
		userID, provider,
	).Scan(nulls.targets(account)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by user: %w", err)
	}

	nulls.apply(account)
	return account, nil
}

// UpdateTokens はトークン情報を更新する。refreshTokenがnilの場合は既存の値を維持する。
func (r *PostgresAccountRepo) UpdateTokens(ctx context.Context, id string, accessToken, refreshToken *string, expiresAt *int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET
			access_token = $2,
			refresh_token = COALESCE($3, refresh_token),
			expires_at = $4
		 WHERE id = $1`,
		id, accessToken, refreshToken, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account tokens: %w", err)
	}
	return requireAffected(result, "account", id)
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
