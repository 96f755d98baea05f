package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
)

// PostgresSchedulingRepo はPostgreSQLを使用した予約リポジトリ。
type PostgresSchedulingRepo struct {
	db *sql.DB
}

// NewPostgresSchedulingRepo はPostgresSchedulingRepoを生成する。
func NewPostgresSchedulingRepo(db *sql.DB) *PostgresSchedulingRepo {
	return &PostgresSchedulingRepo{db: db}
}

// Create は予約を作成する。uq_schedulings_user_date違反はErrSchedulingConflictになる。
func (r *PostgresSchedulingRepo) Create(ctx context.Context, s *model.Scheduling) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO schedulings (id, user_id, date, name, email, observations)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		s.ID, s.UserID, s.Date, s.Name, s.Email, s.Observations,
	).Scan(&s.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return ErrSchedulingConflict
		}
		return fmt.Errorf("failed to create scheduling: %w", err)
	}
	return nil
}

// ListByUserBetween は [from, to) の範囲の予約をdate昇順で返す。
func (r *PostgresSchedulingRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Scheduling, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, name, email, observations, created_at
		 FROM schedulings
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 ORDER BY date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedulings: %w", err)
	}
	defer rows.Close()

	var schedulings []model.Scheduling
	for rows.Next() {
		var s model.Scheduling
		if err := rows.Scan(&s.ID, &s.UserID, &s.Date, &s.Name, &s.Email, &s.Observations, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduling: %w", err)
		}
		schedulings = append(schedulings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedulings: %w", err)
	}
	return schedulings, nil
}

// DeleteByUserID はユーザーの全予約を削除する。
func (r *PostgresSchedulingRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM schedulings WHERE user_id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to delete schedulings: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SchedulingRepository = (*PostgresSchedulingRepo)(nil)
