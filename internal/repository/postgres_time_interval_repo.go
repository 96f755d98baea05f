package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
)

// PostgresTimeIntervalRepo はPostgreSQLを使用した受付時間帯リポジトリ。
type PostgresTimeIntervalRepo struct {
	db *sql.DB
}

// NewPostgresTimeIntervalRepo はPostgresTimeIntervalRepoを生成する。
func NewPostgresTimeIntervalRepo(db *sql.DB) *PostgresTimeIntervalRepo {
	return &PostgresTimeIntervalRepo{db: db}
}

// ReplaceForUser はユーザーの受付時間帯を削除してから再登録する。
// 途中で失敗した場合は既存の時間帯が維持される。
func (r *PostgresTimeIntervalRepo) ReplaceForUser(ctx context.Context, userID string, intervals []model.TimeInterval) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_time_intervals WHERE user_id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to delete time intervals: %w", err)
	}

	for i := range intervals {
		interval := &intervals[i]
		if interval.ID == "" {
			interval.ID = uuid.New().String()
		}
		interval.UserID = userID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_time_intervals (id, user_id, week_day, time_start_in_minutes, time_end_in_minutes)
			 VALUES ($1, $2, $3, $4, $5)`,
			interval.ID, userID, interval.WeekDay, interval.TimeStartInMinutes, interval.TimeEndInMinutes,
		); err != nil {
			return fmt.Errorf("failed to insert time interval: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの受付時間帯を曜日・開始時刻順に返す。
func (r *PostgresTimeIntervalRepo) ListByUserID(ctx context.Context, userID string) ([]model.TimeInterval, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, week_day, time_start_in_minutes, time_end_in_minutes
		 FROM user_time_intervals
		 WHERE user_id = $1
		 ORDER BY week_day, time_start_in_minutes`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list time intervals: %w", err)
	}
	defer rows.Close()

	var intervals []model.TimeInterval
	for rows.Next() {
		var ti model.TimeInterval
		if err := rows.Scan(&ti.ID, &ti.UserID, &ti.WeekDay, &ti.TimeStartInMinutes, &ti.TimeEndInMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan time interval: %w", err)
		}
		intervals = append(intervals, ti)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time intervals: %w", err)
	}
	return intervals, nil
}

// FindByUserAndWeekDay は指定曜日の受付時間帯を返す。見つからない場合はnilを返す。
func (r *PostgresTimeIntervalRepo) FindByUserAndWeekDay(ctx context.Context, userID string, weekDay int) (*model.TimeInterval, error) {
	ti := &model.TimeInterval{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, week_day, time_start_in_minutes, time_end_in_minutes
		 FROM user_time_intervals
		 WHERE user_id = $1 AND week_day = $2
		 ORDER BY time_start_in_minutes
		 LIMIT 1`,
		userID, weekDay,
	).Scan(&ti.ID, &ti.UserID, &ti.WeekDay, &ti.TimeStartInMinutes, &ti.TimeEndInMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find time interval: %w", err)
	}
	return ti, nil
}

// DeleteByUserID はユーザーの全受付時間帯を削除する。
func (r *PostgresTimeIntervalRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM user_time_intervals WHERE user_id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to delete time intervals: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TimeIntervalRepository = (*PostgresTimeIntervalRepo)(nil)
