// Package cleanup は不要になった認証データの定期削除ジョブを提供する。
// 期限切れのセッションと、カレンダー接続まで進まずに放置された仮登録ユーザーを削除する。
// 仮登録ユーザーが削除されるとユーザー名は再び確保できるようになる。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

const (
	deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires < now()`

	// emailがなくアカウントも連携されていないユーザーは、OAuthを完了していない仮登録ユーザー。
	deleteAbandonedUsersQuery = `
		DELETE FROM users u
		WHERE u.email IS NULL
		  AND u.created_at < now() - $1::interval
		  AND NOT EXISTS (SELECT 1 FROM accounts a WHERE a.user_id = u.id)`
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder は削除件数の記録先。
type Recorder interface {
	RecordCleanup(expiredSessions, abandonedUsers int64)
}

// CleanupJob は期限切れセッションと放置された仮登録ユーザーの削除ジョブ。
// 削除対象がない場合も成功として扱う。
type CleanupJob struct {
	db       Executor
	logger   *slog.Logger
	recorder Recorder

	PendingUserTTL time.Duration // 仮登録ユーザーを残す期間（デフォルト: 24時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, recorder Recorder) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:             db,
		logger:         logger,
		recorder:       recorder,
		PendingUserTTL: 24 * time.Hour,
	}
}

// Run はセッション、仮登録ユーザーの順に削除する。
// セッションの削除に失敗した場合でも仮登録ユーザーの削除は試みる。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessions, sessionErr := j.exec(ctx, "expired_sessions", deleteExpiredSessionsQuery)

	ttl := fmt.Sprintf("%d seconds", int64(j.PendingUserTTL.Seconds()))
	users, userErr := j.exec(ctx, "abandoned_users", deleteAbandonedUsersQuery, ttl)

	if j.recorder != nil {
		j.recorder.RecordCleanup(sessions, users)
	}

	if sessionErr != nil {
		return sessionErr
	}
	if userErr != nil {
		return userErr
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("expired_sessions", sessions),
		slog.Int64("abandoned_users", users),
		slog.String("pending_user_ttl", j.PendingUserTTL.String()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

func (j *CleanupJob) exec(ctx context.Context, target, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to delete %s: %w", target, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to count deleted %s: %w", target, err)
	}
	return deleted, nil
}

// Start はintervalごとにRunを実行する。起動直後に1回実行し、ctxがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx); err != nil {
			j.logger.Error("クリーンアップジョブでエラーが発生しました", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
