package calendar

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// errorClass はCalendar APIエラーの扱いの分類。
type errorClass int

const (
	// classStop は再試行しても結果が変わらないエラー（権限の取り消し、不正なリクエストなど）。
	classStop errorClass = iota
	// classRetry は時間をおけば成功しうるエラー（429/5xx、ネットワークエラー）。
	classRetry
)

const (
	defaultMaxAttempts = 3
	initialBackoff     = 250 * time.Millisecond
	maxBackoff         = 2 * time.Second
)

// classifyStatus はHTTPステータスコードを分類する。
func classifyStatus(statusCode int) errorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return classRetry
	case statusCode >= 500:
		return classRetry
	default:
		return classStop
	}
}

// classifyError はイベント作成のエラーを分類する。
func classifyError(err error) errorClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return classStop
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return classRetry
	}
	return classStop
}

// backoffDelay はattempt回目（0始まり）の失敗後の待機時間を返す。250msから倍々で最大2秒。
func backoffDelay(attempt int) time.Duration {
	delay := initialBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// sleepContext はdだけ待つ。ctxが先に終わった場合はそのエラーを返す。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
