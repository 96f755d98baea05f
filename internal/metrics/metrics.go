// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証コールバックの結果ラベル
const (
	AuthResultSuccess          = "success"
	AuthResultPermissionDenied = "permission_denied"
	AuthResultPendingMissing   = "pending_user_missing"
	AuthResultInvalidState     = "invalid_state"
	AuthResultError            = "error"
)

// 予約の結果ラベル
const (
	BookingResultCreated  = "created"
	BookingResultConflict = "conflict"
	BookingResultRejected = "rejected"
	BookingResultError    = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(route, method string, statusCode int, duration time.Duration)
	RecordAuthCallback(result string)
	RecordBooking(result string)
	RecordCalendarEvent(success bool)
	RecordAvailabilityLookup(duration time.Duration)
	RecordRateLimited(limitType string)
	RecordCleanup(expiredSessions, abandonedUsers int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	authCallbacks   *prometheus.CounterVec
	bookings        *prometheus.CounterVec
	calendarEvents  *prometheus.CounterVec
	availability    prometheus.Histogram
	rateLimited     *prometheus.CounterVec
	expiredSessions prometheus.Counter
	abandonedUsers  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_http_requests_total",
			Help: "ルート・メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"route", "method", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ignitecall_http_request_duration_seconds",
			Help:    "ルート別のHTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		authCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_auth_callbacks_total",
			Help: "OAuthコールバックの結果別の件数",
		}, []string{"result"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_bookings_total",
			Help: "予約リクエストの結果別の件数",
		}, []string{"result"}),
		calendarEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_calendar_events_total",
			Help: "Googleカレンダーイベント作成の結果別の件数",
		}, []string{"result"}),
		availability: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ignitecall_availability_lookup_seconds",
			Help:    "空き時間算出のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ignitecall_rate_limited_total",
			Help: "レート制限で拒否されたリクエスト数",
		}, []string{"limit_type"}),
		expiredSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ignitecall_cleanup_expired_sessions_total",
			Help: "クリーンアップで削除された期限切れセッション数",
		}),
		abandonedUsers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ignitecall_cleanup_abandoned_users_total",
			Help: "クリーンアップで削除された放棄された仮登録ユーザー数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.authCallbacks,
		c.bookings,
		c.calendarEvents,
		c.availability,
		c.rateLimited,
		c.expiredSessions,
		c.abandonedUsers,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはパスではなくルートパターンを渡す。
func (c *Collector) RecordHTTPRequest(route, method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordAuthCallback はOAuthコールバックの結果を記録する。
func (c *Collector) RecordAuthCallback(result string) {
	c.authCallbacks.WithLabelValues(result).Inc()
}

// RecordBooking は予約リクエストの結果を記録する。
func (c *Collector) RecordBooking(result string) {
	c.bookings.WithLabelValues(result).Inc()
}

// RecordCalendarEvent はカレンダーイベント作成の成否を記録する。
func (c *Collector) RecordCalendarEvent(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.calendarEvents.WithLabelValues(result).Inc()
}

// RecordAvailabilityLookup は空き時間算出のレイテンシを記録する。
func (c *Collector) RecordAvailabilityLookup(duration time.Duration) {
	c.availability.Observe(duration.Seconds())
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// RecordCleanup はクリーンアップで削除した件数を記録する。
func (c *Collector) RecordCleanup(expiredSessions, abandonedUsers int64) {
	c.expiredSessions.Add(float64(expiredSessions))
	c.abandonedUsers.Add(float64(abandonedUsers))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// Nop は何も記録しないMetricsCollector。メトリクスを無効にする場合やテストで使う。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordAuthCallback(string)                            {}
func (Nop) RecordBooking(string)                                 {}
func (Nop) RecordCalendarEvent(bool)                             {}
func (Nop) RecordAvailabilityLookup(time.Duration)               {}
func (Nop) RecordRateLimited(string)                             {}
func (Nop) RecordCleanup(int64, int64)                           {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
