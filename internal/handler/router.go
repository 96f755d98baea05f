package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/metrics"
	"github.com/hitoshi/ignitecall/internal/middleware"
	"github.com/hitoshi/ignitecall/internal/web"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger         *slog.Logger
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler // nilなら/metricsを公開しない
	HealthChecker  HealthChecker

	// ミドルウェア依存
	SessionFinder     middleware.CurrentUserFinder
	AuthStore         auth.Store
	CORSAllowedOrigin string
	CookieSecure      bool
	CookieDomain      string
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService         AuthServiceInterface
	UserService         UserServiceInterface
	AvailabilityService AvailabilityServiceInterface
	SchedulingService   SchedulingServiceInterface

	// ページ
	Renderer  PageRenderer
	Localizer web.Localizer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS → (グループごと) CSRF → Session → RateLimit
//
// /health、/metrics、/static/* はCSRFとセッションの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(logger, collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.CookieSecure}))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	csrfConfig := middleware.CSRFConfig{CookieSecure: deps.CookieSecure, CookieDomain: deps.CookieDomain}
	csrf := middleware.NewCSRFMiddleware(csrfConfig)
	sessionConfig := middleware.SessionConfig{Store: deps.AuthStore, CookieSecure: deps.CookieSecure}
	requireSession := middleware.NewSessionMiddleware(deps.SessionFinder, sessionConfig)
	optionalSession := middleware.NewOptionalSessionMiddleware(deps.SessionFinder, sessionConfig)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthStore, AuthHandlerConfig{CookieSecure: deps.CookieSecure}, collector)
	userHandler := NewUserHandler(deps.UserService, UserHandlerConfig{CookieSecure: deps.CookieSecure})
	scheduleHandler := NewScheduleHandler(deps.AvailabilityService, deps.SchedulingService, collector)
	pageHandler := NewPageHandler(
		deps.Renderer, deps.Localizer,
		deps.UserService, deps.AvailabilityService, deps.SchedulingService,
		collector, PageHandlerConfig{CookieSecure: deps.CookieSecure},
	)

	// --- 運用系 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Handle("/static/*", web.StaticHandler())

	// --- 公開ページと公開API ---
	// ミドルウェアスタック: CSRF → Session(任意) → RateLimit(Public)
	r.Group(func(r chi.Router) {
		r.Use(csrf)
		r.Use(optionalSession)
		r.Use(deps.RateLimiter.PublicMiddleware())

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig).ServeHTTP)

		// ページ
		r.Get("/", pageHandler.Home)
		r.Get("/register", pageHandler.RegisterForm)
		r.Post("/register", pageHandler.Register)
		r.Get("/register/connect-calendar", pageHandler.ConnectCalendar)
		r.Get("/schedule/{username}", pageHandler.Schedule)
		r.Get("/schedule/{username}/confirm", pageHandler.ConfirmForm)
		r.With(deps.RateLimiter.BookingMiddleware()).Post("/schedule/{username}/confirm", pageHandler.Confirm)

		// OAuthフロー
		r.Get("/api/auth/signin/google", authHandler.SignIn)
		r.Get("/api/auth/callback/google", authHandler.Callback)
		r.Post("/api/auth/signout", authHandler.SignOut)

		// ユーザー名の確保と訪問者向けAPI
		r.Post("/users", userHandler.Register)
		r.Get("/users/{username}/availability", scheduleHandler.Availability)
		r.Get("/users/{username}/blocked-dates", scheduleHandler.BlockedDates)
		r.With(deps.RateLimiter.BookingMiddleware()).Post("/users/{username}/schedule", scheduleHandler.Schedule)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: CSRF → Session(必須) → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(csrf)
		r.Use(requireSession)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/auth/session", authHandler.Session)

		r.Put("/users/profile", userHandler.UpdateProfile)
		r.Get("/users/time-intervals", userHandler.TimeIntervals)
		r.Post("/users/time-intervals", userHandler.SetTimeIntervals)

		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
