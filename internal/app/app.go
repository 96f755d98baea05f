package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/ignitecall/internal/auth"
	"github.com/hitoshi/ignitecall/internal/availability"
	"github.com/hitoshi/ignitecall/internal/calendar"
	"github.com/hitoshi/ignitecall/internal/config"
	"github.com/hitoshi/ignitecall/internal/database"
	"github.com/hitoshi/ignitecall/internal/handler"
	"github.com/hitoshi/ignitecall/internal/logger"
	"github.com/hitoshi/ignitecall/internal/metrics"
	"github.com/hitoshi/ignitecall/internal/middleware"
	"github.com/hitoshi/ignitecall/internal/repository"
	"github.com/hitoshi/ignitecall/internal/scheduling"
	"github.com/hitoshi/ignitecall/internal/security"
	"github.com/hitoshi/ignitecall/internal/user"
	"github.com/hitoshi/ignitecall/internal/web"
	"github.com/hitoshi/ignitecall/internal/worker/cleanup"
)

const shutdownTimeout = 30 * time.Second

var defaultPool = database.PoolConfig{
	MaxOpenConns:    20,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、設定されたレベルでJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込みの失敗もJSONで出力できるよう、先にINFOレベルで初期化する
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("timezone", cfg.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		action, err := parseMigrateArgs(args[1:])
		if err != nil {
			return err
		}
		return runMigrate(cfg, action)
	default:
		return runServe(ctx, cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, defaultPool)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// server はserveモードで組み立てた依存関係。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// rateLimiterConfig は1分あたりのリクエスト数の設定をレート制限設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rl.GeneralBurst = cfg.RateLimitGeneral
	rl.PublicRate = rate.Limit(float64(cfg.RateLimitPublic) / 60)
	rl.PublicBurst = cfg.RateLimitPublic
	rl.BookingRate = rate.Limit(float64(cfg.RateLimitBooking) / 60)
	rl.BookingBurst = cfg.RateLimitBooking
	return rl
}

// newServer はリポジトリからルーターまでの全依存関係をワイヤリングする。
// dbへの接続は行わないため、疎通確認は呼び出し側の責務。
func newServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*server, error) {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	accountRepo := repository.NewPostgresAccountRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	intervalRepo := repository.NewPostgresTimeIntervalRepo(db)
	schedulingRepo := repository.NewPostgresSchedulingRepo(db)
	authStore := auth.Store{Users: userRepo, Accounts: accountRepo, Sessions: sessionRepo, CookieSecure: cfg.CookieSecure}

	// 2. メトリクス
	var collector metrics.MetricsCollector = metrics.Nop{}
	var metricsHandler http.Handler
	if reg != nil {
		collector = metrics.NewCollector(reg)
		metricsHandler = metrics.Handler(reg)
	}

	// 3. ドメインサービス
	sanitizer := security.NewTextSanitizer()
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(oauthProvider, auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	userService := user.NewService(userRepo, sessionRepo, intervalRepo, schedulingRepo, sanitizer)
	availabilityService := availability.NewService(userRepo, intervalRepo, schedulingRepo, cfg.Location)

	calendarClient := calendar.NewClient(accountRepo, oauthProvider, slog.Default())
	schedulingService := scheduling.NewService(userRepo, intervalRepo, schedulingRepo, calendarClient, sanitizer, cfg.Location)
	schedulingService.SetRecorder(collector)

	// 4. ページ描画
	printer := web.NewPrinter()
	renderer, err := web.NewRenderer(printer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	// 5. ルーター
	limiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	limiter.SetObserver(collector)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		Metrics:        collector,
		MetricsHandler: metricsHandler,
		HealthChecker:  db,

		SessionFinder:     authService,
		AuthStore:         authStore,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CookieSecure:      cfg.CookieSecure,
		CookieDomain:      cfg.CookieDomain,
		RateLimiter:       limiter,

		AuthService:         authService,
		UserService:         userService,
		AvailabilityService: availabilityService,
		SchedulingService:   schedulingService,

		Renderer:  renderer,
		Localizer: printer,
	})

	return &server{handler: router, rateLimiter: limiter}, nil
}

// newRegistry はアプリケーションとランタイムのメトリクスを登録するレジストリを返す。
func newRegistry(cfg *config.Config) *prometheus.Registry {
	if !cfg.MetricsEnabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connection established")

	srv, err := newServer(cfg, db, newRegistry(cfg))
	if err != nil {
		return err
	}
	defer srv.rateLimiter.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションと放置された仮登録ユーザーのクリーンアップを定期実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connection established (worker)")

	// 運用系エンドポイント（/health と、有効なら /metrics）
	mux := http.NewServeMux()
	mux.Handle("GET /health", handler.NewHealthHandler(db))
	var recorder cleanup.Recorder
	if reg := newRegistry(cfg); reg != nil {
		recorder = metrics.NewCollector(reg)
		mux.Handle("GET /metrics", metrics.SetupMetricsRoute(reg))
	}
	opsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker ops server listen error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("worker ops server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	job := cleanup.NewCleanupJob(db, slog.Default(), recorder)
	job.PendingUserTTL = cfg.PendingUserTTL

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("pending_user_ttl", cfg.PendingUserTTL),
	)

	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを適用、または巻き戻す。
func runMigrate(cfg *config.Config, action migrateAction) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Bool("down", action.down),
		slog.Int("steps", action.steps),
	)

	if action.down {
		if err := database.RollbackMigrations(cfg.DatabaseURL, action.steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// checkHealth は/healthにHTTPリクエストを送り、200以外ならエラーを返す。
// distroless環境でのDockerヘルスチェック用。
func checkHealth(target string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
