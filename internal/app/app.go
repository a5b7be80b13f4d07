// Package app はアプリケーションの初期化と起動モードの制御を行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/miseban/internal/analytics"
	"github.com/hitoshi/miseban/internal/auth"
	"github.com/hitoshi/miseban/internal/config"
	"github.com/hitoshi/miseban/internal/credential"
	"github.com/hitoshi/miseban/internal/database"
	"github.com/hitoshi/miseban/internal/handler"
	"github.com/hitoshi/miseban/internal/logger"
	"github.com/hitoshi/miseban/internal/metrics"
	"github.com/hitoshi/miseban/internal/middleware"
	"github.com/hitoshi/miseban/internal/repository"
	"github.com/hitoshi/miseban/internal/review"
	"github.com/hitoshi/miseban/internal/security"
	"github.com/hitoshi/miseban/internal/worker/crawl"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("env", cfg.AppEnv),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// クロールスケジューラーはワイヤリングのみ行い、起動はAPI経由のトリガーに委ねる。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	storeRepo := repository.NewPostgresStoreRepo(db)
	statsRepo := repository.NewPostgresStatisticsRepo(db)

	// 3. セキュリティ・メトリクスサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 認証・認可の初期化
	verifier := auth.NewVerifier(cfg.AuthJWTSecret, userRepo)
	guard := auth.NewOwnershipGuard(storeRepo)
	adminChecker := auth.NewAdminKeyChecker(cfg.AdminKey)

	cipher, err := credential.NewCipher(cfg.CredentialKey)
	if err != nil {
		return fmt.Errorf("failed to initialize credential cipher: %w", err)
	}

	// 5. ドメインサービスの初期化
	analyticsService := analytics.NewService(statsRepo, collector)

	reviewClient := review.NewClient(
		ssrfGuard.NewSafeClient(cfg.OpenAITimeout, cfg.OpenAIMaxBody),
		slog.Default(),
		review.ClientConfig{
			Endpoint: cfg.OpenAIEndpoint,
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIModel,
			MaxBody:  cfg.OpenAIMaxBody,
		},
	)
	reviewService := review.NewService(reviewClient, ssrfGuard, sanitizer, collector, slog.Default())

	// 6. クロールスケジューラーのワイヤリング（起動はAPIトリガー経由）
	crawler := crawl.NewHTTPCrawler(
		&http.Client{Timeout: cfg.CrawlTimeout},
		slog.Default(),
		cfg.CrawlerServiceURL,
	)
	scheduler := crawl.NewScheduler(
		storeRepo, crawler, analyticsService, collector,
		slog.Default(), cfg.CrawlInterval, cfg.CrawlMaxConcurrent,
	)

	// スケジューラーの寿命をリクエストではなくプロセスに紐づけるためのコンテキスト
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(newRateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Verifier:          verifier,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		MetricsCollector:  collector,
		MetricsHandler:    metrics.SetupMetricsRoute(registry),
		Logger:            slog.Default(),

		AdminKeyChecker: adminChecker,
		AdminStores:     storeRepo,
		Decrypter:       cipher,

		StoreGuard: guard,
		Analytics:  analyticsService,

		ReviewStores: storeRepo,
		Reviews:      reviewService,

		Scheduler:  scheduler,
		AppContext: appCtx,

		DebugUsers:  userRepo,
		DebugStores: storeRepo,

		DB: db,

		ExposeErrorDetail: !cfg.IsProduction(),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // レビュー生成は外部API待ちで長くなる
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	// スケジューラーを先に止めてからHTTPサーバーをドレインする
	appCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、クロールスケジューラーを即時起動する。
// APIトリガーを待たずにクロールを回したいデプロイ向けのモード。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 依存関係のワイヤリング
	storeRepo := repository.NewPostgresStoreRepo(db)
	statsRepo := repository.NewPostgresStatisticsRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	analyticsService := analytics.NewService(statsRepo, collector)

	crawler := crawl.NewHTTPCrawler(
		&http.Client{Timeout: cfg.CrawlTimeout},
		slog.Default(),
		cfg.CrawlerServiceURL,
	)
	scheduler := crawl.NewScheduler(
		storeRepo, crawler, analyticsService, collector,
		slog.Default(), cfg.CrawlInterval, cfg.CrawlMaxConcurrent,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("crawl_interval", cfg.CrawlInterval),
		slog.Int("max_concurrent", cfg.CrawlMaxConcurrent),
	)

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start crawl scheduler: %w", err)
	}

	<-ctx.Done()

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// newRateLimiterConfig は設定のreq/min値をrate.Limit（req/sec）に変換する。
func newRateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	c := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		c.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		c.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitReviewGen > 0 {
		c.ReviewGenRate = rate.Limit(float64(cfg.RateLimitReviewGen) / 60.0)
		c.ReviewGenBurst = cfg.RateLimitReviewGen
	}
	return c
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
