package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/miseban/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier          middleware.RequestVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsCollector  middleware.HTTPStatusRecorder
	MetricsHandler    http.Handler
	Logger            *slog.Logger

	// 管理者API
	AdminKeyChecker AdminKeyChecker
	AdminStores     AdminStoreReader
	Decrypter       CredentialDecrypter

	// 分析API
	StoreGuard StoreAuthorizer
	Analytics  AnalyticsService

	// レビュー生成API
	ReviewStores ReviewStoreReader
	Reviews      ReviewGenerator

	// スケジューラーAPI
	Scheduler CrawlScheduler
	// AppContext はスケジューラー起動に使う長寿命コンテキスト。
	// リクエストスコープのコンテキストでは起動後すぐ停止してしまう。
	AppContext context.Context

	// 診断API
	DebugUsers  UserSampler
	DebugStores StoreSampler

	// ヘルスチェック
	DB *sql.DB

	// ExposeErrorDetail は内部エラーの詳細をレスポンスに含めるかどうか。
	// 開発環境でのみtrueにする。
	ExposeErrorDetail bool
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Metrics
//
// 分析APIのみ認証ミドルウェアと一般レート制限の内側に配置する。
// レビュー生成APIは認証なしだが、呼び出し元アドレス単位の専用レート制限をかける。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.MetricsCollector))

	adminHandler := NewAdminHandler(deps.AdminKeyChecker, deps.AdminStores, deps.Decrypter, deps.ExposeErrorDetail)
	analyticsHandler := NewAnalyticsHandler(deps.StoreGuard, deps.Analytics, deps.ExposeErrorDetail)
	reviewHandler := NewReviewHandler(deps.ReviewStores, deps.Reviews, deps.ExposeErrorDetail)
	schedulerHandler := NewSchedulerHandler(deps.Scheduler, deps.AppContext, deps.ExposeErrorDetail)
	debugHandler := NewDebugHandler(deps.DebugUsers, deps.DebugStores)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.DB))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 管理者API（管理者キーでスコープ）
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/decrypt-password", adminHandler.DecryptPassword)
		r.Get("/stores", adminHandler.ListStores)
	})

	// スケジューラーAPI（認証なし。二重起動は409で弾かれる）
	r.Route("/api/scheduler", func(r chi.Router) {
		r.Post("/start", schedulerHandler.Start)
		// 旧フロントエンドはGET /startで状態を取得していたため両方を受ける
		r.Get("/start", schedulerHandler.Status)
		r.Get("/status", schedulerHandler.Status)
	})

	// レビュー生成API（専用レート制限のみ）
	r.With(deps.RateLimiter.ReviewGenerationMiddleware()).
		Post("/api/reviews/generate", reviewHandler.Generate)

	// 診断API
	r.Get("/api/debug/db-check", debugHandler.CheckDB)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Verifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/analytics", func(r chi.Router) {
			r.Get("/naver", analyticsHandler.GetNaver)
			r.Post("/naver", analyticsHandler.PostNaver)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status = "db unreachable"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{"status": status})
	}
}
