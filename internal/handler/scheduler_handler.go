package handler

import (
	"context"
	"net/http"
	"time"
)

// CrawlScheduler はクロールスケジューラーの操作インターフェース。
// crawl.Schedulerの部分集合として定義する。
type CrawlScheduler interface {
	Start(ctx context.Context) error
	Running() bool
	StartedAt() time.Time
}

// SchedulerHandler はクロールスケジューラーの起動・状態確認API。
// 認証なしで呼べる。起動は冪等に近く、二重起動は409で弾かれるだけなので
// 管理者キーは要求しない。
//
// 起動にはリクエストのコンテキストではなくアプリケーションの
// ライフサイクルに紐づいたコンテキストを使う。リクエスト終了で
// スケジューラーが止まってしまうのを防ぐため。
type SchedulerHandler struct {
	scheduler    CrawlScheduler
	appCtx       context.Context
	exposeDetail bool
}

// NewSchedulerHandler はSchedulerHandlerを生成する。
func NewSchedulerHandler(scheduler CrawlScheduler, appCtx context.Context, exposeDetail bool) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler:    scheduler,
		appCtx:       appCtx,
		exposeDetail: exposeDetail,
	}
}

// Start はクロールスケジューラーを起動する。
// POST /api/scheduler/start
//
// 成功時は起動時刻を含むレスポンスを返す。
// 既に起動済みの場合は409を返す。
func (h *SchedulerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Start(h.appCtx); err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	startedAt := h.scheduler.StartedAt()
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "クロールスケジューラーを起動しました",
		"started_at": startedAt.UTC().Format(time.RFC3339),
	})
}

// Status はスケジューラーの現在の状態を返す。
// GET /api/scheduler/status
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"success": true,
		"running": h.scheduler.Running(),
	}
	if startedAt := h.scheduler.StartedAt(); !startedAt.IsZero() {
		resp["started_at"] = startedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}
