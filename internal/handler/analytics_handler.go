package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/miseban/internal/analytics"
	"github.com/hitoshi/miseban/internal/middleware"
	"github.com/hitoshi/miseban/internal/model"
)

// StoreAuthorizer は店舗オーナーシップ検証のインターフェース。
// auth.OwnershipGuardの部分集合として定義する。
type StoreAuthorizer interface {
	AuthorizeStore(ctx context.Context, userID, storeID, platform string) (*model.Store, error)
}

// AnalyticsService は分析データの読み書きインターフェース。
// analytics.Serviceの部分集合として定義する。
type AnalyticsService interface {
	Read(ctx context.Context, storeID, period, explicitDate string) ([]*model.StatisticsRecord, error)
	Write(ctx context.Context, storeID, date string, input *analytics.WriteInput) (*model.StatisticsRecord, error)
}

// AnalyticsHandler はNAVER分析データAPIのHTTPハンドラー。
// 認証ミドルウェアの内側に配置される前提で、コンテキストから
// ユーザーを取り出してオーナーシップを検証する。
type AnalyticsHandler struct {
	guard        StoreAuthorizer
	svc          AnalyticsService
	exposeDetail bool
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(guard StoreAuthorizer, svc AnalyticsService, exposeDetail bool) *AnalyticsHandler {
	return &AnalyticsHandler{guard: guard, svc: svc, exposeDetail: exposeDetail}
}

// GetNaver は期間指定でNAVER統計を返す。
// GET /api/analytics/naver?store_id=...&period=7days&date=YYYY-MM-DD
func (h *AnalyticsHandler) GetNaver(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	storeID := r.URL.Query().Get("store_id")
	if storeID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("store_idが指定されていません"))
		return
	}

	store, err := h.guard.AuthorizeStore(r.Context(), user.ID, storeID, model.PlatformNaver)
	if err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	period := analytics.ParsePeriod(r.URL.Query().Get("period"))
	records, err := h.svc.Read(r.Context(), store.ID, string(period), r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"period":  string(period),
		"count":   len(records),
		"data":    records,
	})
}

// writeNaverRequest はNAVER統計書き込みリクエストのボディ。
type writeNaverRequest struct {
	StoreID string `json:"store_id"`
	Date    string `json:"date"`
	analytics.WriteInput
}

// PostNaver はNAVER統計を書き込む。同一店舗・同一日付のレコードが
// 既にある場合は上書きする。
// POST /api/analytics/naver
func (h *AnalyticsHandler) PostNaver(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req writeNaverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.StoreID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("store_idが指定されていません"))
		return
	}

	store, err := h.guard.AuthorizeStore(r.Context(), user.ID, req.StoreID, model.PlatformNaver)
	if err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	record, err := h.svc.Write(r.Context(), store.ID, req.Date, &req.WriteInput)
	if err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    record,
	})
}
