package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/miseban/internal/model"
)

// ReviewGenerator はレビュー下書き生成のインターフェース。
// review.Serviceの部分集合として定義する。
type ReviewGenerator interface {
	Generate(ctx context.Context, store *model.Store, images []string, customPrompt string, rules *model.ReviewRules) (*model.ReviewDraft, error)
}

// ReviewStoreReader はレビューハンドラーが必要とする店舗読み取りインターフェース。
// repository.StoreRepositoryの部分集合として定義する。
type ReviewStoreReader interface {
	FindByID(ctx context.Context, id string) (*model.Store, error)
}

// ReviewHandler はAIレビュー下書き生成APIのHTTPハンドラー。
// 店舗IDのみでスコープされ、ユーザー認証を必要としない。
// 代わりに呼び出し元アドレス単位のレート制限をかける。
type ReviewHandler struct {
	stores       ReviewStoreReader
	generator    ReviewGenerator
	exposeDetail bool
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(stores ReviewStoreReader, generator ReviewGenerator, exposeDetail bool) *ReviewHandler {
	return &ReviewHandler{stores: stores, generator: generator, exposeDetail: exposeDetail}
}

// generateReviewRequest はレビュー生成リクエストのボディ。
// フィールド名はフロントエンドの命名に合わせてcamelCase。
type generateReviewRequest struct {
	StoreID      string             `json:"storeId"`
	Images       []string           `json:"images"`
	CustomPrompt string             `json:"customPrompt"`
	ReviewRules  *model.ReviewRules `json:"reviewRules"`
}

// Generate は添付画像と店舗のルールセットからレビュー下書きを生成する。
// POST /api/reviews/generate
func (h *ReviewHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.StoreID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("storeIdが指定されていません"))
		return
	}

	store, err := h.stores.FindByID(r.Context(), req.StoreID)
	if err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}
	if store == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewStoreNotFoundError(req.StoreID))
		return
	}

	draft, err := h.generator.Generate(r.Context(), store, req.Images, req.CustomPrompt, req.ReviewRules)
	if err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"review":  draft,
	})
}
