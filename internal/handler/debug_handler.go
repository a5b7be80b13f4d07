package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/miseban/internal/model"
)

// debugSampleLimit は診断エンドポイントが返すサンプル行数の上限。
const debugSampleLimit = 5

// UserSampler は診断用のユーザーサンプリングインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserSampler interface {
	SampleWithCount(ctx context.Context, limit int) ([]*model.User, int, error)
}

// StoreSampler は診断用の店舗サンプリングインターフェース。
// repository.StoreRepositoryの部分集合として定義する。
type StoreSampler interface {
	SampleWithCount(ctx context.Context, limit int) ([]*model.Store, int, error)
}

// DebugHandler はデータベース疎通診断のHTTPハンドラー。
// テーブルごとの失敗はレスポンス内にインラインで報告し、
// HTTPステータスは常に200を返す。
type DebugHandler struct {
	users  UserSampler
	stores StoreSampler
}

// NewDebugHandler はDebugHandlerを生成する。
func NewDebugHandler(users UserSampler, stores StoreSampler) *DebugHandler {
	return &DebugHandler{users: users, stores: stores}
}

// debugTableResult はテーブル1つ分の診断結果。
type debugTableResult struct {
	Count  int    `json:"count"`
	Sample any    `json:"sample"`
	Error  string `json:"error,omitempty"`
}

// debugUserSummary は診断用のユーザー要約。メールアドレス以外の
// 個人情報は含めない。
type debugUserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// debugStoreSummary は診断用の店舗要約。暗号化済みパスワードは
// 有無のフラグに落として返す。
type debugStoreSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Platform        string `json:"platform"`
	CrawlingEnabled bool   `json:"crawling_enabled"`
	IsActive        bool   `json:"is_active"`
	HasPassword     bool   `json:"has_password"`
}

// CheckDB はユーザー・店舗テーブルの件数とサンプルを返す。
// GET /api/debug/db-check
func (h *DebugHandler) CheckDB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userResult := debugTableResult{Sample: []debugUserSummary{}}
	users, userCount, err := h.users.SampleWithCount(ctx, debugSampleLimit)
	if err != nil {
		userResult.Error = err.Error()
	} else {
		userResult.Count = userCount
		summaries := make([]debugUserSummary, 0, len(users))
		for _, u := range users {
			summaries = append(summaries, debugUserSummary{ID: u.ID, Email: u.Email, Plan: u.Plan})
		}
		userResult.Sample = summaries
	}

	storeResult := debugTableResult{Sample: []debugStoreSummary{}}
	stores, storeCount, err := h.stores.SampleWithCount(ctx, debugSampleLimit)
	if err != nil {
		storeResult.Error = err.Error()
	} else {
		storeResult.Count = storeCount
		summaries := make([]debugStoreSummary, 0, len(stores))
		for _, s := range stores {
			summaries = append(summaries, debugStoreSummary{
				ID:              s.ID,
				Name:            s.Name,
				Platform:        s.Platform,
				CrawlingEnabled: s.CrawlingEnabled,
				IsActive:        s.IsActive,
				HasPassword:     s.PlatformPasswordEnc != "",
			})
		}
		storeResult.Sample = summaries
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"users":     userResult,
		"stores":    storeResult,
	})
}
