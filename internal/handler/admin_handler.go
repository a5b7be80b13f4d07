package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/miseban/internal/model"
)

// AdminKeyChecker は管理者キー照合のインターフェース。
// auth.AdminKeyCheckerの部分集合として定義する。
type AdminKeyChecker interface {
	Check(presented string) error
}

// AdminStoreReader は管理者ハンドラーが必要とする店舗読み取りインターフェース。
// repository.StoreRepositoryの部分集合として定義する。
type AdminStoreReader interface {
	FindByID(ctx context.Context, id string) (*model.Store, error)
	ListAllWithOwner(ctx context.Context) ([]*model.StoreWithOwner, error)
}

// CredentialDecrypter は認証情報復号のインターフェース。
// credential.Cipherの部分集合として定義する。
type CredentialDecrypter interface {
	DecryptOrSentinel(encoded string) string
}

// AdminHandler は管理者向けAPIのHTTPハンドラー。
// 管理者キーの所持によってスコープされ、ユーザーごとのオーナーシップ
// チェックを意図的にバイパスする。
type AdminHandler struct {
	checker      AdminKeyChecker
	stores       AdminStoreReader
	decrypter    CredentialDecrypter
	exposeDetail bool
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(checker AdminKeyChecker, stores AdminStoreReader, decrypter CredentialDecrypter, exposeDetail bool) *AdminHandler {
	return &AdminHandler{
		checker:      checker,
		stores:       stores,
		decrypter:    decrypter,
		exposeDetail: exposeDetail,
	}
}

// decryptPasswordRequest はパスワード復号リクエストのボディ。
type decryptPasswordRequest struct {
	StoreID  string `json:"store_id"`
	AdminKey string `json:"admin_key"`
}

// adminStoreResponse は管理者向けの店舗情報レスポンス。
type adminStoreResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Platform         string    `json:"platform"`
	PlatformStoreID  string    `json:"platform_store_id"`
	PlatformLoginID  string    `json:"platform_login_id"`
	PlatformPassword string    `json:"platform_password,omitempty"`
	HasPassword      bool      `json:"has_password"`
	CrawlingEnabled  bool      `json:"crawling_enabled"`
	IsActive         bool      `json:"is_active"`
	UserID           string    `json:"user_id"`
	OwnerEmail       string    `json:"owner_email,omitempty"`
	OwnerName        string    `json:"owner_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// DecryptPassword は店舗のプラットフォームパスワードを復号して返す。
// POST /api/admin/decrypt-password
//
// 管理者キーの照合は店舗テーブルへのクエリより前に行う。
// 復号に失敗した場合はリクエスト全体を失敗させず、番兵値を埋めて
// 残りの店舗情報を返す。
func (h *AdminHandler) DecryptPassword(w http.ResponseWriter, r *http.Request) {
	var req decryptPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.checker.Check(req.AdminKey); err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	if req.StoreID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("store_idが指定されていません"))
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

	resp := adminStoreResponse{
		ID:              store.ID,
		Name:            store.Name,
		Platform:        store.Platform,
		PlatformStoreID: store.PlatformStoreID,
		PlatformLoginID: store.PlatformLoginID,
		HasPassword:     store.PlatformPasswordEnc != "",
		CrawlingEnabled: store.CrawlingEnabled,
		IsActive:        store.IsActive,
		UserID:          store.UserID,
		CreatedAt:       store.CreatedAt,
	}
	if store.PlatformPasswordEnc != "" {
		resp.PlatformPassword = h.decrypter.DecryptOrSentinel(store.PlatformPasswordEnc)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"store":   resp,
	})
}

// ListStores は全店舗をオーナー情報付きで返す。
// GET /api/admin/stores?admin_key=...
//
// データセットが小規模である前提のためページネーションは行わない。
// パスワードは復号せず、有無のフラグのみ返す。
func (h *AdminHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.Check(r.URL.Query().Get("admin_key")); err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	stores, err := h.stores.ListAllWithOwner(r.Context())
	if err != nil {
		handleServiceError(w, err, h.exposeDetail)
		return
	}

	resp := make([]adminStoreResponse, 0, len(stores))
	for _, s := range stores {
		resp = append(resp, adminStoreResponse{
			ID:              s.ID,
			Name:            s.Name,
			Platform:        s.Platform,
			PlatformStoreID: s.PlatformStoreID,
			PlatformLoginID: s.PlatformLoginID,
			HasPassword:     s.PlatformPasswordEnc != "",
			CrawlingEnabled: s.CrawlingEnabled,
			IsActive:        s.IsActive,
			UserID:          s.UserID,
			OwnerEmail:      s.OwnerEmail,
			OwnerName:       s.OwnerName,
			CreatedAt:       s.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(resp),
		"stores":  resp,
	})
}
