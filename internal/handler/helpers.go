// Package handler はAPIエンドポイントのHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/miseban/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは内部サーバーエラーとして扱い、詳細はexposeDetailが
// 真の場合（開発環境）のみレスポンスに含める。本番では詳細をログのみに記録する。
func handleServiceError(w http.ResponseWriter, err error, exposeDetail bool) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))

	detail := ""
	if exposeDetail {
		detail = err.Error()
	}
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError(detail))
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidToken,
		model.ErrCodeAdminKeyMismatch, model.ErrCodeUpstreamAuthFailed:
		return http.StatusUnauthorized
	case model.ErrCodeStoreNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest, model.ErrCodeMissingImages:
		return http.StatusBadRequest
	case model.ErrCodeQuotaExceeded, model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeSchedulerAlreadyRunning:
		return http.StatusConflict
	case model.ErrCodeConfigError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
