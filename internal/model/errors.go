// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, store, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated         = "UNAUTHENTICATED"
	ErrCodeInvalidToken            = "INVALID_TOKEN"
	ErrCodeAdminKeyMismatch        = "ADMIN_KEY_MISMATCH"
	ErrCodeStoreNotFound           = "STORE_NOT_FOUND"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeMissingImages           = "MISSING_IMAGES"
	ErrCodeQuotaExceeded           = "QUOTA_EXCEEDED"
	ErrCodeUpstreamAuthFailed      = "UPSTREAM_AUTH_FAILED"
	ErrCodeConfigError             = "CONFIG_ERROR"
	ErrCodeSchedulerAlreadyRunning = "SCHEDULER_ALREADY_RUNNING"
	ErrCodeRateLimited             = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// NewUnauthenticatedError はベアラートークン未提示エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "認証トークンが無効です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAdminKeyMismatchError は管理者キー不一致エラーを生成する。
func NewAdminKeyMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminKeyMismatch,
		Message:  "管理者キーが正しくありません。",
		Category: "auth",
		Action:   "管理者キーを確認してください。",
	}
}

// NewStoreNotFoundError は店舗未検出エラーを生成する。
// 店舗が存在しない場合と他ユーザーの所有である場合を区別しない。
// 区別するとstore_idの総当たりで他ユーザーの店舗の存在が推測できてしまうため。
func NewStoreNotFoundError(storeID string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreNotFound,
		Message:  fmt.Sprintf("指定された店舗が見つかりません: %s", storeID),
		Category: "store",
		Action:   "店舗IDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewMissingImagesError は画像未指定エラーを生成する。
func NewMissingImagesError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingImages,
		Message:  "レビュー生成には画像が1枚以上必要です。",
		Category: "validation",
		Action:   "画像を添付してから再度お試しください。",
	}
}

// NewQuotaExceededError は外部APIのクォータ超過エラーを生成する。
func NewQuotaExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeQuotaExceeded,
		Message:  "AIサービスの利用上限に達しました。",
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamAuthFailedError は外部APIの認証失敗エラーを生成する。
func NewUpstreamAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamAuthFailed,
		Message:  "AIサービスの認証に失敗しました。",
		Category: "upstream",
		Action:   "管理者に連絡してください。",
	}
}

// NewConfigError は設定不足エラーを生成する。
func NewConfigError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeConfigError,
		Message:  fmt.Sprintf("サーバー設定が不足しています: %s", what),
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewSchedulerAlreadyRunningError はスケジューラ二重起動エラーを生成する。
func NewSchedulerAlreadyRunningError() *APIError {
	return &APIError{
		Code:     ErrCodeSchedulerAlreadyRunning,
		Message:  "スケジューラは既に起動しています。",
		Category: "system",
		Action:   "状態はGET /api/scheduler/statusで確認できます。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
// detailは開発環境でのみレスポンスに含める想定で、本番では空にする。
func NewInternalError(detail string) *APIError {
	msg := "内部エラーが発生しました。"
	if detail != "" {
		msg = fmt.Sprintf("内部エラーが発生しました: %s", detail)
	}
	return &APIError{
		Code:     ErrCodeInternalError,
		Message:  msg,
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
