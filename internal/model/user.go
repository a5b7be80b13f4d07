// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 認証はJWTベアラートークンで行い、表示名などのプロフィール情報はusersテーブルから補完する。
type User struct {
	ID        string
	Email     string
	Name      string
	Plan      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 契約プラン
const (
	// PlanFree は無料プラン。
	PlanFree = "free"
	// PlanBasic は基本プラン。
	PlanBasic = "basic"
	// PlanPro は上位プラン。
	PlanPro = "pro"
)
