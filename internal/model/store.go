// Package model はドメインモデルを定義する。
package model

import "time"

// Platform は連携先プラットフォームの識別子。
const (
	// PlatformNaver はNAVERスマートプレイス連携を示す。
	PlatformNaver = "naver"
)

// Store はユーザーが連携した店舗アカウントを表す。
// 1店舗は必ず1人のオーナーユーザーに属する。
// 管理者経路を除くすべての読み書きはオーナーIDでスコープされる。
type Store struct {
	ID              string
	Name            string
	Platform        string
	PlatformStoreID string
	PlatformLoginID string
	// PlatformPasswordEnc はプラットフォームのログインパスワードの暗号文。
	// 平文はDBに保存せず、復号は管理者経路でのみ行う。
	PlatformPasswordEnc string
	CrawlingEnabled     bool
	IsActive            bool
	UserID              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// StoreWithOwner は店舗とオーナーユーザー情報を結合した構造体。
// 管理者向け店舗一覧で使用する。
type StoreWithOwner struct {
	Store
	OwnerEmail string
	OwnerName  string
}
