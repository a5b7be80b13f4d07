// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/miseban/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// SampleWithCount は診断用に総件数とサンプル行を取得する。
	SampleWithCount(ctx context.Context, limit int) ([]*model.User, int, error)
}

// StoreRepository は店舗データの永続化インターフェース。
type StoreRepository interface {
	// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
	// オーナーチェックを行わないため、管理者経路でのみ使用すること。
	FindByID(ctx context.Context, id string) (*model.Store, error)

	// FindByIDForOwner はID・オーナーID・プラットフォームの完全一致で店舗を取得する。
	// 一致する行がちょうど1件の場合のみ成功し、0件の場合はnilを返す。
	// 「存在しない」と「他ユーザーの所有」を区別しない（列挙攻撃の防止）。
	FindByIDForOwner(ctx context.Context, id, userID, platform string) (*model.Store, error)

	// ListAllWithOwner は全店舗をオーナー情報付きで作成日時の降順で返す。
	// ページネーションなし。管理者経路でのみ使用すること。
	ListAllWithOwner(ctx context.Context) ([]*model.StoreWithOwner, error)

	// ListActiveCrawlTargets はクロール有効かつアクティブな店舗を返す。
	ListActiveCrawlTargets(ctx context.Context) ([]*model.Store, error)

	// SampleWithCount は診断用に総件数とサンプル行を取得する。
	SampleWithCount(ctx context.Context, limit int) ([]*model.Store, int, error)
}

// StatisticsRepository は店舗統計データの永続化インターフェース。
type StatisticsRepository interface {
	// Upsert は統計行を(store_id, date)キーで冪等にUPSERTする。
	// 同一キーへの2回目の書き込みは後勝ちで置き換える。
	Upsert(ctx context.Context, rec *model.StatisticsRecord) (*model.StatisticsRecord, error)

	// ListByStoreAndDateRange は指定店舗の統計を日付範囲（両端含む）で取得する。
	// 日付の降順で返す。
	ListByStoreAndDateRange(ctx context.Context, storeID, startDate, endDate string) ([]*model.StatisticsRecord, error)
}
