package auth

import (
	"context"

	"github.com/hitoshi/miseban/internal/model"
)

// StoreFinder はオーナーシップ確認に必要なインターフェース。
// repository.StoreRepositoryの部分集合として定義する。
type StoreFinder interface {
	FindByIDForOwner(ctx context.Context, id, userID, platform string) (*model.Store, error)
}

// OwnershipGuard は店舗が認証済みユーザーの所有であることを確認する。
type OwnershipGuard struct {
	stores StoreFinder
}

// NewOwnershipGuard はOwnershipGuardを生成する。
func NewOwnershipGuard(stores StoreFinder) *OwnershipGuard {
	return &OwnershipGuard{stores: stores}
}

// AuthorizeStore は店舗ID・ユーザーID・プラットフォームの完全一致を確認し、
// 一致した店舗を返す。一致しない場合はSTORE_NOT_FOUNDを返す。
// 店舗が存在しない場合と他ユーザーの所有である場合を意図的に区別しない。
func (g *OwnershipGuard) AuthorizeStore(ctx context.Context, userID, storeID, platform string) (*model.Store, error) {
	store, err := g.stores.FindByIDForOwner(ctx, storeID, userID, platform)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, model.NewStoreNotFoundError(storeID)
	}
	return store, nil
}
