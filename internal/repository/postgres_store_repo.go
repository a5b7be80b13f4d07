package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/miseban/internal/model"
)

// storeColumns は店舗SELECTの共通カラムリスト。
const storeColumns = `id, name, platform, platform_store_id, platform_login_id,
	platform_password_enc, crawling_enabled, is_active, user_id, created_at, updated_at`

// PostgresStoreRepo はPostgreSQLを使用した店舗リポジトリ。
type PostgresStoreRepo struct {
	db *sql.DB
}

// NewPostgresStoreRepo はPostgresStoreRepoを生成する。
func NewPostgresStoreRepo(db *sql.DB) *PostgresStoreRepo {
	return &PostgresStoreRepo{db: db}
}

// scanStore は1行を*model.Storeに読み込む。
func scanStore(row interface{ Scan(...any) error }) (*model.Store, error) {
	store := &model.Store{}
	err := row.Scan(
		&store.ID, &store.Name, &store.Platform,
		&store.PlatformStoreID, &store.PlatformLoginID, &store.PlatformPasswordEnc,
		&store.CrawlingEnabled, &store.IsActive, &store.UserID,
		&store.CreatedAt, &store.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
// オーナーチェックを行わないため、管理者経路でのみ使用すること。
func (r *PostgresStoreRepo) FindByID(ctx context.Context, id string) (*model.Store, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1`,
		id,
	)

	store, err := scanStore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find store by ID: %w", err)
	}

	return store, nil
}

// FindByIDForOwner はID・オーナーID・プラットフォームの完全一致で店舗を取得する。
// 0件の場合はnilを返す。部分一致やあいまい検索は行わない。
func (r *PostgresStoreRepo) FindByIDForOwner(ctx context.Context, id, userID, platform string) (*model.Store, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores
		 WHERE id = $1 AND user_id = $2 AND platform = $3`,
		id, userID, platform,
	)

	store, err := scanStore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find store for owner: %w", err)
	}

	return store, nil
}

// ListAllWithOwner は全店舗をオーナー情報付きで作成日時の降順で返す。
// データセットが小規模である前提のためページネーションは行わない。
func (r *PostgresStoreRepo) ListAllWithOwner(ctx context.Context) ([]*model.StoreWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.platform, s.platform_store_id, s.platform_login_id,
		        s.platform_password_enc, s.crawling_enabled, s.is_active, s.user_id,
		        s.created_at, s.updated_at, u.email, u.name
		 FROM stores s
		 JOIN users u ON u.id = s.user_id
		 ORDER BY s.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores with owner: %w", err)
	}
	defer rows.Close()

	var stores []*model.StoreWithOwner
	for rows.Next() {
		s := &model.StoreWithOwner{}
		err := rows.Scan(
			&s.ID, &s.Name, &s.Platform,
			&s.PlatformStoreID, &s.PlatformLoginID, &s.PlatformPasswordEnc,
			&s.CrawlingEnabled, &s.IsActive, &s.UserID,
			&s.CreatedAt, &s.UpdatedAt, &s.OwnerEmail, &s.OwnerName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store with owner: %w", err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stores: %w", err)
	}

	return stores, nil
}

// ListActiveCrawlTargets はクロール有効かつアクティブな店舗を返す。
func (r *PostgresStoreRepo) ListActiveCrawlTargets(ctx context.Context) ([]*model.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+` FROM stores
		 WHERE crawling_enabled = TRUE AND is_active = TRUE
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl targets: %w", err)
	}
	defer rows.Close()

	var stores []*model.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl target: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate crawl targets: %w", err)
	}

	return stores, nil
}

// SampleWithCount は診断用に総件数とサンプル行を取得する。
func (r *PostgresStoreRepo) SampleWithCount(ctx context.Context, limit int) ([]*model.Store, int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stores`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count stores: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+` FROM stores ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to sample stores: %w", err)
	}
	defer rows.Close()

	var stores []*model.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate stores: %w", err)
	}

	return stores, count, nil
}

// compile-time interface check
var _ StoreRepository = (*PostgresStoreRepo)(nil)
