package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/miseban/internal/model"
)

// PostgresStatisticsRepo はPostgreSQLを使用した店舗統計リポジトリ。
type PostgresStatisticsRepo struct {
	db *sql.DB
}

// NewPostgresStatisticsRepo はPostgresStatisticsRepoを生成する。
func NewPostgresStatisticsRepo(db *sql.DB) *PostgresStatisticsRepo {
	return &PostgresStatisticsRepo{db: db}
}

// Upsert は統計行を(store_id, date)キーで冪等にUPSERTする。
// UNIQUE(store_id, date)制約を利用したINSERT ON CONFLICTで実装し、
// 同一キーへの2回目の書き込みは後勝ちで全フィールドを置き換える。
// created_atは初回INSERT時の値を維持する。
func (r *PostgresStatisticsRepo) Upsert(ctx context.Context, rec *model.StatisticsRecord) (*model.StatisticsRecord, error) {
	now := time.Now().UTC()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO store_statistics (
		     id, store_id, date,
		     inflow, inflow_change, orders, orders_change,
		     calls, calls_change, reviews, reviews_change,
		     inflow_channels, inflow_keywords, created_at, updated_at
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (store_id, date) DO UPDATE SET
		     inflow          = EXCLUDED.inflow,
		     inflow_change   = EXCLUDED.inflow_change,
		     orders          = EXCLUDED.orders,
		     orders_change   = EXCLUDED.orders_change,
		     calls           = EXCLUDED.calls,
		     calls_change    = EXCLUDED.calls_change,
		     reviews         = EXCLUDED.reviews,
		     reviews_change  = EXCLUDED.reviews_change,
		     inflow_channels = EXCLUDED.inflow_channels,
		     inflow_keywords = EXCLUDED.inflow_keywords,
		     updated_at      = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		rec.ID, rec.StoreID, rec.Date,
		rec.Inflow, rec.InflowChange, rec.Orders, rec.OrdersChange,
		rec.Calls, rec.CallsChange, rec.Reviews, rec.ReviewsChange,
		rec.InflowChannels, rec.InflowKeywords, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("統計のUPSERTに失敗しました: %w", err)
	}

	return rec, nil
}

// ListByStoreAndDateRange は指定店舗の統計を日付範囲（両端含む）で取得する。
// 日付はISO形式の文字列として比較し、日付の降順で返す。
func (r *PostgresStatisticsRepo) ListByStoreAndDateRange(ctx context.Context, storeID, startDate, endDate string) ([]*model.StatisticsRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, store_id, date::text,
		        inflow, inflow_change, orders, orders_change,
		        calls, calls_change, reviews, reviews_change,
		        inflow_channels, inflow_keywords, created_at, updated_at
		 FROM store_statistics
		 WHERE store_id = $1 AND date >= $2::date AND date <= $3::date
		 ORDER BY date DESC`,
		storeID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("統計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []*model.StatisticsRecord
	for rows.Next() {
		rec := &model.StatisticsRecord{}
		var inflowChange, ordersChange, callsChange, reviewsChange sql.NullInt64

		err := rows.Scan(
			&rec.ID, &rec.StoreID, &rec.Date,
			&rec.Inflow, &inflowChange, &rec.Orders, &ordersChange,
			&rec.Calls, &callsChange, &rec.Reviews, &reviewsChange,
			&rec.InflowChannels, &rec.InflowKeywords,
			&rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("統計行の読み込みに失敗しました: %w", err)
		}

		rec.InflowChange = nullIntPtr(inflowChange)
		rec.OrdersChange = nullIntPtr(ordersChange)
		rec.CallsChange = nullIntPtr(callsChange)
		rec.ReviewsChange = nullIntPtr(reviewsChange)

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("統計の走査に失敗しました: %w", err)
	}

	return records, nil
}

// nullIntPtr はsql.NullInt64を*intに変換する。
func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// compile-time interface check
var _ StatisticsRepository = (*PostgresStatisticsRepo)(nil)
