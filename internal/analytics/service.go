// Package analytics は店舗統計の読み書きロジックを提供する。
// 期間指定の解決、日付範囲の計算、欠損フィールドの既定値適用を行う。
package analytics

import (
	"context"
	"time"

	"github.com/hitoshi/miseban/internal/model"
	"github.com/hitoshi/miseban/internal/repository"
)

// Period は統計取得の期間指定を表す。
type Period string

const (
	// Period7Days は直近7日間。
	Period7Days Period = "7days"
	// Period30Days は直近30日間。
	Period30Days Period = "30days"
	// Period90Days は直近90日間。
	Period90Days Period = "90days"
	// PeriodDaily は単一日。
	PeriodDaily Period = "daily"
)

// dateLayout は統計日付のISO形式。時刻は持たない。
const dateLayout = "2006-01-02"

// ParsePeriod は期間指定文字列を解決する。
// 認識できない値は7daysにフォールバックする。
func ParsePeriod(s string) Period {
	switch Period(s) {
	case Period7Days, Period30Days, Period90Days, PeriodDaily:
		return Period(s)
	default:
		return Period7Days
	}
}

// days は期間の日数を返す。dailyは0を返す。
func (p Period) days() int {
	switch p {
	case Period30Days:
		return 30
	case Period90Days:
		return 90
	case PeriodDaily:
		return 0
	default:
		return 7
	}
}

// validateDate は日付文字列がISO形式（YYYY-MM-DD）であることを検証する。
// 空文字列は「日付指定なし」として許容する。不正な値はDBのdateキャストまで
// 流さず、ここで検証エラーとして弾く。
func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return model.NewInvalidRequestError("dateはYYYY-MM-DD形式で指定してください")
	}
	return nil
}

// ResolveDateRange は期間指定から取得日付範囲（両端含む）を計算する。
// dailyで明示日付がある場合は範囲がその1日に縮退する。
// それ以外は「今日からN日前」〜「今日」の範囲になる。
func ResolveDateRange(p Period, explicitDate string, now time.Time) (start, end string) {
	today := now.Format(dateLayout)

	if p == PeriodDaily && explicitDate != "" {
		return explicitDate, explicitDate
	}

	n := p.days()
	if n == 0 {
		// daily指定で日付がない場合は今日1日分
		return today, today
	}

	start = now.AddDate(0, 0, -n).Format(dateLayout)
	return start, today
}

// WriteInput は統計書き込みの入力を表す。
// 数値の欠損は0、コレクションの欠損は空コレクションとして扱う。
type WriteInput struct {
	Inflow         int                  `json:"inflow"`
	InflowChange   *int                 `json:"inflow_change"`
	Orders         int                  `json:"orders"`
	OrdersChange   *int                 `json:"orders_change"`
	Calls          int                  `json:"calls"`
	CallsChange    *int                 `json:"calls_change"`
	Reviews        int                  `json:"reviews"`
	ReviewsChange  *int                 `json:"reviews_change"`
	InflowChannels model.JSONCollection `json:"inflow_channels"`
	InflowKeywords model.JSONCollection `json:"inflow_keywords"`
}

// MetricsRecorder は統計書き込みのメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordStatisticsUpserted()
}

// Service は店舗統計の読み書きを提供する。
// 店舗のオーナーシップ確認は呼び出し元（ハンドラー）の責務とする。
type Service struct {
	stats   repository.StatisticsRepository
	metrics MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(stats repository.StatisticsRepository, metrics MetricsRecorder) *Service {
	return &Service{stats: stats, metrics: metrics}
}

// Read は期間指定に基づいて統計を取得する。日付の降順で返す。
// コレクションフィールドの正規化はデータアクセス境界で行われるため、
// ここでは追加の変換を行わない。
func (s *Service) Read(ctx context.Context, storeID, period, explicitDate string) ([]*model.StatisticsRecord, error) {
	if err := validateDate(explicitDate); err != nil {
		return nil, err
	}

	p := ParsePeriod(period)
	start, end := ResolveDateRange(p, explicitDate, time.Now())
	return s.stats.ListByStoreAndDateRange(ctx, storeID, start, end)
}

// Write は統計をUPSERTする。dateが空の場合は今日の日付を使う。
// 同一(store_id, date)への2回目の書き込みは後勝ちで置き換わる。
func (s *Service) Write(ctx context.Context, storeID, date string, input *WriteInput) (*model.StatisticsRecord, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if date == "" {
		date = time.Now().Format(dateLayout)
	}

	rec := &model.StatisticsRecord{
		StoreID:        storeID,
		Date:           date,
		Inflow:         input.Inflow,
		InflowChange:   input.InflowChange,
		Orders:         input.Orders,
		OrdersChange:   input.OrdersChange,
		Calls:          input.Calls,
		CallsChange:    input.CallsChange,
		Reviews:        input.Reviews,
		ReviewsChange:  input.ReviewsChange,
		InflowChannels: input.InflowChannels,
		InflowKeywords: input.InflowKeywords,
	}

	// コレクション欠損は空コレクションとして保存する
	if rec.InflowChannels == nil {
		rec.InflowChannels = model.JSONCollection{}
	}
	if rec.InflowKeywords == nil {
		rec.InflowKeywords = model.JSONCollection{}
	}

	saved, err := s.stats.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatisticsUpserted()
	return saved, nil
}
