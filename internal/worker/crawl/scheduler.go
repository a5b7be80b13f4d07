package crawl

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/miseban/internal/analytics"
	"github.com/hitoshi/miseban/internal/model"
)

// TargetLister はクロール対象店舗の取得インターフェース。
// repository.StoreRepositoryの部分集合として定義する。
type TargetLister interface {
	ListActiveCrawlTargets(ctx context.Context) ([]*model.Store, error)
}

// StatisticsWriter はクロール結果の書き込みインターフェース。
// analytics.Serviceの部分集合として定義する。
type StatisticsWriter interface {
	Write(ctx context.Context, storeID, date string, input *analytics.WriteInput) (*model.StatisticsRecord, error)
}

// MetricsRecorder はクロールのメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordCrawlSuccess()
	RecordCrawlFailure()
}

// Scheduler は店舗統計クロールのスケジューリングと並列制御を行う。
// ティッカーでクロール対象店舗を取得し、semaphoreパターンで
// 最大並列数を制御しながらクロールを実行する。
// 起動状態はrunningで追跡し、状態APIから参照できる。
type Scheduler struct {
	stores         TargetLister
	crawler        StoreCrawler
	writer         StatisticsWriter
	metrics        MetricsRecorder
	logger         *slog.Logger
	interval       time.Duration
	maxConcurrency int

	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	stores TargetLister,
	crawler StoreCrawler,
	writer StatisticsWriter,
	metrics MetricsRecorder,
	logger *slog.Logger,
	interval time.Duration,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		stores:         stores,
		crawler:        crawler,
		writer:         writer,
		metrics:        metrics,
		logger:         logger,
		interval:       interval,
		maxConcurrency: maxConcurrency,
	}
}

// Start はスケジューラをバックグラウンドで起動する。
// 既に起動している場合はSCHEDULER_ALREADY_RUNNINGを返す。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return model.NewSchedulerAlreadyRunningError()
	}

	now := time.Now()
	s.startedAt.Store(&now)

	go s.run(ctx)
	return nil
}

// Running はスケジューラが起動中かどうかを返す。
// 状態APIはハードコードされた文字列ではなくこの実状態を返す。
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// StartedAt はスケジューラの起動時刻を返す。未起動の場合はゼロ値を返す。
func (s *Scheduler) StartedAt() time.Time {
	if t := s.startedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// run はティッカーループでクロールサイクルを実行する。
func (s *Scheduler) run(ctx context.Context) {
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("クロールスケジューラを開始しました",
		slog.Duration("interval", s.interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("クロールサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("クロールスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("クロールサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はクロール対象店舗を1回取得し、並列でクロールを実行する。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	stores, err := s.stores.ListActiveCrawlTargets(ctx)
	if err != nil {
		return err
	}

	if len(stores) == 0 {
		s.logger.Info("クロール対象の店舗はありません")
		return nil
	}

	s.logger.Info("クロールサイクルを開始します",
		slog.Int("store_count", len(stores)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, store := range stores {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(st *model.Store) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			s.crawlOne(ctx, st)
		}(store)
	}

	wg.Wait()

	s.logger.Info("クロールサイクルが完了しました",
		slog.Int("store_count", len(stores)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// crawlOne は1店舗のクロールを実行し、結果を統計としてUPSERTする。
func (s *Scheduler) crawlOne(ctx context.Context, store *model.Store) {
	result, err := s.crawler.Crawl(ctx, store)
	if err != nil {
		s.metrics.RecordCrawlFailure()
		s.logger.Error("店舗のクロールに失敗しました",
			slog.String("store_id", store.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if _, err := s.writer.Write(ctx, store.ID, result.Date, &result.Stats); err != nil {
		s.metrics.RecordCrawlFailure()
		s.logger.Error("クロール結果の保存に失敗しました",
			slog.String("store_id", store.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.metrics.RecordCrawlSuccess()
}
