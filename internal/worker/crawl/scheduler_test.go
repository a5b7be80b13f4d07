package crawl

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/miseban/internal/analytics"
	"github.com/hitoshi/miseban/internal/model"
)

// --- モック定義 ---

// mockTargetLister はTargetListerのテスト用モック。
type mockTargetLister struct {
	listFunc func(ctx context.Context) ([]*model.Store, error)
}

func (m *mockTargetLister) ListActiveCrawlTargets(ctx context.Context) ([]*model.Store, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

// mockCrawler はStoreCrawlerのテスト用モック。
type mockCrawler struct {
	crawlFunc func(ctx context.Context, store *model.Store) (*Result, error)
}

func (m *mockCrawler) Crawl(ctx context.Context, store *model.Store) (*Result, error) {
	if m.crawlFunc != nil {
		return m.crawlFunc(ctx, store)
	}
	return &Result{Date: "2026-08-30"}, nil
}

// mockWriter はStatisticsWriterのテスト用モック。
type mockWriter struct {
	mu     sync.Mutex
	writes []string
	err    error
}

func (m *mockWriter) Write(ctx context.Context, storeID, date string, input *analytics.WriteInput) (*model.StatisticsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.writes = append(m.writes, storeID+"/"+date)
	return &model.StatisticsRecord{StoreID: storeID, Date: date}, nil
}

// mockCrawlMetrics はMetricsRecorderのテスト用モック。
type mockCrawlMetrics struct {
	success atomic.Int32
	failure atomic.Int32
}

func (m *mockCrawlMetrics) RecordCrawlSuccess() { m.success.Add(1) }
func (m *mockCrawlMetrics) RecordCrawlFailure() { m.failure.Add(1) }

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestScheduler(stores TargetLister, crawler StoreCrawler, writer StatisticsWriter, metrics MetricsRecorder) *Scheduler {
	var buf bytes.Buffer
	return NewScheduler(stores, crawler, writer, metrics, newTestLogger(&buf), time.Hour, 2)
}

func testStores(n int) []*model.Store {
	stores := make([]*model.Store, 0, n)
	for i := 0; i < n; i++ {
		stores = append(stores, &model.Store{
			ID:              "store-" + string(rune('a'+i)),
			Platform:        model.PlatformNaver,
			CrawlingEnabled: true,
			IsActive:        true,
		})
	}
	return stores
}

// --- 起動状態のテスト ---

func TestScheduler_StartTwice_ReturnsAlreadyRunning(t *testing.T) {
	s := newTestScheduler(&mockTargetLister{}, &mockCrawler{}, &mockWriter{}, &mockCrawlMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	err := s.Start(ctx)
	if err == nil {
		t.Fatal("second start should fail")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSchedulerAlreadyRunning {
		t.Errorf("expected SCHEDULER_ALREADY_RUNNING, got %v", err)
	}
}

func TestScheduler_Running_ReflectsLiveState(t *testing.T) {
	s := newTestScheduler(&mockTargetLister{}, &mockCrawler{}, &mockWriter{}, &mockCrawlMetrics{})

	if s.Running() {
		t.Error("scheduler should not be running before Start")
	}
	if !s.StartedAt().IsZero() {
		t.Error("StartedAt should be zero before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if !s.Running() {
		t.Error("scheduler should be running after Start")
	}
	if s.StartedAt().IsZero() {
		t.Error("StartedAt should be set after Start")
	}

	cancel()

	// run goroutineの停止を待つ
	deadline := time.After(2 * time.Second)
	for s.Running() {
		select {
		case <-deadline:
			t.Fatal("scheduler did not stop after context cancellation")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// --- クロールサイクルのテスト ---

func TestRunOnce_CrawlsAllTargetsAndWritesResults(t *testing.T) {
	stores := testStores(3)
	lister := &mockTargetLister{
		listFunc: func(ctx context.Context) ([]*model.Store, error) { return stores, nil },
	}
	writer := &mockWriter{}
	metrics := &mockCrawlMetrics{}
	s := newTestScheduler(lister, &mockCrawler{}, writer, metrics)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(writer.writes) != 3 {
		t.Errorf("writes = %d, want 3", len(writer.writes))
	}
	if metrics.success.Load() != 3 {
		t.Errorf("success metric = %d, want 3", metrics.success.Load())
	}
	if metrics.failure.Load() != 0 {
		t.Errorf("failure metric = %d, want 0", metrics.failure.Load())
	}
}

func TestRunOnce_NoTargets_DoesNothing(t *testing.T) {
	writer := &mockWriter{}
	s := newTestScheduler(&mockTargetLister{}, &mockCrawler{}, writer, &mockCrawlMetrics{})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(writer.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(writer.writes))
	}
}

func TestRunOnce_ListFailure_ReturnsError(t *testing.T) {
	wantErr := errors.New("db connection lost")
	lister := &mockTargetLister{
		listFunc: func(ctx context.Context) ([]*model.Store, error) { return nil, wantErr },
	}
	s := newTestScheduler(lister, &mockCrawler{}, &mockWriter{}, &mockCrawlMetrics{})

	if err := s.RunOnce(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("expected list error, got %v", err)
	}
}

func TestRunOnce_CrawlFailure_CountedButDoesNotAbortCycle(t *testing.T) {
	stores := testStores(3)
	lister := &mockTargetLister{
		listFunc: func(ctx context.Context) ([]*model.Store, error) { return stores, nil },
	}
	crawler := &mockCrawler{
		crawlFunc: func(ctx context.Context, store *model.Store) (*Result, error) {
			if store.ID == stores[1].ID {
				return nil, errors.New("login failed")
			}
			return &Result{Date: "2026-08-30"}, nil
		},
	}
	writer := &mockWriter{}
	metrics := &mockCrawlMetrics{}
	s := newTestScheduler(lister, crawler, writer, metrics)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(writer.writes) != 2 {
		t.Errorf("writes = %d, want 2", len(writer.writes))
	}
	if metrics.success.Load() != 2 {
		t.Errorf("success metric = %d, want 2", metrics.success.Load())
	}
	if metrics.failure.Load() != 1 {
		t.Errorf("failure metric = %d, want 1", metrics.failure.Load())
	}
}

func TestRunOnce_WriteFailure_CountedAsFailure(t *testing.T) {
	stores := testStores(1)
	lister := &mockTargetLister{
		listFunc: func(ctx context.Context) ([]*model.Store, error) { return stores, nil },
	}
	writer := &mockWriter{err: errors.New("constraint violation")}
	metrics := &mockCrawlMetrics{}
	s := newTestScheduler(lister, &mockCrawler{}, writer, metrics)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if metrics.failure.Load() != 1 {
		t.Errorf("failure metric = %d, want 1", metrics.failure.Load())
	}
}

func TestRunOnce_RespectsMaxConcurrency(t *testing.T) {
	stores := testStores(6)
	lister := &mockTargetLister{
		listFunc: func(ctx context.Context) ([]*model.Store, error) { return stores, nil },
	}

	var current, peak atomic.Int32
	crawler := &mockCrawler{
		crawlFunc: func(ctx context.Context, store *model.Store) (*Result, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return &Result{Date: "2026-08-30"}, nil
		},
	}

	var buf bytes.Buffer
	s := NewScheduler(lister, crawler, &mockWriter{}, &mockCrawlMetrics{}, newTestLogger(&buf), time.Hour, 2)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak.Load())
	}
}
