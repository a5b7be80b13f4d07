// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー、レビュー生成サービス、クロールワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordReviewSuccess()
	RecordReviewFailure(reason string)
	RecordReviewFallback()
	RecordReviewLatency(duration time.Duration)
	RecordCrawlSuccess()
	RecordCrawlFailure()
	RecordStatisticsUpserted()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	reviewSuccess  prometheus.Counter
	reviewFail     *prometheus.CounterVec
	reviewFallback prometheus.Counter
	reviewLatency  prometheus.Histogram
	crawlSuccess   prometheus.Counter
	crawlFail      prometheus.Counter
	statsUpserted  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miseban_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		reviewSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miseban_review_generate_total",
			Help: "レビュー生成成功の合計数",
		}),
		reviewFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miseban_review_generate_fail_total",
			Help: "レビュー生成失敗の合計数（理由別）",
		}, []string{"reason"}),
		reviewFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miseban_review_fallback_total",
			Help: "モデル出力のJSON抽出に失敗しフォールバックを使用した回数",
		}),
		reviewLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "miseban_review_latency_seconds",
			Help:    "レビュー生成APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		crawlSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miseban_crawl_success_total",
			Help: "店舗クロール成功の合計数",
		}),
		crawlFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miseban_crawl_fail_total",
			Help: "店舗クロール失敗の合計数",
		}),
		statsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miseban_statistics_upserted_total",
			Help: "UPSERTされた統計行の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.reviewSuccess,
		c.reviewFail,
		c.reviewFallback,
		c.reviewLatency,
		c.crawlSuccess,
		c.crawlFail,
		c.statsUpserted,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordReviewSuccess はレビュー生成成功を記録する。
func (c *Collector) RecordReviewSuccess() {
	c.reviewSuccess.Inc()
}

// RecordReviewFailure はレビュー生成失敗を理由別に記録する。
func (c *Collector) RecordReviewFailure(reason string) {
	c.reviewFail.WithLabelValues(reason).Inc()
}

// RecordReviewFallback はフォールバック使用を記録する。
func (c *Collector) RecordReviewFallback() {
	c.reviewFallback.Inc()
}

// RecordReviewLatency はレビュー生成のレイテンシを記録する。
func (c *Collector) RecordReviewLatency(duration time.Duration) {
	c.reviewLatency.Observe(duration.Seconds())
}

// RecordCrawlSuccess は店舗クロール成功を記録する。
func (c *Collector) RecordCrawlSuccess() {
	c.crawlSuccess.Inc()
}

// RecordCrawlFailure は店舗クロール失敗を記録する。
func (c *Collector) RecordCrawlFailure() {
	c.crawlFail.Inc()
}

// RecordStatisticsUpserted は統計行のUPSERTを記録する。
func (c *Collector) RecordStatisticsUpserted() {
	c.statsUpserted.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
