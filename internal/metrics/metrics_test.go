package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			total := 0.0
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total, true
		}
	}
	return 0, false
}

// TestRecordReviewSuccess_IncrementsCounter はレビュー生成成功カウンタが増加することを検証する。
func TestRecordReviewSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReviewSuccess()
	c.RecordReviewSuccess()

	val, found := counterValue(t, reg, "miseban_review_generate_total")
	if !found {
		t.Fatal("miseban_review_generate_total metric not found")
	}
	if val != 2 {
		t.Errorf("review_generate_total = %v, want 2", val)
	}
}

// TestRecordReviewFailure_LabeledByReason は失敗カウンタが理由ラベルで分かれることを検証する。
func TestRecordReviewFailure_LabeledByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReviewFailure("quota")
	c.RecordReviewFailure("quota")
	c.RecordReviewFailure("auth")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != "miseban_review_generate_fail_total" {
			continue
		}
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 labeled series, got %d", len(mf.GetMetric()))
		}
		for _, m := range mf.GetMetric() {
			reason := m.GetLabel()[0].GetValue()
			val := m.GetCounter().GetValue()
			switch reason {
			case "quota":
				if val != 2 {
					t.Errorf("quota failures = %v, want 2", val)
				}
			case "auth":
				if val != 1 {
					t.Errorf("auth failures = %v, want 1", val)
				}
			default:
				t.Errorf("unexpected reason label %q", reason)
			}
		}
		return
	}
	t.Error("miseban_review_generate_fail_total metric not found")
}

// TestRecordCrawlCounters はクロール成功・失敗カウンタを検証する。
func TestRecordCrawlCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCrawlSuccess()
	c.RecordCrawlSuccess()
	c.RecordCrawlFailure()

	if val, _ := counterValue(t, reg, "miseban_crawl_success_total"); val != 2 {
		t.Errorf("crawl_success_total = %v, want 2", val)
	}
	if val, _ := counterValue(t, reg, "miseban_crawl_fail_total"); val != 1 {
		t.Errorf("crawl_fail_total = %v, want 1", val)
	}
}

// TestRecordStatisticsUpserted は統計書き込みカウンタを検証する。
func TestRecordStatisticsUpserted(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStatisticsUpserted()

	if val, _ := counterValue(t, reg, "miseban_statistics_upserted_total"); val != 1 {
		t.Errorf("statistics_upserted_total = %v, want 1", val)
	}
}

// TestRecordHTTPStatus はステータスコードラベル付きカウンタを検証する。
func TestRecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if val, _ := counterValue(t, reg, "miseban_http_status_total"); val != 3 {
		t.Errorf("http_status_total = %v, want 3", val)
	}
}

// TestRecordReviewLatency はレイテンシヒストグラムへの記録を検証する。
func TestRecordReviewLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReviewLatency(1500 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() == "miseban_review_latency_seconds" {
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 1 {
				t.Errorf("sample count = %d, want 1", h.GetSampleCount())
			}
			if h.GetSampleSum() < 1.4 || h.GetSampleSum() > 1.6 {
				t.Errorf("sample sum = %v, want ~1.5", h.GetSampleSum())
			}
			return
		}
	}
	t.Error("miseban_review_latency_seconds metric not found")
}

// TestSetupMetricsRoute_ServesPrometheusFormat は/metricsがテキスト形式で出力することを検証する。
func TestSetupMetricsRoute_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordReviewSuccess()

	server := httptest.NewServer(SetupMetricsRoute(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "miseban_review_generate_total") {
		t.Error("metrics output should include miseban_review_generate_total")
	}
}
