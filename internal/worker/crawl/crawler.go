// Package crawl は店舗統計のバックグラウンドクロール処理を提供する。
// スケジューラと、外部クローラーサービスへのトリガークライアントを含む。
package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/miseban/internal/analytics"
	"github.com/hitoshi/miseban/internal/model"
)

// Result はクローラーサービスが返す1店舗分のクロール結果を表す。
type Result struct {
	Date  string               `json:"date"`
	Stats analytics.WriteInput `json:"statistics"`
}

// StoreCrawler は1店舗のクロール実行インターフェース。
type StoreCrawler interface {
	// Crawl は指定店舗の当日統計を取得する。
	Crawl(ctx context.Context, store *model.Store) (*Result, error)
}

// HTTPCrawler は外部クローラーサービスをHTTPで呼び出すStoreCrawler実装。
// クローラーサービスはプラットフォームへのログインとスクレイピングを担い、
// このクライアントは店舗ごとのトリガーと結果の受け取りのみを行う。
type HTTPCrawler struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewHTTPCrawler はHTTPCrawlerの新しいインスタンスを生成する。
func NewHTTPCrawler(httpClient *http.Client, logger *slog.Logger, baseURL string) *HTTPCrawler {
	return &HTTPCrawler{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// crawlRequest はクローラーサービスへのリクエストボディを表す。
type crawlRequest struct {
	StoreID         string `json:"store_id"`
	Platform        string `json:"platform"`
	PlatformStoreID string `json:"platform_store_id"`
}

// Crawl は指定店舗のクロールをトリガーし、結果を受け取る。
// 失敗は即座にエラーとして返し、リトライは行わない。
func (c *HTTPCrawler) Crawl(ctx context.Context, store *model.Store) (*Result, error) {
	payload, err := json.Marshal(crawlRequest{
		StoreID:         store.ID,
		Platform:        store.Platform,
		PlatformStoreID: store.PlatformStoreID,
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crawl", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("クローラーサービスの呼び出しに失敗しました",
			slog.String("store_id", store.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("クローラーサービスがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("クロール結果のパースに失敗しました: %w", err)
	}

	return &result, nil
}

// compile-time interface check
var _ StoreCrawler = (*HTTPCrawler)(nil)
