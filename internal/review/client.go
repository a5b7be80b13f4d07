// Package review はAIによるレビュー下書き生成を提供する。
// 外部のマルチモーダル補完APIの呼び出しと、自由記述出力からの構造化抽出を含む。
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/miseban/internal/model"
)

const (
	// defaultEndpoint はOpenAI互換チャット補完APIのエンドポイント。
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	// imageDetailLow は画像のディテールヒント。コスト抑制のため常にlowを指定する。
	imageDetailLow = "low"
)

// chatMessage はチャット補完APIのメッセージを表す。
// Contentは文字列またはcontentPartの配列をとる。
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart はマルチモーダルメッセージの1要素を表す。
type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

// imageURLPart は画像要素のURL指定を表す。
type imageURLPart struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

// chatRequest はチャット補完APIのリクエストボディを表す。
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatResponse はチャット補完APIのレスポンスボディを表す。
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Client はOpenAI互換チャット補完APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
	apiKey     string
	model      string
	maxBody    int64
}

// ClientConfig はClientの設定を表す。
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	MaxBody  int64
}

// NewClient はClientの新しいインスタンスを生成する。
// EndpointとMaxBodyが未指定の場合はデフォルト値を使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg ClientConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = 1048576
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxBody:    cfg.MaxBody,
	}
}

// Complete はシステム指示とユーザーメッセージを1回のリクエストで送信し、
// 補完テキストを返す。リトライは行わず、失敗は即座にエラーとして返す。
// クォータ超過(429)と認証失敗(401)はAPIErrorにマッピングし、
// それ以外の失敗は生のエラーとして返す。
func (c *Client) Complete(ctx context.Context, systemPrompt string, userParts []contentPart) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userParts},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("補完APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("補完APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var parsed chatResponse
		detail := ""
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
			detail = parsed.Error.Message
		}
		c.logger.Error("補完APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("detail", detail),
		)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return "", model.NewQuotaExceededError()
		case http.StatusUnauthorized:
			return "", model.NewUpstreamAuthFailedError()
		default:
			return "", fmt.Errorf("補完APIがステータス %d を返しました: %s", resp.StatusCode, detail)
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("補完APIのレスポンスにchoicesが含まれていません")
	}

	return parsed.Choices[0].Message.Content, nil
}
