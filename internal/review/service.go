package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/miseban/internal/model"
)

// URLValidator は画像URLの事前検証に必要なインターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// TextSanitizer はモデル出力のサニタイズに必要なインターフェース。
// security.TextSanitizerServiceの部分集合として定義する。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder はレビュー生成のメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordReviewSuccess()
	RecordReviewFailure(reason string)
	RecordReviewFallback()
	RecordReviewLatency(duration time.Duration)
}

// Service はレビュー下書き生成のビジネスロジックを提供する。
type Service struct {
	client    *Client
	guard     URLValidator
	sanitizer TextSanitizer
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client *Client, guard URLValidator, sanitizer TextSanitizer, metrics MetricsRecorder, logger *slog.Logger) *Service {
	return &Service{
		client:    client,
		guard:     guard,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// Generate は画像とルールセットからレビュー下書きを生成する。
// 画像が空の場合は外部APIを呼ばずにMISSING_IMAGESを返す。
// APIキーが未設定の場合はCONFIG_ERRORを返す。
// モデル出力からのJSON抽出に失敗した場合はフォールバック下書きを返す
// （この場合もエラーにはしない）。
func (s *Service) Generate(ctx context.Context, store *model.Store, images []string, customPrompt string, rules *model.ReviewRules) (*model.ReviewDraft, error) {
	if len(images) == 0 {
		return nil, model.NewMissingImagesError()
	}

	if s.client.apiKey == "" {
		return nil, model.NewConfigError("OPENAI_API_KEY")
	}

	if err := validateImages(images, s.guard.ValidateURL); err != nil {
		return nil, model.NewInvalidRequestError(err.Error())
	}

	applied := applyRuleDefaults(rules)
	systemPrompt := buildSystemPrompt(store, applied)
	userParts := buildUserParts(s.sanitizer.Sanitize(customPrompt), images)

	start := time.Now()
	text, err := s.client.Complete(ctx, systemPrompt, userParts)
	s.metrics.RecordReviewLatency(time.Since(start))
	if err != nil {
		s.metrics.RecordReviewFailure(failureReason(err))
		return nil, err
	}

	draft, usedFallback := parseDraft(text, applied)
	if usedFallback {
		s.metrics.RecordReviewFallback()
		s.logger.Warn("モデル出力からJSONを抽出できなかったためフォールバックを使用します",
			slog.String("store_id", store.ID),
			slog.Int("text_length", len(text)),
		)
	}

	draft.ReviewText = s.sanitizer.Sanitize(draft.ReviewText)

	s.metrics.RecordReviewSuccess()
	return draft, nil
}

// failureReason はメトリクスラベル用にエラーの種別を分類する。
func failureReason(err error) string {
	if apiErr, ok := err.(*model.APIError); ok {
		switch apiErr.Code {
		case model.ErrCodeQuotaExceeded:
			return "quota"
		case model.ErrCodeUpstreamAuthFailed:
			return "auth"
		}
	}
	return "other"
}
