package review

import (
	"fmt"
	"strings"

	"github.com/hitoshi/miseban/internal/model"
)

// ルールセット未指定時のデフォルト値
const (
	defaultTargetRating = 5
	defaultMinLength    = 100
	defaultMaxLength    = 300
	// defaultUserPrompt はカスタム指示が無い場合のフォールバック文。
	defaultUserPrompt = "添付した写真をもとに、実際に来店した客として自然なレビューを書いてください。"
	// analysisPlaceholder はフォールバック時に3項目評価へ埋めるプレースホルダ。
	analysisPlaceholder = "良い"
)

// defaultPositiveKeywords はポジティブキーワード未指定時のデフォルト。
var defaultPositiveKeywords = []string{"美味しい", "また行きたい", "満足"}

// applyRuleDefaults はルールセットの欠損フィールドにデフォルト値を適用した
// コピーを返す。入力がnilの場合は全フィールドがデフォルトのルールを返す。
func applyRuleDefaults(rules *model.ReviewRules) model.ReviewRules {
	applied := model.ReviewRules{}
	if rules != nil {
		applied = *rules
	}

	if applied.TargetRating < 1 || applied.TargetRating > 5 {
		applied.TargetRating = defaultTargetRating
	}
	if applied.MinLength <= 0 {
		applied.MinLength = defaultMinLength
	}
	if applied.MaxLength <= 0 || applied.MaxLength < applied.MinLength {
		applied.MaxLength = defaultMaxLength
	}
	if len(applied.PositiveKeywords) == 0 {
		applied.PositiveKeywords = defaultPositiveKeywords
	}

	return applied
}

// buildSystemPrompt はルールセットを埋め込んだシステム指示を構築する。
// モデルにはJSONのみを返すよう指示するが、出力が自由記述に崩れる場合が
// あるため、受信側は防御的な抽出を行う（parse.go参照）。
func buildSystemPrompt(store *model.Store, rules model.ReviewRules) string {
	var b strings.Builder

	b.WriteString("あなたは飲食店のレビューを書くアシスタントです。\n")
	fmt.Fprintf(&b, "店舗名: %s\n", store.Name)
	b.WriteString("添付された写真をもとに、実際に来店した客の視点で自然なレビューを作成してください。\n\n")

	b.WriteString("ルール:\n")
	fmt.Fprintf(&b, "- 評価は%d点（5点満点）とする\n", rules.TargetRating)
	fmt.Fprintf(&b, "- 本文は%d文字以上%d文字以下とする\n", rules.MinLength, rules.MaxLength)
	if len(rules.MenuKeywords) > 0 {
		fmt.Fprintf(&b, "- メニューキーワード: %s\n", strings.Join(rules.MenuKeywords, "、"))
	}
	if len(rules.ServiceKeywords) > 0 {
		fmt.Fprintf(&b, "- 接客キーワード: %s\n", strings.Join(rules.ServiceKeywords, "、"))
	}
	if len(rules.AtmosphereKeywords) > 0 {
		fmt.Fprintf(&b, "- 雰囲気キーワード: %s\n", strings.Join(rules.AtmosphereKeywords, "、"))
	}
	fmt.Fprintf(&b, "- ポジティブキーワード: %s\n", strings.Join(rules.PositiveKeywords, "、"))

	b.WriteString("\n出力は次のJSONオブジェクトのみとし、他のテキストを含めないでください:\n")
	b.WriteString(`{"reviewText": "レビュー本文", "rating": 5, "analysis": {"atmosphere": "雰囲気の評価", "taste": "味の評価", "service": "接客の評価"}, "keywords": ["キーワード"]}`)

	return b.String()
}

// buildUserParts はユーザーメッセージのマルチモーダル要素を構築する。
// カスタム指示が空の場合はデフォルトの指示文を使う。
// 各画像にはコスト抑制のためlowディテールヒントを付与する。
func buildUserParts(customPrompt string, images []string) []contentPart {
	prompt := customPrompt
	if prompt == "" {
		prompt = defaultUserPrompt
	}

	parts := make([]contentPart, 0, len(images)+1)
	parts = append(parts, contentPart{Type: "text", Text: prompt})
	for _, img := range images {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURLPart{URL: img, Detail: imageDetailLow},
		})
	}

	return parts
}
