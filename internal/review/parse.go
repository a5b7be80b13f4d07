package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/miseban/internal/model"
)

// maxKeywords はレビュー下書きに含めるキーワードの上限。
const maxKeywords = 6

// extractJSONObject はテキストから最初の `{` と対応する `}` で囲まれた
// 部分文字列を取り出す。見つからない場合は空文字列とfalseを返す。
// 文字列リテラル内の波括弧を区別するため、クォートとエスケープを追跡する。
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// parseDraft は補完テキストからレビュー下書きを組み立てる。
// JSONらしき部分文字列の抽出とパースを試み、どちらかに失敗した場合は
// フォールバック下書きを返す。両失敗経路は同一のフォールバック構築関数を
// 通るため、常に同じ形状の結果になる。
// 2番目の戻り値はフォールバックが使われたかどうかを示す。
func parseDraft(text string, rules model.ReviewRules) (*model.ReviewDraft, bool) {
	candidate, found := extractJSONObject(text)
	if !found {
		return buildFallbackDraft(text, rules), true
	}

	draft := &model.ReviewDraft{}
	if err := json.Unmarshal([]byte(candidate), draft); err != nil {
		return buildFallbackDraft(text, rules), true
	}

	// パース成功でも欠損フィールドは補正する
	if draft.ReviewText == "" {
		draft.ReviewText = text
	}
	if draft.Rating < 1 || draft.Rating > 5 {
		draft.Rating = rules.TargetRating
	}
	if len(draft.Keywords) > maxKeywords {
		draft.Keywords = draft.Keywords[:maxKeywords]
	}

	return draft, false
}

// buildFallbackDraft は自由記述テキストからフォールバック下書きを構築する純関数。
// 生テキストをレビュー本文として包み、評価はルールの目標値、
// 3項目評価はプレースホルダで埋める。
// キーワードはポジティブキーワードにメニュー最大2件・接客最大1件・
// 雰囲気最大1件を連結し、合計6件で打ち切る。
func buildFallbackDraft(rawText string, rules model.ReviewRules) *model.ReviewDraft {
	keywords := make([]string, 0, maxKeywords)
	keywords = append(keywords, rules.PositiveKeywords...)
	keywords = append(keywords, takeN(rules.MenuKeywords, 2)...)
	keywords = append(keywords, takeN(rules.ServiceKeywords, 1)...)
	keywords = append(keywords, takeN(rules.AtmosphereKeywords, 1)...)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	return &model.ReviewDraft{
		ReviewText: strings.TrimSpace(rawText),
		Rating:     rules.TargetRating,
		Analysis: model.ReviewAnalysis{
			Atmosphere: analysisPlaceholder,
			Taste:      analysisPlaceholder,
			Service:    analysisPlaceholder,
		},
		Keywords: keywords,
	}
}

// takeN はスライスの先頭から最大n件を返す。
func takeN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// validateImages は画像リストを検証する。
// data URIはそのまま許可し、それ以外はURL検証関数に委ねる。
func validateImages(images []string, validateURL func(string) error) error {
	for i, img := range images {
		if strings.HasPrefix(img, "data:image/") {
			continue
		}
		if err := validateURL(img); err != nil {
			return fmt.Errorf("画像%dのURLが不正です: %w", i+1, err)
		}
	}
	return nil
}
