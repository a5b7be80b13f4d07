// Package model はドメインモデルを定義する。
package model

// ReviewRules はAIレビュー生成のルールセットを表す。
// 未指定のフィールドにはサービス層がデフォルト値を適用する。
type ReviewRules struct {
	TargetRating       int      `json:"targetRating"`
	MinLength          int      `json:"minLength"`
	MaxLength          int      `json:"maxLength"`
	MenuKeywords       []string `json:"menuKeywords"`
	ServiceKeywords    []string `json:"serviceKeywords"`
	AtmosphereKeywords []string `json:"atmosphereKeywords"`
	PositiveKeywords   []string `json:"positiveKeywords"`
}

// ReviewAnalysis はレビューの3項目の定性評価を表す。
type ReviewAnalysis struct {
	Atmosphere string `json:"atmosphere"`
	Taste      string `json:"taste"`
	Service    string `json:"service"`
}

// ReviewDraft はAIレビュー生成の結果を表す。
// 永続化はされず、HTTPレスポンスの中にのみ存在する。
type ReviewDraft struct {
	ReviewText string         `json:"reviewText"`
	Rating     int            `json:"rating"`
	Analysis   ReviewAnalysis `json:"analysis"`
	Keywords   []string       `json:"keywords"`
}
