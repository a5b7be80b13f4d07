package security

import (
	"strings"
	"testing"
)

// TestSanitize_RemovesAllTags はHTMLタグがすべて除去されることを検証する。
// レビュー本文はプレーンテキストであり、いかなるタグも許可しない。
func TestSanitize_RemovesAllTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "pタグが除去される",
			input: "<p>美味しいラーメン屋でした</p>",
			want:  "美味しいラーメン屋でした",
		},
		{
			name:  "strongタグが除去される",
			input: "スープが<strong>絶品</strong>です",
			want:  "スープが絶品です",
		},
		{
			name:  "aタグが除去される",
			input: `<a href="https://example.com">リンク</a>付きレビュー`,
			want:  "リンク付きレビュー",
		},
		{
			name:  "タグなしの入力はそのまま",
			input: "雰囲気も良く、また行きたいお店です。",
			want:  "雰囲気も良く、また行きたいお店です。",
		},
		{
			name:  "空文字列は空文字列のまま",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_RemovesScript はスクリプトタグとイベントハンドラが除去されることを検証する。
func TestSanitize_RemovesScript(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name        string
		input       string
		notContains []string
	}{
		{
			name:        "scriptタグが除去される",
			input:       `おすすめ<script>alert('xss')</script>です`,
			notContains: []string{"<script", "alert"},
		},
		{
			name:        "imgタグのonerrorが除去される",
			input:       `<img src="x" onerror="alert(1)">料理の写真`,
			notContains: []string{"<img", "onerror"},
		},
		{
			name:        "iframeタグが除去される",
			input:       `<iframe src="https://evil.example.com"></iframe>レビュー`,
			notContains: []string{"<iframe"},
		},
		{
			name:        "styleタグが除去される",
			input:       `<style>body{display:none}</style>良いお店`,
			notContains: []string{"<style"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, bad := range tt.notContains {
				if strings.Contains(got, bad) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}

// TestSanitize_TrimsWhitespace は前後の空白がトリムされることを検証する。
func TestSanitize_TrimsWhitespace(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize("  \n 接客が丁寧でした \t ")
	if got != "接客が丁寧でした" {
		t.Errorf("Sanitize() = %q, want %q", got, "接客が丁寧でした")
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := "<b>ボリューム満点</b>のランチ"
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("Sanitize is not idempotent: first = %q, second = %q", first, second)
	}
}

// TestTextSanitizerInterface はTextSanitizerがインターフェースを正しく実装していることをテストする。
func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}
