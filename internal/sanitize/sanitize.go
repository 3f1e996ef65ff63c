// Package sanitize はユーザー入力の自由記述テキストのサニタイズを提供する。
//
// BFFはHTMLを描画しないため、許可リストは空（StrictPolicy）とし、
// サインアップやプロフィール更新で受け取ったbio等のテキストから
// すべてのHTMLタグとon*イベント属性を除去したうえで上流へ転送する。
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由記述テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Text は入力からHTMLタグを除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。同一入力には常に同一出力を返す。
	Text(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Text は入力からHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはエンティティをエスケープするため、タグ除去後に
// アンエスケープしてプレーンテキストへ戻す（"a & b" をそのまま保つ）。
func (s *textSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
