// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力する自由記述テキスト（表示名、説明、タスク名など）から
// HTMLマークアップを取り除く。保存された値はエクスポートやAPI応答にそのまま現れるため、
// 境界で一度だけ平文に正規化する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由記述テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は入力からすべてのタグを除去した平文を返す。
	// script, styleの中身は破棄する。前後の空白は取り除く。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// maxUnescapeRounds は文字参照の多重エンコードを展開する回数の上限。
// 展開のたびに文字列は短くなるため通常はこれより早く収束する。
const maxUnescapeRounds = 32

// NewTextSanitizer は全タグを拒否するStrictPolicyでTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去し、bluemondayがエスケープした文字参照を平文に戻す。
// 文字参照で書かれたタグは展開後に再びタグとして除去されるため、
// 出力が変化しなくなるまで除去と展開を繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	current := raw
	for i := 0; i < maxUnescapeRounds; i++ {
		next := html.UnescapeString(s.policy.Sanitize(current))
		if next == current {
			return strings.TrimSpace(next)
		}
		current = next
	}
	// 収束しない入力は平文として扱えないため破棄する
	return ""
}
