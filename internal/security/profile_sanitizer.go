// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizer はユーザーが入力したプロフィール項目からHTMLマークアップを除去する。
// bluemondayのStrictPolicyを使い、タグと属性をすべて取り除いたプレーンテキストを保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ProfileSanitizer はプロフィール項目のサニタイズ機能のインターフェースを定義する。
type ProfileSanitizer interface {
	// Sanitize はタグを除去し、前後の空白を取り除いたテキストを返す。
	Sanitize(input string) string
}

// profileSanitizer はProfileSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type profileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerの新しいインスタンスを生成する。
func NewProfileSanitizer() *profileSanitizer {
	return &profileSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLタグを除去する。
// StrictPolicyは残したテキストをエスケープするため、保存用にエンティティを戻す。
// 表示時はhtml/templateがエスケープする。
func (s *profileSanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}
	stripped := s.policy.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ ProfileSanitizer = (*profileSanitizer)(nil)
