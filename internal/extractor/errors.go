package extractor

import (
	"fmt"
	"strings"
)

// Reason は抽出失敗の分類なのだ。
type Reason string

const (
	ReasonMalformed        Reason = "malformed"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonTransport        Reason = "transport"
)

// PermissionGuidance は権限エラー時にユーザーへ提示する案内文です。
const PermissionGuidance = "The selected API key lacks access to this model. Please select a paid API key and try again."

// ExtractionError は脚本抽出の失敗を分類付きで表すのだ。
type ExtractionError struct {
	Reason Reason
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("脚本抽出に失敗したのだ (%s): %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// classifyRemoteError は転送エラーを権限エラーと一般エラーに振り分けるのだ。
// 判定はエラーメッセージの "403" / "PERMISSION_DENIED" 部分文字列で行うのだ。
func classifyRemoteError(err error) *ExtractionError {
	if isPermissionDenied(err) {
		return &ExtractionError{Reason: ReasonPermissionDenied, Err: err}
	}
	return &ExtractionError{Reason: ReasonTransport, Err: err}
}

func isPermissionDenied(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "403") || strings.Contains(msg, "PERMISSION_DENIED")
}
