package renderer

import (
	"fmt"
	"strings"
)

// Reason はレンダリング失敗の分類なのだ。
type Reason string

const (
	ReasonMalformed        Reason = "malformed"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonTransport        Reason = "transport"
)

// RenderError はコマ画像生成の失敗を分類付きで表すのだ。
type RenderError struct {
	Reason Reason
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("コマ画像の生成に失敗したのだ (%s): %v", e.Reason, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// isPermissionDenied はフォールバック可否の判定に使うのだ。
func isPermissionDenied(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "403") || strings.Contains(msg, "PERMISSION_DENIED")
}

func classifyRemoteError(err error) *RenderError {
	if isPermissionDenied(err) {
		return &RenderError{Reason: ReasonPermissionDenied, Err: err}
	}
	return &RenderError{Reason: ReasonTransport, Err: err}
}
