package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/wattok061-tech/cinecomic/pkg/domain"
)

// scriptwriterRole は抽出プロンプトの冒頭でAIに与える役割定義です。
const scriptwriterRole = "You are a World-Class Comic Book Scriptwriter."

//go:embed mission.md
var missionInstruction string

// BuildExtractionPrompt は、メディア入力の種類に応じた物語抽出プロンプトを構築するのだ。
// ファイル入力のときは映像本体が別パートで添付される前提、URL入力のときは
// リンクをプロンプト本文に直接埋め込むのだ。
func BuildExtractionPrompt(payload domain.MediaPayload, style domain.Style, durationHint float64) string {
	var sb strings.Builder

	switch payload.Kind {
	case domain.PayloadURL:
		sb.WriteString(fmt.Sprintf("%s ANALYZE this YouTube footage: %s.", scriptwriterRole, payload.URL))
	default:
		sb.WriteString(fmt.Sprintf("%s ANALYZE the provided footage. DURATION: %.2fs.", scriptwriterRole, durationHint))
	}

	sb.WriteString("\n\n")
	sb.WriteString(missionInstruction)
	sb.WriteString(fmt.Sprintf("\nTARGET ART STYLE: %s.\n", style))

	return sb.String()
}
