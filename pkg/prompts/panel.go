package prompts

import (
	"fmt"
	"strings"

	"github.com/wattok061-tech/cinecomic/pkg/domain"
)

const (
	// PanelAspectRatio はパネル画像の固定アスペクト比です。
	PanelAspectRatio = "1:1"

	// NegativePanelPrompt はパネルに文字や吹き出しが描き込まれるのを禁止します。
	// 文字入れはプレゼンテーション層の仕事であり、レンダラーの仕事ではありません。
	NegativePanelPrompt = "speech bubble, dialogue balloon, text, alphabet, letters, words, signatures, watermark, username, interface elements, low quality, distorted, bad anatomy"

	// textBanMandate はポジティブ側にも重ねて宣言する禁止事項なのだ。
	textBanMandate = "MANDATORY: NO TEXT, NO SPEECH BUBBLES, NO WATERMARKS, NO INTERFACE ELEMENTS."
)

// 表紙パネルの固定演出。映像の内容に依存しない合成コマです。
const (
	coverDescription  = "High-impact cinematic comic book cover art. Dramatic lighting, iconic hero pose."
	coverDialogue     = "VOLUME 1: THE RECKONING"
	coverExpression   = "Determined and Powerful"
	coverOnomatopoeia = "CINECOMIC"
)

// CoverPanelSpec は6コマの先頭に前置される表紙パネルの脚本を返すのだ。
func CoverPanelSpec() domain.PanelSpec {
	return domain.PanelSpec{
		Description:         coverDescription,
		Dialogue:            coverDialogue,
		CharacterExpression: coverExpression,
		Onomatopoeia:        coverOnomatopoeia,
		IsCover:             true,
	}
}

// BuildPanelPrompt は1コマ分のポジティブ／ネガティブプロンプトを構築するのだ。
// キャラクター記述を毎コマ注入することで主人公の見た目の一貫性を保つのだ。
func BuildPanelPrompt(spec domain.PanelSpec, style domain.Style, characterDescription string) (string, string) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Elite Graphic Novel Illustration, %s.\n", style))
	if characterDescription != "" {
		sb.WriteString(fmt.Sprintf("Protagonist visual traits: %s.\n", characterDescription))
	}
	sb.WriteString(fmt.Sprintf("SCENE: %s.\n", spec.Description))
	if spec.CharacterExpression != "" {
		sb.WriteString(fmt.Sprintf("EXPRESSION: %s.\n", spec.CharacterExpression))
	}
	sb.WriteString("Masterful use of shadows and lighting. Cinematic composition.\n")
	sb.WriteString(textBanMandate)

	return sb.String(), NegativePanelPrompt
}
