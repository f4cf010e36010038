package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Style は生成されるコミックの画風プロトコルです。
// 値はそのまま画像生成プロンプトに埋め込まれるため、表示用ラベルを兼ねています。
type Style string

const (
	StyleModernDC   Style = "Modern Superhero (DC/Marvel Style)"
	StyleManga      Style = "Classic Manga (Black & White)"
	StyleNoir       Style = "Detective Noir (High Contrast)"
	StyleWatercolor Style = "Artistic Watercolor Graphic Novel"
	StylePopArt     Style = "Vintage Pop Art (Lichtenstein Style)"
	StyleRetro90s   Style = "Retro 90s Saturday Morning Cartoon"
)

// styleAliases は CLI/API から渡される短縮IDと Style の対応表なのだ。
var styleAliases = map[string]Style{
	"modern_dc":  StyleModernDC,
	"manga":      StyleManga,
	"noir":       StyleNoir,
	"watercolor": StyleWatercolor,
	"pop_art":    StylePopArt,
	"retro_90s":  StyleRetro90s,
}

// AllStyles は選択可能な全スタイルを定義順で返します。
func AllStyles() []Style {
	return []Style{
		StyleModernDC,
		StyleManga,
		StyleNoir,
		StyleWatercolor,
		StylePopArt,
		StyleRetro90s,
	}
}

// ParseStyle は短縮ID（"manga" 等）または完全なラベルから Style を解決するのだ。
func ParseStyle(raw string) (Style, error) {
	if s, ok := styleAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s, nil
	}
	for _, s := range AllStyles() {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	ids := slices.Collect(maps.Keys(styleAliases))
	slices.Sort(ids)
	return "", fmt.Errorf("未知のスタイル '%s' なのだ。指定できるのは [%s] なのだ", raw, strings.Join(ids, ", "))
}

// Quality はレンダリング品質ティアです。料金倍率のみに作用し、
// 抽出・レンダリング呼び出しのパラメータには影響しません。
type Quality string

const (
	QualityFast   Quality = "FAST"
	QualityStudio Quality = "STUDIO"
	QualityUltra  Quality = "ULTRA"
)

// ParseQuality は大文字小文字を無視して Quality を解決します。
func ParseQuality(raw string) (Quality, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(QualityFast):
		return QualityFast, nil
	case string(QualityStudio):
		return QualityStudio, nil
	case string(QualityUltra):
		return QualityUltra, nil
	}
	return "", fmt.Errorf("未知の品質ティア '%s' なのだ。FAST / STUDIO / ULTRA から選ぶのだ", raw)
}

// PanelCount は物語スクリプトが常に持つパネル数です。
const PanelCount = 6

// PanelSpec は抽出フェーズが返す1コマ分の脚本です。
type PanelSpec struct {
	Description         string `json:"description"`
	Dialogue            string `json:"dialogue"`
	Onomatopoeia        string `json:"onomatopoeia"`
	CharacterExpression string `json:"character_expression,omitempty"`
	IsCover             bool   `json:"is_cover,omitempty"`
}

// NarrativeScript は映像から抽出された6コマ構成の物語全体です。
// 生成後は不変として扱います。
type NarrativeScript struct {
	Title                string      `json:"title"`
	StorySummary         string      `json:"story_summary"`
	CharacterDescription string      `json:"character_description"`
	Panels               []PanelSpec `json:"panels"`
}

// Validate はスクリプトが契約どおり（6コマ・必須フィールド非空）かを検査するのだ。
func (s NarrativeScript) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("タイトルが空なのだ")
	}
	if strings.TrimSpace(s.StorySummary) == "" {
		return fmt.Errorf("あらすじが空なのだ")
	}
	if len(s.Panels) != PanelCount {
		return fmt.Errorf("パネル数が %d 個なのだ（%d 個でなければならないのだ）", len(s.Panels), PanelCount)
	}
	for i, p := range s.Panels {
		if strings.TrimSpace(p.Description) == "" {
			return fmt.Errorf("パネル %d の description が空なのだ", i+1)
		}
		if strings.TrimSpace(p.Dialogue) == "" {
			return fmt.Errorf("パネル %d の dialogue が空なのだ", i+1)
		}
		if strings.TrimSpace(p.Onomatopoeia) == "" {
			return fmt.Errorf("パネル %d の onomatopoeia が空なのだ", i+1)
		}
	}
	return nil
}

// Panel は1コマのライフサイクルを保持します。PanelSpec から生成され、
// レンダリング完了時に一度だけ ImageURL / Generating が更新されます。
type Panel struct {
	ID                  string `json:"id"`
	Description         string `json:"description"`
	Dialogue            string `json:"dialogue"`
	Onomatopoeia        string `json:"onomatopoeia"`
	CharacterExpression string `json:"character_expression,omitempty"`
	IsCover             bool   `json:"is_cover"`
	Generating          bool   `json:"generating"`
	ImageURL            string `json:"image_url,omitempty"`
}

// Spec は Panel からレンダリング入力となる PanelSpec を復元します。
func (p Panel) Spec() PanelSpec {
	return PanelSpec{
		Description:         p.Description,
		Dialogue:            p.Dialogue,
		Onomatopoeia:        p.Onomatopoeia,
		CharacterExpression: p.CharacterExpression,
		IsCover:             p.IsCover,
	}
}
