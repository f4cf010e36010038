package domain

import (
	"strings"
	"testing"
)

func validScript() NarrativeScript {
	panels := make([]PanelSpec, PanelCount)
	for i := range panels {
		panels[i] = PanelSpec{
			Description:  "wide establishing shot of a rainy rooftop",
			Dialogue:     "The city never sleeps.",
			Onomatopoeia: "DRIP",
		}
	}
	return NarrativeScript{
		Title:                "THE MIDNIGHT RECKONING",
		StorySummary:         "A lone figure watches the storm. The storm watches back.",
		CharacterDescription: "tall figure in a soaked trench coat, scarred left cheek",
		Panels:               panels,
	}
}

func TestNarrativeScript_Validate(t *testing.T) {
	t.Run("正常な6コマ脚本は検証を通ること", func(t *testing.T) {
		if err := validScript().Validate(); err != nil {
			t.Fatalf("正常なスクリプトでエラーが発生しました: %v", err)
		}
	})

	t.Run("パネル数が6以外なら不正なのだ", func(t *testing.T) {
		s := validScript()
		s.Panels = s.Panels[:5]
		if err := s.Validate(); err == nil {
			t.Error("5コマの脚本が検証を通ってしまったのだ")
		}
	})

	t.Run("空のdialogueは不正なのだ", func(t *testing.T) {
		s := validScript()
		s.Panels[2].Dialogue = "   "
		if err := s.Validate(); err == nil {
			t.Error("空セリフの脚本が検証を通ってしまったのだ")
		}
	})

	t.Run("タイトル欠落は不正なのだ", func(t *testing.T) {
		s := validScript()
		s.Title = ""
		if err := s.Validate(); err == nil {
			t.Error("無題の脚本が検証を通ってしまったのだ")
		}
	})
}

func TestParseStyle(t *testing.T) {
	t.Run("短縮IDで解決できること", func(t *testing.T) {
		s, err := ParseStyle("manga")
		if err != nil {
			t.Fatalf("解決に失敗しました: %v", err)
		}
		if s != StyleManga {
			t.Errorf("期待値 %q, 実際の値 %q", StyleManga, s)
		}
	})

	t.Run("完全なラベルでも解決できること", func(t *testing.T) {
		s, err := ParseStyle("Detective Noir (High Contrast)")
		if err != nil {
			t.Fatalf("解決に失敗しました: %v", err)
		}
		if s != StyleNoir {
			t.Errorf("期待値 %q, 実際の値 %q", StyleNoir, s)
		}
	})

	t.Run("未知のスタイルは候補付きエラーになるのだ", func(t *testing.T) {
		_, err := ParseStyle("crayon")
		if err == nil {
			t.Fatal("未知スタイルでエラーが発生しませんでした")
		}
		if !strings.Contains(err.Error(), "manga") {
			t.Errorf("エラーメッセージに候補が含まれていないのだ: %v", err)
		}
	})
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality("ultra")
	if err != nil || q != QualityUltra {
		t.Errorf("小文字のultraを解決できないのだ: q=%q err=%v", q, err)
	}
	if _, err := ParseQuality("TURBO"); err == nil {
		t.Error("未知ティアでエラーが発生しませんでした")
	}
}

func TestGenerationRequest_Validate(t *testing.T) {
	base := GenerationRequest{
		Payload:         MediaPayload{Kind: PayloadURL, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		DurationSeconds: 120,
		Style:           StyleModernDC,
		Quality:         QualityUltra,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("正常なリクエストでエラーが発生しました: %v", err)
	}

	t.Run("空ペイロードは拒否なのだ", func(t *testing.T) {
		r := base
		r.Payload = MediaPayload{Kind: PayloadFile}
		if err := r.Validate(); err == nil {
			t.Error("空ペイロードが検証を通ってしまったのだ")
		}
	})

	t.Run("スタイル未選択は拒否なのだ", func(t *testing.T) {
		r := base
		r.Style = ""
		if err := r.Validate(); err == nil {
			t.Error("スタイル未選択が検証を通ってしまったのだ")
		}
	})
}
