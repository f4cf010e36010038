package domain

import "testing"

func TestRequiredCredits(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		quality  Quality
		want     int
	}{
		{"25秒のSTUDIOはceil(2.5)×2で6なのだ", 25, QualityStudio, 6},
		{"12秒のULTRAはceil(1.2)×5で10なのだ", 12, QualityUltra, 10},
		{"0秒でも最低1単位が課金されるのだ", 0, QualityFast, 1},
		{"0秒のULTRAは1×5なのだ", 0, QualityUltra, 5},
		{"10秒ちょうどは切り上げなしなのだ", 10, QualityFast, 1},
		{"10.1秒は2単位に切り上がるのだ", 10.1, QualityFast, 2},
		{"120秒（リモート既定値）のULTRAは60なのだ", 120, QualityUltra, 60},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RequiredCredits(tc.duration, tc.quality)
			if got != tc.want {
				t.Errorf("期待値 %d, 実際の値 %d (duration=%v, quality=%s)", tc.want, got, tc.duration, tc.quality)
			}
		})
	}
}

func TestQuality_Multiplier(t *testing.T) {
	if QualityFast.Multiplier() != 1 || QualityStudio.Multiplier() != 2 || QualityUltra.Multiplier() != 5 {
		t.Error("品質倍率が仕様（FAST:1, STUDIO:2, ULTRA:5）と一致しないのだ")
	}

	t.Run("未知のティアは倍率1として扱うこと", func(t *testing.T) {
		if Quality("LEGENDARY").Multiplier() != 1 {
			t.Error("未知ティアの倍率が1ではありません")
		}
	})
}
