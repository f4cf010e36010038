package domain

import "math"

// 1クレジットで処理できる映像の秒数です。
const secondsPerCredit = 10

// qualityMultipliers は品質ティアごとの料金倍率です。
// ティアは料金のみを変え、抽出・レンダリングの挙動は変えません。
var qualityMultipliers = map[Quality]int{
	QualityFast:   1,
	QualityStudio: 2,
	QualityUltra:  5,
}

// Multiplier は品質ティアの料金倍率を返します。未知のティアは 1 扱いです。
func (q Quality) Multiplier() int {
	if m, ok := qualityMultipliers[q]; ok {
		return m
	}
	return 1
}

// RequiredCredits は1ランの消費クレジットを決定論的に計算するのだ。
// 10秒単位の切り上げ（最低1）× 品質倍率。抽出呼び出しの前に必ず確定させるのだ。
func RequiredCredits(durationSeconds float64, q Quality) int {
	base := int(math.Ceil(durationSeconds / secondsPerCredit))
	if base < 1 {
		base = 1
	}
	return base * q.Multiplier()
}
