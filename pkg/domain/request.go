package domain

import "fmt"

// PayloadKind はメディアペイロードの種類です。
type PayloadKind string

const (
	PayloadFile PayloadKind = "file"
	PayloadURL  PayloadKind = "url"
)

// MediaPayload は抽出器へ渡す不透明なメディア入力です。
// file の場合は読み込み済みバイト列と MIME タイプ、url の場合は YouTube URL を保持します。
type MediaPayload struct {
	Kind     PayloadKind
	Data     []byte
	MimeType string
	URL      string
}

// Empty はペイロードが実体を持たないかを返します。
func (p MediaPayload) Empty() bool {
	switch p.Kind {
	case PayloadFile:
		return len(p.Data) == 0
	case PayloadURL:
		return p.URL == ""
	}
	return true
}

// GenerationRequest は1回の生成ランの入力一式です。ランごとに一度だけ構築されます。
type GenerationRequest struct {
	Payload         MediaPayload
	DurationSeconds float64
	Style           Style
	Quality         Quality
}

// Validate はオーケストレーターに渡す前の前提条件チェックなのだ。
// ここで弾かれた入力は決してリモート呼び出しまで到達しないのだ。
func (r GenerationRequest) Validate() error {
	if r.Payload.Empty() {
		return fmt.Errorf("メディアペイロードが空なのだ")
	}
	if r.DurationSeconds < 0 {
		return fmt.Errorf("動画の長さが負値（%f）なのだ", r.DurationSeconds)
	}
	if r.Style == "" {
		return fmt.Errorf("スタイルが未選択なのだ")
	}
	if _, err := ParseQuality(string(r.Quality)); err != nil {
		return err
	}
	return nil
}
