// Package media は動画ソース（ローカルファイル / YouTube URL）を
// 生成パイプラインへ渡せる入力に変換するのだ。
package media

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wattok061-tech/cinecomic/pkg/domain"
)

// Input はパイプラインへ渡す正規化済みの動画ソースです。
type Input struct {
	Payload         domain.MediaPayload
	DurationSeconds float64
	Title           string
	ThumbnailURL    string
}

// DurationProbe は動画の長さを秒単位で測定する能力を表すのだ。
type DurationProbe interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// youtubeIDPattern は認識する URL 形状からビデオIDを取り出す正規表現なのだ。
var youtubeIDPattern = regexp.MustCompile(`(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*)`)

const (
	youtubeIDLength = 11
	// RemoteDurationSeconds はURL入力に使う固定の長さ推定値です。
	// 実際の長さを調べるサーバーサイドのルックアップは行いません。
	RemoteDurationSeconds = 120.0
)

// Adapter は動画ソースを Input へ変換するのだ。
type Adapter struct {
	probe  DurationProbe
	logger *slog.Logger
}

// NewAdapter はアダプターを生成するのだ。probe はファイル入力の長さ測定に使うのだ。
func NewAdapter(probe DurationProbe, logger *slog.Logger) *Adapter {
	return &Adapter{probe: probe, logger: logger}
}

// FromFile はローカル動画ファイルを読み込み、MIMEタイプと長さを付けて返すのだ。
func (a *Adapter) FromFile(ctx context.Context, path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("動画ファイルの読み込みに失敗したのだ (%s): %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("動画ファイルが空なのだ: %s", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	duration, err := a.probe.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("動画の長さ測定に失敗したのだ: %w", err)
	}

	a.logger.Info("動画ファイルを読み込んだのだ",
		"path", path, "bytes", len(data), "mime", mimeType, "duration_sec", duration)

	return &Input{
		Payload: domain.MediaPayload{
			Kind:     domain.PayloadFile,
			Data:     data,
			MimeType: mimeType,
		},
		DurationSeconds: duration,
		Title:           filepath.Base(path),
	}, nil
}

// FromYouTubeURL はYouTube URLを検証し、表示用メタデータを合成して返すのだ。
// 長さは固定の近似値を使うのだ。
func (a *Adapter) FromYouTubeURL(rawURL string) (*Input, error) {
	id, ok := ExtractYouTubeID(rawURL)
	if !ok {
		return nil, fmt.Errorf("YouTube URL として認識できないのだ: %s", rawURL)
	}

	a.logger.Info("YouTube URL を受け付けたのだ", "video_id", id)

	return &Input{
		Payload: domain.MediaPayload{
			Kind: domain.PayloadURL,
			URL:  rawURL,
		},
		DurationSeconds: RemoteDurationSeconds,
		Title:           "REMOTE_TARGET_" + strings.ToUpper(id[:6]),
		ThumbnailURL:    fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", id),
	}, nil
}

// ExtractYouTubeID は認識できる URL 形状から11文字のビデオIDを取り出すのだ。
func ExtractYouTubeID(rawURL string) (string, bool) {
	m := youtubeIDPattern.FindStringSubmatch(rawURL)
	if m == nil || len(m[2]) != youtubeIDLength {
		return "", false
	}
	return m[2], true
}
