// Package renderer は脚本の1コマをコミック調の画像へ変換するのだ。
package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"

	"github.com/wattok061-tech/cinecomic/pkg/domain"
	"github.com/wattok061-tech/cinecomic/pkg/prompts"
)

// PanelRenderer は1コマ分の画像を生成する能力を表すのだ。
type PanelRenderer interface {
	RenderPanel(ctx context.Context, spec domain.PanelSpec, style domain.Style, characterDescription string) (*imagedom.ImageResponse, error)
}

// panelGenerator は gemini-image-kit のジェネレーターのうち、
// ここで必要な能力だけを切り出したものなのだ。
type panelGenerator interface {
	GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error)
}

// GeminiPanelRenderer は gemini-image-kit を使う PanelRenderer 実装なのだ。
type GeminiPanelRenderer struct {
	gen    panelGenerator
	model  string
	logger *slog.Logger
}

// NewGeminiPanelRenderer はレンダラーを生成するのだ。model はログ用の表示名なのだ。
func NewGeminiPanelRenderer(gen panelGenerator, model string, logger *slog.Logger) *GeminiPanelRenderer {
	return &GeminiPanelRenderer{gen: gen, model: model, logger: logger}
}

// RenderPanel はコマのプロンプトを組み立てて画像を1枚生成するのだ。
func (r *GeminiPanelRenderer) RenderPanel(ctx context.Context, spec domain.PanelSpec, style domain.Style, characterDescription string) (*imagedom.ImageResponse, error) {
	prompt, negPrompt := prompts.BuildPanelPrompt(spec, style, characterDescription)

	resp, err := r.gen.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:         prompt,
		NegativePrompt: negPrompt,
		AspectRatio:    prompts.PanelAspectRatio,
	})
	if err != nil {
		return nil, classifyRemoteError(err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, &RenderError{Reason: ReasonMalformed, Err: fmt.Errorf("画像データが空なのだ")}
	}

	r.logger.Info("コマ画像を生成したのだ",
		"model", r.model, "bytes", len(resp.Data), "mime", resp.MimeType)
	return resp, nil
}

// FallbackRenderer はプライマリ失敗時に、低忠実度モデルで1回だけ
// 再試行する PanelRenderer なのだ。権限エラーはフォールバックしても
// 解決しないので、そのまま返すのだ。
type FallbackRenderer struct {
	primary  PanelRenderer
	fallback PanelRenderer
	logger   *slog.Logger
}

// NewFallbackRenderer はフォールバック付きレンダラーを生成するのだ。
// fallback が nil ならプライマリのみで動くのだ。
func NewFallbackRenderer(primary, fallback PanelRenderer, logger *slog.Logger) *FallbackRenderer {
	return &FallbackRenderer{primary: primary, fallback: fallback, logger: logger}
}

func (f *FallbackRenderer) RenderPanel(ctx context.Context, spec domain.PanelSpec, style domain.Style, characterDescription string) (*imagedom.ImageResponse, error) {
	resp, err := f.primary.RenderPanel(ctx, spec, style, characterDescription)
	if err == nil {
		return resp, nil
	}

	var rerr *RenderError
	if errors.As(err, &rerr) && rerr.Reason == ReasonPermissionDenied {
		return nil, err
	}
	if f.fallback == nil {
		return nil, err
	}

	f.logger.Warn("プライマリモデルが失敗したのでフォールバックするのだ", "error", err)
	return f.fallback.RenderPanel(ctx, spec, style, characterDescription)
}
