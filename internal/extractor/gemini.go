// Package extractor は動画ソースから6コマ構成の脚本を抽出するのだ。
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/wattok061-tech/cinecomic/pkg/domain"
	"github.com/wattok061-tech/cinecomic/pkg/prompts"
)

// NarrativeExtractor は映像ソースから脚本を抽出する能力を表すのだ。
// 実装は RunState に触れてはいけないのだ。
type NarrativeExtractor interface {
	Extract(ctx context.Context, payload domain.MediaPayload, style domain.Style, durationHint float64) (*domain.NarrativeScript, error)
}

// GeminiExtractor は Gemini のマルチモーダルAPIで脚本を抽出する実装なのだ。
// リトライは行わず、1回の呼び出しで成否を返すのだ。
type GeminiExtractor struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiExtractor はエクストラクターを生成するのだ。
func NewGeminiExtractor(client *genai.Client, model string, logger *slog.Logger) *GeminiExtractor {
	return &GeminiExtractor{client: client, model: model, logger: logger}
}

// Extract は映像ソースをGeminiへ渡し、検証済みの脚本を返すのだ。
// ファイル入力は動画バイト列をインラインで添付し、URL入力はプロンプトに
// リンクを埋め込むのだ。
func (g *GeminiExtractor) Extract(ctx context.Context, payload domain.MediaPayload, style domain.Style, durationHint float64) (*domain.NarrativeScript, error) {
	prompt := prompts.BuildExtractionPrompt(payload, style, durationHint)

	parts := make([]*genai.Part, 0, 2)
	if payload.Kind == domain.PayloadFile {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: payload.MimeType, Data: payload.Data},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	g.logger.Info("脚本抽出を開始するのだ",
		"model", g.model, "source", string(payload.Kind), "duration_hint_sec", durationHint)

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   scriptSchema(),
			Temperature:      genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		return nil, classifyRemoteError(err)
	}

	script, perr := parseScript(resp.Text())
	if perr != nil {
		return nil, perr
	}

	g.logger.Info("脚本抽出が完了したのだ", "title", script.Title, "panels", len(script.Panels))
	return script, nil
}

// parseScript はAIが返したテキストを脚本としてパース・検証するのだ。
// 余計な空白や、AIが付けがちなMarkdownタグ (```json ... ```) を取り除く処理なのだ
func parseScript(raw string) (*domain.NarrativeScript, *ExtractionError) {
	rawJSON := strings.TrimSpace(raw)
	rawJSON = strings.TrimPrefix(rawJSON, "```json")
	rawJSON = strings.TrimSuffix(rawJSON, "```")
	rawJSON = strings.TrimSpace(rawJSON)

	var script domain.NarrativeScript
	if err := json.Unmarshal([]byte(rawJSON), &script); err != nil {
		return nil, &ExtractionError{Reason: ReasonMalformed, Err: fmt.Errorf("JSONのパースに失敗したのだ: %w", err)}
	}
	if err := script.Validate(); err != nil {
		return nil, &ExtractionError{Reason: ReasonMalformed, Err: err}
	}
	return &script, nil
}

// scriptSchema は脚本JSONのレスポンススキーマなのだ。
func scriptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":                 {Type: genai.TypeString},
			"story_summary":         {Type: genai.TypeString},
			"character_description": {Type: genai.TypeString},
			"panels": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"description":  {Type: genai.TypeString},
						"dialogue":     {Type: genai.TypeString},
						"onomatopoeia": {Type: genai.TypeString},
					},
					Required: []string{"description", "dialogue", "onomatopoeia"},
				},
			},
		},
		Required: []string{"title", "story_summary", "character_description", "panels"},
	}
}
