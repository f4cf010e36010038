package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-ai-client/v2/pkg/ai/gemini"
	"github.com/shouni/go-text-format/pkg/builder"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/wattok061-tech/cinecomic/internal/extractor"
	"github.com/wattok061-tech/cinecomic/internal/ledger"
	"github.com/wattok061-tech/cinecomic/internal/media"
	"github.com/wattok061-tech/cinecomic/internal/orchestrator"
	"github.com/wattok061-tech/cinecomic/internal/publisher"
	"github.com/wattok061-tech/cinecomic/internal/renderer"
)

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	const defaultGeminiTemperature = float32(0.2)
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// InitializeGenaiClient は脚本抽出用のマルチモーダルクライアントを初期化します。
func InitializeGenaiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genaiクライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// initializeImageGenerator は ImageGeneratorを初期化します。
func initializeImageGenerator(appCtx *AppContext, model string) (generator.ImageGenerator, error) {
	imgCache := cache.New(30*time.Minute, 1*time.Hour)
	cacheTTL := 1 * time.Hour

	core, err := generator.NewGeminiImageCore(appCtx.httpClient, imgCache, cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗したのだ: %w", err)
	}

	imgGen, err := generator.NewGeminiGenerator(core, appCtx.aiClient, model)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗したのだ: %w", err)
	}
	return imgGen, nil
}

// BuildExtractor は脚本抽出器を構築します。
func BuildExtractor(appCtx *AppContext) extractor.NarrativeExtractor {
	return extractor.NewGeminiExtractor(appCtx.genaiClient, appCtx.Config.TextModel, appCtx.Logger)
}

// BuildRenderer はプライマリ＋フォールバックのコマレンダラーを構築します。
// フォールバックモデルが空の場合はプライマリのみで動くのだ。
func BuildRenderer(appCtx *AppContext) (renderer.PanelRenderer, error) {
	primaryGen, err := initializeImageGenerator(appCtx, appCtx.Config.ImageModel)
	if err != nil {
		return nil, fmt.Errorf("プライマリレンダラーの構築に失敗したのだ: %w", err)
	}
	primary := renderer.NewGeminiPanelRenderer(primaryGen, appCtx.Config.ImageModel, appCtx.Logger)

	var fallback renderer.PanelRenderer
	if appCtx.Config.FallbackImageModel != "" {
		fallbackGen, err := initializeImageGenerator(appCtx, appCtx.Config.FallbackImageModel)
		if err != nil {
			return nil, fmt.Errorf("フォールバックレンダラーの構築に失敗したのだ: %w", err)
		}
		fallback = renderer.NewGeminiPanelRenderer(fallbackGen, appCtx.Config.FallbackImageModel, appCtx.Logger)
	}

	return renderer.NewFallbackRenderer(primary, fallback, appCtx.Logger), nil
}

// BuildMediaAdapter は動画ソースの入力アダプターを構築します。
func BuildMediaAdapter(appCtx *AppContext) *media.Adapter {
	return media.NewAdapter(media.NewFFProbe(""), appCtx.Logger)
}

// BuildPublisher は成果物の保存と変換を行うパブリッシャーを構築します。
func BuildPublisher(appCtx *AppContext) (*publisher.ComicPublisher, error) {
	config := builder.BuilderConfig{
		EnableHardWraps: true,
		Mode:            "webtoon",
	}
	appBuilder, err := builder.NewBuilder(config)
	if err != nil {
		return nil, fmt.Errorf("アプリケーションビルダーの初期化に失敗しました: %w", err)
	}

	md2htmlRunner, err := appBuilder.BuildRunner()
	if err != nil {
		return nil, fmt.Errorf("MarkdownToHtmlRunnerの初期化に失敗しました: %w", err)
	}

	return publisher.NewComicPublisher(appCtx.Writer, md2htmlRunner), nil
}

// BuildOrchestrator はランの進行役を構築します。
func BuildOrchestrator(appCtx *AppContext, credits *ledger.CreditLedger) (*orchestrator.Orchestrator, error) {
	ext := BuildExtractor(appCtx)

	rend, err := BuildRenderer(appCtx)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(appCtx.Config.RenderInterval), 1)
	return orchestrator.New(credits, ext, rend, limiter, appCtx.Logger), nil
}
