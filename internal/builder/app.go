package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-ai-client/v2/pkg/ai/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"

	"github.com/wattok061-tech/cinecomic/internal/config"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config  *config.Config         // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options config.GenerateOptions // Optionsは、コマンドラインから渡された実行時の設定です（ソース、画風など）。
	Reader  remoteio.InputReader   // Readerは、台本JSONなど外部データの読み込みに使用する入力元です。
	Writer  remoteio.OutputWriter  // Writerは、生成された内容を保存するための出力先です。
	Logger  *slog.Logger

	aiClient    gemini.GenerativeModel  // aiClient は画像生成系のGemini通信に使う共通クライアント
	genaiClient *genai.Client           // genaiClient は脚本抽出のマルチモーダル通信に使うクライアント
	httpClient  httpkit.ClientInterface // httpClient は外部APIとの通信に使う共通クライアント
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.ClientInterface,
	aiClient gemini.GenerativeModel,
	genaiClient *genai.Client,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	logger *slog.Logger,
) AppContext {
	return AppContext{
		Config:      cfg,
		Options:     cfg.Options,
		Reader:      reader,
		Writer:      writer,
		Logger:      logger,
		aiClient:    aiClient,
		genaiClient: genaiClient,
		httpClient:  httpClient,
	}
}

// Setup は設定から共通クライアント一式を初期化して AppContext を組み立てるのだ。
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AppContext, error) {
	httpClient := httpkit.New(cfg.HTTPTimeout)

	aiClient, err := InitializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	genaiClient, err := InitializeGenaiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := NewAppContext(cfg, httpClient, aiClient, genaiClient, reader, writer, logger)
	return &appCtx, nil
}
