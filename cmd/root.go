package cmd

import (
	"fmt"
	"os"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/wattok061-tech/cinecomic/internal/config"
)

// opts は全サブコマンドで共有する実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.VideoFile, "video-file", "f", "", "入力する動画ファイルのパスなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.YouTubeURL, "youtube-url", "u", "", "入力するYouTube動画のURLなのだ。")

	// --- 生成パラメータ ---
	rootCmd.PersistentFlags().StringVarP(&opts.Style, "style", "s", "modern_dc", "コミックの画風なのだ（styles コマンドで一覧できるのだ）。")
	rootCmd.PersistentFlags().StringVarP(&opts.Quality, "quality", "q", "FAST", "品質ティア（FAST / STUDIO / ULTRA）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "保存先ディレクトリ（ローカル or gs://...）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.TextModel, "model", config.DefaultTextModel, "脚本抽出に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "画像生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.FallbackImageModel, "fallback-image-model", config.DefaultFallbackImageModel, "プライマリ失敗時に使う低忠実度モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RenderInterval, "render-interval", config.DefaultRenderInterval, "コマ間のレンダリング間隔なのだ。")

	// --- render / serve 固有設定 ---
	renderCmd.Flags().StringVar(&opts.ScriptFile, "script-file", "", "再レンダリングする脚本JSONのパスなのだ。")
	serveCmd.Flags().StringVar(&opts.ListenAddr, "listen", config.DefaultListenAddr, "APIサーバーの待受アドレスなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// styles はオフラインで完結するのでAPIキーは不要なのだ
	if cmd.Name() == "styles" {
		return nil
	}

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"cinecomic",
		addAppFlags,
		preRunAppE,
		generateCmd,
		renderCmd,
		serveCmd,
		stylesCmd,
	)
}

// loadConfig は環境設定へ CLI フラグを重ねた最終的な設定を返すのだ。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.TextModel = opts.TextModel
	cfg.ImageModel = opts.ImageModel
	cfg.FallbackImageModel = opts.FallbackImageModel
	cfg.RenderInterval = opts.RenderInterval
	if opts.ListenAddr != "" {
		cfg.ListenAddr = opts.ListenAddr
	}
	cfg.Options = opts
	return cfg
}
