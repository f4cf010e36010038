package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultTextModel          = "gemini-3-flash-preview"
	DefaultImageModel         = "gemini-3-pro-image-preview"
	DefaultFallbackImageModel = "gemini-2.5-flash-image"
	DefaultHTTPTimeout        = 30 * time.Second
	DefaultRenderInterval     = 5 * time.Second // コマ間のレンダリング間隔なのだ
	DefaultListenAddr         = ":8080"
	DefaultOutputDir          = "output" // パブリッシャーで使用するデフォルト保存先なのだ

)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey       string
	TextModel          string
	ImageModel         string
	FallbackImageModel string
	HTTPTimeout        time.Duration
	RenderInterval     time.Duration
	ListenAddr         string
	StartingCredits    int

	Options GenerateOptions
}

// LoadConfig は .env と環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	// ローカル開発用。コンテナ環境では環境変数が直接渡されるのだ
	_ = godotenv.Load()

	cfg := &Config{
		GeminiAPIKey:       envutil.GetEnv("GEMINI_API_KEY", ""),
		TextModel:          envutil.GetEnv("CINECOMIC_TEXT_MODEL", DefaultTextModel),
		ImageModel:         envutil.GetEnv("CINECOMIC_IMAGE_MODEL", DefaultImageModel),
		FallbackImageModel: envutil.GetEnv("CINECOMIC_FALLBACK_IMAGE_MODEL", DefaultFallbackImageModel),
		HTTPTimeout:        parseDuration(envutil.GetEnv("CINECOMIC_HTTP_TIMEOUT", ""), DefaultHTTPTimeout),
		RenderInterval:     parseDuration(envutil.GetEnv("CINECOMIC_RENDER_INTERVAL", ""), DefaultRenderInterval),
		ListenAddr:         envutil.GetEnv("CINECOMIC_LISTEN_ADDR", DefaultListenAddr),
		StartingCredits:    parseInt(envutil.GetEnv("CINECOMIC_CREDITS", ""), 0),
	}
	return cfg
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	VideoFile  string // --video-file
	YouTubeURL string // --youtube-url
	ScriptFile string // --script-file: render サブコマンド用の脚本JSON

	// 生成パラメータ
	Style   string // --style
	Quality string // --quality

	// 出力設定
	OutputDir string // --output-dir（ローカル or gs://...）

	// AI挙動設定
	TextModel          string // --model: 脚本抽出用のGeminiモデル
	ImageModel         string // --image-model: 画像生成用のGeminiモデル
	FallbackImageModel string // --fallback-image-model

	// 実行制御
	RenderInterval time.Duration // --render-interval
	ListenAddr     string        // --listen: serve モードの待受アドレス
}
