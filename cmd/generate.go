package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wattok061-tech/cinecomic/internal/pipeline"
)

// generateCmd は、動画からコミックまでの全工程を一発で実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "動画クリップから6コマのコミックを生成しますなのだ。",
	Long: `動画ファイルまたはYouTube URLを解析し、脚本の抽出、コマ画像の生成、
アルバムの保存までを一括で実行するのだ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()

	slog.Info("コミック生成パイプラインを起動するのだ！",
		"style", opts.Style,
		"quality", opts.Quality,
		"text_model", cfg.TextModel,
		"image_model", cfg.ImageModel,
		"output", opts.OutputDir)

	if err := pipeline.Execute(ctx, cfg, slog.Default()); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}
