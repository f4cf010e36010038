package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wattok061-tech/cinecomic/internal/pipeline"
)

// renderCmd は、保存済みの脚本JSONから画像生成だけをやり直すのだ。
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "保存済みの脚本JSONからコマ画像を再生成しますなのだ。",
	Long: `generate が出力した comic_script.json を読み込み、脚本の抽出を
スキップしてコマ画像の生成と保存だけを実行するのだ。画風を変えて
同じ脚本を焼き直すのにも使えるのだ。`,
	RunE: renderCommand,
}

func renderCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()

	slog.Info("再レンダリングを開始するのだ",
		"script", opts.ScriptFile,
		"style", opts.Style,
		"image_model", cfg.ImageModel)

	if err := pipeline.ExecuteRenderOnly(ctx, cfg, slog.Default()); err != nil {
		return fmt.Errorf("再レンダリング中にエラーが発生したのだ: %w", err)
	}

	slog.Info("画像生成と公開処理が完了したのだ！")
	return nil
}
