package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wattok061-tech/cinecomic/internal/builder"
	"github.com/wattok061-tech/cinecomic/internal/config"
	"github.com/wattok061-tech/cinecomic/internal/ledger"
	"github.com/wattok061-tech/cinecomic/internal/server"
	"github.com/wattok061-tech/cinecomic/internal/sfx"
)

// serveCmd は、生成パイプラインを HTTP API として公開するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "生成パイプラインをHTTP APIとして公開しますなのだ。",
	Long: `フロントエンドから動画の投稿・進行状況のSSE購読・クレジット管理が
できるAPIサーバーを起動するのだ。ランは同時に1本だけ実行されるのだ。`,
	RunE: serveCommand,
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()
	logger := slog.Default()

	appCtx, err := builder.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}

	credits := ledger.NewCreditLedger(cfg.StartingCredits)
	orch, err := builder.BuildOrchestrator(appCtx, credits)
	if err != nil {
		return err
	}

	styles, err := config.LoadStyleCatalog()
	if err != nil {
		return err
	}

	sounds := sfx.NewManager(logger)
	go func() {
		// プリロードは起動をブロックしない。失敗しても警告止まりなのだ。
		if err := sounds.Preload(ctx, sfx.NewHTTPFetcher(cfg.HTTPTimeout)); err != nil {
			logger.Warn("効果音のプリロードに失敗したのだ", "error", err)
		}
	}()

	srv, err := server.New(
		orch,
		builder.BuildMediaAdapter(appCtx),
		sounds,
		styles,
		logger,
	)
	if err != nil {
		return err
	}

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("APIサーバーでエラーが発生したのだ: %w", err)
	}
	return nil
}
