// Package pipeline は CLI から呼ばれる一連の生成工程を束ねるのだ。
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"golang.org/x/time/rate"

	"github.com/wattok061-tech/cinecomic/internal/builder"
	"github.com/wattok061-tech/cinecomic/internal/config"
	"github.com/wattok061-tech/cinecomic/internal/ledger"
	"github.com/wattok061-tech/cinecomic/internal/media"
	"github.com/wattok061-tech/cinecomic/internal/publisher"
	"github.com/wattok061-tech/cinecomic/pkg/domain"
	"github.com/wattok061-tech/cinecomic/pkg/prompts"
)

// Execute は動画ソースから完成コミックまでの全工程を実行するのだ。
// Phase 1: 入力の正規化、Phase 2: 脚本抽出とコマ生成、Phase 3: 公開/保存なのだ。
func Execute(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	appCtx, err := builder.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// --- Phase 1: Input Phase (ソースの正規化) ---
	input, err := resolveInput(ctx, appCtx)
	if err != nil {
		return err
	}

	style, err := domain.ParseStyle(cfg.Options.Style)
	if err != nil {
		return err
	}
	quality, err := domain.ParseQuality(cfg.Options.Quality)
	if err != nil {
		return err
	}

	credits := ledger.NewCreditLedger(cfg.StartingCredits)
	cost := domain.RequiredCredits(input.DurationSeconds, quality)
	if !credits.CanAfford(cost) {
		// CLI はセッションごとに台帳を作るので、初回ボーナスをここで受け取るのだ
		balance, err := credits.ClaimWelcomeBonus()
		if err != nil {
			return fmt.Errorf("クレジットの準備に失敗したのだ: %w", err)
		}
		logger.Info("ウェルカムボーナスを受け取ったのだ", "balance", balance, "cost", cost)
	}

	orch, err := builder.BuildOrchestrator(appCtx, credits)
	if err != nil {
		return err
	}

	// --- Phase 2: Generation Phase (脚本抽出とコマ生成) ---
	logger.Info("生成ランを開始するのだ",
		"title", input.Title, "style", string(style), "quality", string(quality), "cost", cost)

	result, err := orch.StartRun(ctx, domain.GenerationRequest{
		Payload:         input.Payload,
		DurationSeconds: input.DurationSeconds,
		Style:           style,
		Quality:         quality,
	})
	if err != nil {
		return fmt.Errorf("生成ランに失敗したのだ: %w", err)
	}

	// --- Phase 3: Publish Phase (公開/保存) ---
	if err := publish(ctx, appCtx, *result.Script, result.State.Panels, result.Images); err != nil {
		return err
	}

	logger.Info("すべての生成工程が完了したのだ！",
		"run_id", result.RunID, "balance", credits.Balance())
	return nil
}

// ExecuteRenderOnly は、保存済みの脚本JSONからコマ画像の生成と公開だけを
// やり直すのだ。抽出フェーズを飛ばすので課金は発生しないのだ。
func ExecuteRenderOnly(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	appCtx, err := builder.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}

	script, err := loadScript(ctx, appCtx, cfg.Options.ScriptFile)
	if err != nil {
		return err
	}

	style, err := domain.ParseStyle(cfg.Options.Style)
	if err != nil {
		return err
	}

	rend, err := builder.BuildRenderer(appCtx)
	if err != nil {
		return err
	}

	// 表紙を先頭に置いた全コマを物語順でレンダリングするのだ
	specs := make([]domain.PanelSpec, 0, len(script.Panels)+1)
	specs = append(specs, prompts.CoverPanelSpec())
	specs = append(specs, script.Panels...)

	panels := make([]domain.Panel, 0, len(specs))
	images := make([]*imagedom.ImageResponse, len(specs))
	limiter := rate.NewLimiter(rate.Every(cfg.RenderInterval), 1)

	for i, spec := range specs {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("レンダリングが中断されたのだ: %w", err)
		}

		resp, err := rend.RenderPanel(ctx, spec, style, script.CharacterDescription)
		if err != nil {
			logger.Warn("コマのレンダリングに失敗したのだ。次のコマへ進むのだ",
				"panel", i+1, "error", err)
		} else {
			images[i] = resp
		}

		panels = append(panels, domain.Panel{
			Description:         spec.Description,
			Dialogue:            spec.Dialogue,
			Onomatopoeia:        spec.Onomatopoeia,
			CharacterExpression: spec.CharacterExpression,
			IsCover:             spec.IsCover,
		})
	}

	if err := publish(ctx, appCtx, *script, panels, images); err != nil {
		return err
	}

	logger.Info("画像生成と公開処理が完了したのだ！")
	return nil
}

// resolveInput は CLI フラグで指定されたソースを正規化するのだ。
func resolveInput(ctx context.Context, appCtx *builder.AppContext) (*media.Input, error) {
	opts := appCtx.Options
	adapter := builder.BuildMediaAdapter(appCtx)

	switch {
	case opts.VideoFile != "" && opts.YouTubeURL != "":
		return nil, errors.New("--video-file と --youtube-url は同時に指定できないのだ")
	case opts.VideoFile != "":
		return adapter.FromFile(ctx, opts.VideoFile)
	case opts.YouTubeURL != "":
		return adapter.FromYouTubeURL(opts.YouTubeURL)
	default:
		return nil, errors.New("ソース（--video-file または --youtube-url）を指定してほしいのだ")
	}
}

// loadScript は保存済みの脚本JSONを読み込んで検証するのだ。
func loadScript(ctx context.Context, appCtx *builder.AppContext, path string) (*domain.NarrativeScript, error) {
	if path == "" {
		return nil, errors.New("脚本（--script-file）を指定してほしいのだ")
	}

	rc, err := appCtx.Reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("脚本ファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	defer rc.Close()

	var script domain.NarrativeScript
	if err := json.NewDecoder(rc).Decode(&script); err != nil {
		return nil, fmt.Errorf("脚本ファイル '%s' のデコードに失敗しました: %w", path, err)
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("脚本の内容が不正なのだ: %w", err)
	}
	return &script, nil
}

// publish は成果物一式を出力先へ書き出すのだ。
func publish(ctx context.Context, appCtx *builder.AppContext, script domain.NarrativeScript, panels []domain.Panel, images []*imagedom.ImageResponse) error {
	pub, err := builder.BuildPublisher(appCtx)
	if err != nil {
		return err
	}

	result, err := pub.Publish(ctx, script, panels, images, publisher.Options{
		OutputDir: appCtx.Options.OutputDir,
	})
	if err != nil {
		return fmt.Errorf("成果物の公開に失敗したのだ: %w", err)
	}

	appCtx.Logger.Info("成果物を保存したのだ",
		"markdown", result.MarkdownPath,
		"html", result.HTMLPath,
		"script", result.ScriptPath,
		"images", len(result.ImagePaths))
	return nil
}
