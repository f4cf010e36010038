// Package server は生成パイプラインを HTTP API として公開するのだ。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wattok061-tech/cinecomic/internal/config"
	"github.com/wattok061-tech/cinecomic/internal/ledger"
	"github.com/wattok061-tech/cinecomic/internal/media"
	"github.com/wattok061-tech/cinecomic/internal/orchestrator"
	"github.com/wattok061-tech/cinecomic/internal/sfx"
	"github.com/wattok061-tech/cinecomic/pkg/domain"
)

// Server は API のルーティングとランの単一実行制御を担うのだ。
type Server struct {
	engine *gin.Engine
	orch   *orchestrator.Orchestrator
	media  *media.Adapter
	sounds *sfx.Manager
	styles []config.StyleInfo
	pool   *ants.Pool
	logger *slog.Logger
}

// New はサーバーを生成するのだ。ランは同時に1本だけ実行できるよう、
// サイズ1のノンブロッキングなワーカープールへ投入されるのだ。
func New(orch *orchestrator.Orchestrator, mediaAdapter *media.Adapter, sounds *sfx.Manager, styles []config.StyleInfo, logger *slog.Logger) (*Server, error) {
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("ワーカープールの初期化に失敗したのだ: %w", err)
	}

	s := &Server{
		engine: gin.New(),
		orch:   orch,
		media:  mediaAdapter,
		sounds: sounds,
		styles: styles,
		pool:   pool,
		logger: logger,
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	runs := api.Group("/runs")
	runs.POST("", s.handleStartRun)
	runs.GET("/current", s.handleCurrentRun)
	runs.GET("/events", s.handleRunEvents)
	runs.POST("/reset", s.handleReset)

	credits := api.Group("/credits")
	credits.GET("", s.handleCredits)
	credits.POST("/claim", s.handleClaimBonus)

	api.GET("/styles", s.handleStyles)
	api.GET("/sfx", s.handleSfx)
	api.POST("/sfx/mute", s.handleSfxMute)
}

// Handler は登録済みルートを持つ http.Handler を返すのだ。テスト用なのだ。
func (s *Server) Handler() http.Handler { return s.engine }

// Run は ctx がキャンセルされるまでサーバーを動かすのだ。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.logger.Info("APIサーバーを起動するのだ", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		s.logger.Info("APIサーバーを停止するのだ")
		return srv.Shutdown(context.Background())
	})

	err := eg.Wait()
	s.pool.Release()
	return err
}

type startRunRequest struct {
	YouTubeURL string `json:"youtube_url"`
	Style      string `json:"style"`
	Quality    string `json:"quality"`
}

// handleStartRun は新しい生成ランを受け付けるのだ。動画ファイルの
// multipart と YouTube URL の JSON、どちらの形でも投げられるのだ。
func (s *Server) handleStartRun(c *gin.Context) {
	input, styleRaw, qualityRaw, err := s.parseRunSource(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	style, err := domain.ParseStyle(styleRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quality, err := domain.ParseQuality(qualityRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := domain.GenerationRequest{
		Payload:         input.Payload,
		DurationSeconds: input.DurationSeconds,
		Style:           style,
		Quality:         quality,
	}
	cost := domain.RequiredCredits(req.DurationSeconds, req.Quality)
	if !s.orch.Ledger().CanAfford(cost) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":   "クレジットが足りないのだ",
			"cost":    cost,
			"balance": s.orch.Ledger().Balance(),
		})
		return
	}

	submitErr := s.pool.Submit(func() {
		// HTTPリクエストの寿命とランの寿命は切り離すのだ
		if _, err := s.orch.StartRun(context.Background(), req); err != nil {
			s.logger.Warn("ランが失敗したのだ", "error", err)
		}
	})
	if submitErr != nil {
		if errors.Is(submitErr, ants.ErrPoolOverload) {
			c.JSON(http.StatusConflict, gin.H{"error": "別のランが実行中なのだ"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": submitErr.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"title": input.Title,
		"thumbnail_url": input.ThumbnailURL,
		"cost":  cost,
		"state": s.orch.Snapshot(),
	})
}

// parseRunSource はリクエストの形式に応じてソースを正規化するのだ。
func (s *Server) parseRunSource(c *gin.Context) (*media.Input, string, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("video")
		if err != nil {
			return nil, "", "", fmt.Errorf("動画ファイル（video）が見つからないのだ: %w", err)
		}

		// ffprobe で長さを測るため、一時ファイルへ書き出すのだ。
		// 同名ファイルの同時アップロードが衝突しないよう、リクエストごとに一意なパスを使うのだ。
		tmp, err := os.CreateTemp("", "cinecomic-upload-*"+filepath.Ext(file.Filename))
		if err != nil {
			return nil, "", "", fmt.Errorf("一時ファイルの作成に失敗したのだ: %w", err)
		}
		tmpPath := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpPath)
		if err := c.SaveUploadedFile(file, tmpPath); err != nil {
			return nil, "", "", fmt.Errorf("アップロードの保存に失敗したのだ: %w", err)
		}

		input, err := s.media.FromFile(c.Request.Context(), tmpPath)
		if err != nil {
			return nil, "", "", err
		}
		input.Title = file.Filename
		return input, c.PostForm("style"), c.PostForm("quality"), nil
	}

	var body startRunRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, "", "", fmt.Errorf("リクエストボディが不正なのだ: %w", err)
	}
	if body.YouTubeURL == "" {
		return nil, "", "", errors.New("youtube_url を指定してほしいのだ")
	}

	input, err := s.media.FromYouTubeURL(body.YouTubeURL)
	if err != nil {
		return nil, "", "", err
	}
	return input, body.Style, body.Quality, nil
}

func (s *Server) handleCurrentRun(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Snapshot())
}

// handleRunEvents は状態スナップショットを SSE でストリームするのだ。
func (s *Server) handleRunEvents(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	snapshots, cancel := s.orch.Subscribe()
	defer cancel()

	// 購読開始時点の状態をまず1枚流すのだ
	if !s.writeEvent(c, s.orch.Snapshot()) {
		return
	}

	clientGone := c.Request.Context().Done()
	for {
		select {
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			if !s.writeEvent(c, snapshot) {
				return
			}
		case <-clientGone:
			return
		}
	}
}

func (s *Server) writeEvent(c *gin.Context, snapshot domain.RunState) bool {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("スナップショットのエンコードに失敗したのだ", "error", err)
		return false
	}
	if _, err := c.Writer.WriteString("data: " + string(payload) + "\n\n"); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

func (s *Server) handleReset(c *gin.Context) {
	s.orch.Reset()
	c.JSON(http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleCredits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"balance":       s.orch.Ledger().Balance(),
		"bonus_claimed": s.orch.Ledger().BonusClaimed(),
	})
}

func (s *Server) handleClaimBonus(c *gin.Context) {
	balance, err := s.orch.Ledger().ClaimWelcomeBonus()
	if err != nil {
		if errors.Is(err, ledger.ErrBonusAlreadyClaimed) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "balance": balance})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (s *Server) handleStyles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"styles": s.styles})
}

func (s *Server) handleSfx(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"muted": s.sounds.Muted(),
		"cues":  s.sounds.Catalog(),
	})
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

func (s *Server) handleSfxMute(c *gin.Context) {
	var body muteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.sounds.SetMuted(body.Muted)
	c.JSON(http.StatusOK, gin.H{"muted": s.sounds.Muted()})
}
