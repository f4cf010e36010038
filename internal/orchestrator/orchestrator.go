// Package orchestrator は生成ラン全体の進行と共有状態の唯一の書き手なのだ。
package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"golang.org/x/time/rate"

	"github.com/wattok061-tech/cinecomic/internal/extractor"
	"github.com/wattok061-tech/cinecomic/internal/ledger"
	"github.com/wattok061-tech/cinecomic/internal/renderer"
	"github.com/wattok061-tech/cinecomic/pkg/domain"
	"github.com/wattok061-tech/cinecomic/pkg/prompts"
)

// ErrRunInProgress は実行中のランがあるときの開始要求を表すのだ。
var ErrRunInProgress = errors.New("別のランが実行中なのだ")

// RunResult は1ランの成果物なのだ。Images は Panels と同じ順序で、
// レンダリングに失敗したコマは nil になるのだ。
type RunResult struct {
	RunID  string
	Script *domain.NarrativeScript
	Images []*imagedom.ImageResponse
	State  domain.RunState
}

// Orchestrator は RunState コンテナなのだ。状態の変更はすべてここの
// ロック配下で行われ、変更のたびに購読者へスナップショットが流れるのだ。
type Orchestrator struct {
	mu          sync.Mutex
	state       domain.RunState
	activeRunID string
	subscribers map[int]chan domain.RunState
	nextSubID   int

	credits   *ledger.CreditLedger
	extractor extractor.NarrativeExtractor
	renderer  renderer.PanelRenderer
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New はオーケストレーターを生成するのだ。limiter はコマ間のレンダリング
// 間隔を制御するのだ。
func New(credits *ledger.CreditLedger, ext extractor.NarrativeExtractor, rend renderer.PanelRenderer, limiter *rate.Limiter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		state:       domain.NewRunState(),
		subscribers: make(map[int]chan domain.RunState),
		credits:     credits,
		extractor:   ext,
		renderer:    rend,
		limiter:     limiter,
		logger:      logger,
	}
}

// Ledger はクレジット台帳を返すのだ。残高照会とボーナス請求はランの
// 進行と独立なので、台帳へ直接触れるのだ。
func (o *Orchestrator) Ledger() *ledger.CreditLedger { return o.credits }

// Snapshot は現在の状態のディープコピーを返すのだ。
func (o *Orchestrator) Snapshot() domain.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Subscribe は状態変更のたびにスナップショットが届くチャネルを返すのだ。
// 受信が追いつかない購読者への通知は捨てられるのだ。
func (o *Orchestrator) Subscribe() (<-chan domain.RunState, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSubID
	o.nextSubID++
	ch := make(chan domain.RunState, 16)
	o.subscribers[id] = ch

	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, ok := o.subscribers[id]; ok {
			delete(o.subscribers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// notifyLocked は現在状態のスナップショットを全購読者へ配るのだ。
// o.mu を保持したまま呼ぶのだ。
func (o *Orchestrator) notifyLocked() {
	snapshot := o.state.Clone()
	for _, ch := range o.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Reset は「新しいミッション」なのだ。実行中ランの後続の変更は
// 古い世代として破棄されるのだ。
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activeRunID = ""
	o.state = domain.NewRunState()
	o.notifyLocked()
	o.logger.Info("ランをリセットしたのだ")
}

// StartRun は1ランを最初から最後まで実行するのだ。
// コストの事前チェック → 脚本抽出 → 課金とパネル実体化 → 逐次レンダリング
// → 完了、という直列のプロトコルなのだ。
func (o *Orchestrator) StartRun(ctx context.Context, req domain.GenerationRequest) (*RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cost := domain.RequiredCredits(req.DurationSeconds, req.Quality)
	runID := uuid.NewString()

	if err := o.beginRun(runID, cost); err != nil {
		return nil, err
	}

	logger := o.logger.With("run_id", runID)
	logger.Info("ランを開始するのだ",
		"cost", cost, "quality", string(req.Quality), "style", string(req.Style),
		"duration_sec", req.DurationSeconds)

	script, err := o.extractor.Extract(ctx, req.Payload, req.Style, req.DurationSeconds)
	if err != nil {
		o.failRun(runID, err)
		return nil, fmt.Errorf("脚本の抽出に失敗したのだ: %w", err)
	}

	panels, err := o.commitScript(runID, cost, script)
	if err != nil {
		return nil, err
	}

	images := o.renderAll(ctx, logger, runID, panels, req.Style, script.CharacterDescription)

	if err := o.completeRun(runID); err != nil {
		return nil, err
	}

	return &RunResult{
		RunID:  runID,
		Script: script,
		Images: images,
		State:  o.Snapshot(),
	}, nil
}

// beginRun はコストの事前チェックと analyzing への遷移をアトミックに行うのだ。
// 残高不足なら状態には一切触れないのだ。
func (o *Orchestrator) beginRun(runID string, cost int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state.Status {
	case domain.StatusAnalyzing, domain.StatusGeneratingPanels:
		return ErrRunInProgress
	}
	if !o.credits.CanAfford(cost) {
		return fmt.Errorf("%w: このランには %d クレジットが必要なのだ", ledger.ErrInsufficientCredits, cost)
	}

	o.activeRunID = runID
	o.state = domain.NewRunState()
	o.state.RunID = runID
	if err := o.state.Transition(domain.StatusAnalyzing); err != nil {
		return err
	}
	o.notifyLocked()
	return nil
}

// failRun は analyzing 段階の失敗を error 状態へ反映するのだ。課金はしないのだ。
func (o *Orchestrator) failRun(runID string, cause error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeRunID != runID {
		return // 古い世代のランなのだ
	}

	message := cause.Error()
	var exErr *extractor.ExtractionError
	if errors.As(cause, &exErr) && exErr.Reason == extractor.ReasonPermissionDenied {
		message = extractor.PermissionGuidance
	}

	if err := o.state.Transition(domain.StatusError); err != nil {
		o.logger.Error("error への遷移に失敗したのだ", "error", err)
		return
	}
	o.state.Error = message
	o.notifyLocked()
}

// commitScript は課金・generating_panels への遷移・パネルの実体化を
// 1つのロックで行い、1回だけ通知するのだ。表紙を先頭に置くのだ。
func (o *Orchestrator) commitScript(runID string, cost int, script *domain.NarrativeScript) ([]domain.Panel, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeRunID != runID {
		return nil, fmt.Errorf("ランが破棄されたのだ (run_id=%s)", runID)
	}

	if err := o.credits.Debit(cost); err != nil {
		if terr := o.state.Transition(domain.StatusError); terr == nil {
			o.state.Error = err.Error()
			o.notifyLocked()
		}
		return nil, err
	}

	specs := make([]domain.PanelSpec, 0, len(script.Panels)+1)
	specs = append(specs, prompts.CoverPanelSpec())
	specs = append(specs, script.Panels...)

	panels := make([]domain.Panel, 0, len(specs))
	for _, spec := range specs {
		panels = append(panels, domain.Panel{
			ID:                  uuid.NewString(),
			Description:         spec.Description,
			Dialogue:            spec.Dialogue,
			Onomatopoeia:        spec.Onomatopoeia,
			CharacterExpression: spec.CharacterExpression,
			IsCover:             spec.IsCover,
			Generating:          true,
		})
	}

	if err := o.state.Transition(domain.StatusGeneratingPanels); err != nil {
		return nil, err
	}
	o.state.CreditsCharged = cost
	o.state.Title = script.Title
	o.state.StorySummary = script.StorySummary
	o.state.Panels = panels
	o.notifyLocked()

	result := make([]domain.Panel, len(panels))
	copy(result, panels)
	return result, nil
}

// renderAll は物語順の逐次レンダリングループなのだ。コマ単位の失敗は
// そのコマの中で吸収し、ランは止めないのだ。
func (o *Orchestrator) renderAll(ctx context.Context, logger *slog.Logger, runID string, panels []domain.Panel, style domain.Style, characterDescription string) []*imagedom.ImageResponse {
	images := make([]*imagedom.ImageResponse, len(panels))

	for i, panel := range panels {
		panelLogger := logger.With("panel", i+1, "panel_id", panel.ID)

		if err := o.limiter.Wait(ctx); err != nil {
			panelLogger.Warn("レンダリングが中断されたのだ", "error", err)
			o.abandonRemaining(runID, panels[i:])
			return images
		}

		resp, err := o.renderer.RenderPanel(ctx, panel.Spec(), style, characterDescription)
		if err != nil {
			panelLogger.Warn("コマのレンダリングに失敗したのだ。次のコマへ進むのだ", "error", err)
			o.applyPanelFailure(runID, panel.ID)
			continue
		}

		images[i] = resp
		o.applyPanelImage(runID, panel.ID, resp)
		panelLogger.Info("コマのレンダリングが完了したのだ", "bytes", len(resp.Data))
	}
	return images
}

// applyPanelImage は成功したコマへ画像を書き込むのだ。古い世代と
// 完了済みコマへの適用は無視されるのだ（冪等）。
func (o *Orchestrator) applyPanelImage(runID, panelID string, resp *imagedom.ImageResponse) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeRunID != runID {
		return
	}
	for i := range o.state.Panels {
		p := &o.state.Panels[i]
		if p.ID != panelID {
			continue
		}
		if !p.Generating {
			return // 適用済みなのだ
		}
		p.ImageURL = DataURI(resp)
		p.Generating = false
		o.notifyLocked()
		return
	}
}

// applyPanelFailure は失敗したコマを画像なしで確定させるのだ。
func (o *Orchestrator) applyPanelFailure(runID, panelID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeRunID != runID {
		return
	}
	for i := range o.state.Panels {
		p := &o.state.Panels[i]
		if p.ID != panelID {
			continue
		}
		if !p.Generating {
			return
		}
		p.Generating = false
		o.notifyLocked()
		return
	}
}

// abandonRemaining は中断時に残りのコマを画像なしで確定させるのだ。
func (o *Orchestrator) abandonRemaining(runID string, remaining []domain.Panel) {
	for _, panel := range remaining {
		o.applyPanelFailure(runID, panel.ID)
	}
}

// completeRun は最後のコマ確定後に completed へ遷移するのだ。
func (o *Orchestrator) completeRun(runID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeRunID != runID {
		return fmt.Errorf("ランが破棄されたのだ (run_id=%s)", runID)
	}
	if err := o.state.Transition(domain.StatusCompleted); err != nil {
		return err
	}
	o.notifyLocked()
	o.logger.Info("ランが完了したのだ", "run_id", runID)
	return nil
}

// DataURI は画像レスポンスをブラウザがそのまま表示できる data URI に
// 変換するのだ。
func DataURI(resp *imagedom.ImageResponse) string {
	mimeType := resp.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(resp.Data))
}
