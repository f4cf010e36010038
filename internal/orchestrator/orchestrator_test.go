package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"golang.org/x/time/rate"

	"github.com/wattok061-tech/cinecomic/internal/extractor"
	"github.com/wattok061-tech/cinecomic/internal/ledger"
	"github.com/wattok061-tech/cinecomic/internal/renderer"
	"github.com/wattok061-tech/cinecomic/pkg/domain"
	"github.com/wattok061-tech/cinecomic/pkg/prompts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testScript() *domain.NarrativeScript {
	panels := make([]domain.PanelSpec, 0, domain.PanelCount)
	for i := 1; i <= domain.PanelCount; i++ {
		panels = append(panels, domain.PanelSpec{
			Description:  fmt.Sprintf("scene %d", i),
			Dialogue:     fmt.Sprintf("line %d", i),
			Onomatopoeia: "BOOM",
		})
	}
	return &domain.NarrativeScript{
		Title:                "THE MIDNIGHT RECKONING",
		StorySummary:         "A hero rises. A city falls.",
		CharacterDescription: "Tall figure in a worn coat.",
		Panels:               panels,
	}
}

func testRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		Payload:         domain.MediaPayload{Kind: domain.PayloadURL, URL: "https://youtu.be/dQw4w9WgXcQ"},
		DurationSeconds: 100,
		Style:           domain.StyleNoir,
		Quality:         domain.QualityFast,
	}
}

type fakeExtractor struct {
	script *domain.NarrativeScript
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(_ context.Context, _ domain.MediaPayload, _ domain.Style, _ float64) (*domain.NarrativeScript, error) {
	f.calls++
	return f.script, f.err
}

type fakeRenderer struct {
	fn    func(call int, spec domain.PanelSpec) (*imagedom.ImageResponse, error)
	calls int
}

func (f *fakeRenderer) RenderPanel(_ context.Context, spec domain.PanelSpec, _ domain.Style, _ string) (*imagedom.ImageResponse, error) {
	f.calls++
	return f.fn(f.calls, spec)
}

func alwaysSucceed(_ int, _ domain.PanelSpec) (*imagedom.ImageResponse, error) {
	return &imagedom.ImageResponse{Data: []byte{0xAA}, MimeType: "image/png"}, nil
}

func alwaysFail(_ int, _ domain.PanelSpec) (*imagedom.ImageResponse, error) {
	return nil, &renderer.RenderError{Reason: renderer.ReasonTransport, Err: errors.New("timeout")}
}

func newTestOrchestrator(balance int, ext *fakeExtractor, rend *fakeRenderer) *Orchestrator {
	return New(
		ledger.NewCreditLedger(balance),
		ext,
		rend,
		rate.NewLimiter(rate.Inf, 0),
		discardLogger(),
	)
}

func TestStartRunSuccess(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	rend := &fakeRenderer{fn: alwaysSucceed}
	o := newTestOrchestrator(100, ext, rend)

	result, err := o.StartRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("ランが失敗した: %v", err)
	}

	// 100秒 FAST → 10クレジット
	if got := o.Ledger().Balance(); got != 90 {
		t.Errorf("残高: got %d, want 90", got)
	}

	state := result.State
	if state.Status != domain.StatusCompleted {
		t.Errorf("Status: got %v", state.Status)
	}
	if state.CreditsCharged != 10 {
		t.Errorf("CreditsCharged: got %d", state.CreditsCharged)
	}
	if state.Title != "THE MIDNIGHT RECKONING" {
		t.Errorf("Title: got %q", state.Title)
	}

	// 表紙 + 6コマ
	if len(state.Panels) != domain.PanelCount+1 {
		t.Fatalf("パネル数: got %d, want %d", len(state.Panels), domain.PanelCount+1)
	}
	if !state.Panels[0].IsCover {
		t.Error("先頭のパネルは表紙であるべき")
	}
	for i, p := range state.Panels {
		if p.Generating {
			t.Errorf("パネル %d が generating のまま", i)
		}
		if !strings.HasPrefix(p.ImageURL, "data:image/png;base64,") {
			t.Errorf("パネル %d の ImageURL: %q", i, p.ImageURL)
		}
	}

	if rend.calls != domain.PanelCount+1 {
		t.Errorf("レンダリング回数: got %d", rend.calls)
	}
	if len(result.Images) != domain.PanelCount+1 {
		t.Errorf("Images: got %d", len(result.Images))
	}
}

func TestStartRunInsufficientCredits(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	rend := &fakeRenderer{fn: alwaysSucceed}
	o := newTestOrchestrator(5, ext, rend) // コスト10に対して残高5

	_, err := o.StartRun(context.Background(), testRequest())
	if !errors.Is(err, ledger.ErrInsufficientCredits) {
		t.Fatalf("ErrInsufficientCredits が返るべき: %v", err)
	}

	if ext.calls != 0 {
		t.Error("残高不足ではエクストラクターを呼ばないべき")
	}
	if got := o.Ledger().Balance(); got != 5 {
		t.Errorf("残高が変わった: got %d", got)
	}
	if got := o.Snapshot().Status; got != domain.StatusIdle {
		t.Errorf("状態が変わった: got %v", got)
	}
}

func TestStartRunExtractionFailure(t *testing.T) {
	t.Run("一般エラーはメッセージをそのまま載せる", func(t *testing.T) {
		ext := &fakeExtractor{err: &extractor.ExtractionError{Reason: extractor.ReasonTransport, Err: errors.New("connection reset")}}
		rend := &fakeRenderer{fn: alwaysSucceed}
		o := newTestOrchestrator(100, ext, rend)

		if _, err := o.StartRun(context.Background(), testRequest()); err == nil {
			t.Fatal("エラーが返るべき")
		}

		state := o.Snapshot()
		if state.Status != domain.StatusError {
			t.Errorf("Status: got %v", state.Status)
		}
		if state.Error == "" {
			t.Error("エラーメッセージが空")
		}
		if got := o.Ledger().Balance(); got != 100 {
			t.Errorf("抽出失敗で課金された: got %d", got)
		}
		if rend.calls != 0 {
			t.Error("抽出失敗でレンダラーが呼ばれた")
		}
	})

	t.Run("権限エラーは案内文を載せる", func(t *testing.T) {
		ext := &fakeExtractor{err: &extractor.ExtractionError{Reason: extractor.ReasonPermissionDenied, Err: errors.New("403")}}
		o := newTestOrchestrator(100, ext, &fakeRenderer{fn: alwaysSucceed})

		_, _ = o.StartRun(context.Background(), testRequest())
		if got := o.Snapshot().Error; got != extractor.PermissionGuidance {
			t.Errorf("Error: got %q", got)
		}
	})
}

func TestStartRunAllRendersFail(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	rend := &fakeRenderer{fn: alwaysFail}
	o := newTestOrchestrator(100, ext, rend)

	result, err := o.StartRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("コマの失敗はランを止めないべき: %v", err)
	}

	state := result.State
	if state.Status != domain.StatusCompleted {
		t.Errorf("Status: got %v", state.Status)
	}
	for i, p := range state.Panels {
		if p.Generating || p.ImageURL != "" {
			t.Errorf("パネル %d: generating=%v image=%q", i, p.Generating, p.ImageURL)
		}
	}
	// 課金は抽出成功時点で確定している
	if got := o.Ledger().Balance(); got != 90 {
		t.Errorf("残高: got %d, want 90", got)
	}
}

func TestStartRunPartialFailure(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	rend := &fakeRenderer{fn: func(call int, _ domain.PanelSpec) (*imagedom.ImageResponse, error) {
		if call == 3 {
			return nil, &renderer.RenderError{Reason: renderer.ReasonTransport, Err: errors.New("flaky")}
		}
		return alwaysSucceed(call, domain.PanelSpec{})
	}}
	o := newTestOrchestrator(100, ext, rend)

	result, err := o.StartRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("ランが失敗した: %v", err)
	}

	failed := 0
	for _, p := range result.State.Panels {
		if p.ImageURL == "" {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("失敗コマ数: got %d, want 1", failed)
	}
	if result.State.Status != domain.StatusCompleted {
		t.Errorf("Status: got %v", result.State.Status)
	}
}

func TestPanelsAllGeneratingAfterDebit(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	var firstSnapshot domain.RunState
	o := newTestOrchestrator(100, ext, nil)
	rend := &fakeRenderer{fn: func(call int, _ domain.PanelSpec) (*imagedom.ImageResponse, error) {
		if call == 1 {
			firstSnapshot = o.Snapshot()
		}
		return alwaysSucceed(call, domain.PanelSpec{})
	}}
	o.renderer = rend

	if _, err := o.StartRun(context.Background(), testRequest()); err != nil {
		t.Fatalf("ランが失敗した: %v", err)
	}

	if firstSnapshot.Status != domain.StatusGeneratingPanels {
		t.Errorf("最初のレンダリング時点の状態: got %v", firstSnapshot.Status)
	}
	if len(firstSnapshot.Panels) != domain.PanelCount+1 {
		t.Fatalf("パネル数: got %d", len(firstSnapshot.Panels))
	}
	for i, p := range firstSnapshot.Panels {
		if !p.Generating {
			t.Errorf("課金直後、パネル %d が generating でない", i)
		}
	}
}

func TestStaleRunDiscarded(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	var o *Orchestrator
	rend := &fakeRenderer{fn: func(call int, _ domain.PanelSpec) (*imagedom.ImageResponse, error) {
		if call == 2 {
			o.Reset() // レンダリング中に「新しいミッション」が始まる
		}
		return alwaysSucceed(call, domain.PanelSpec{})
	}}
	o = newTestOrchestrator(100, ext, rend)

	_, err := o.StartRun(context.Background(), testRequest())
	if err == nil {
		t.Fatal("破棄されたランは完了できないべき")
	}

	state := o.Snapshot()
	if state.Status != domain.StatusIdle {
		t.Errorf("リセット後の状態: got %v", state.Status)
	}
	if len(state.Panels) != 0 {
		t.Errorf("リセット後にパネルが残った: %d", len(state.Panels))
	}
}

func TestApplyPanelImageIdempotent(t *testing.T) {
	o := newTestOrchestrator(100, &fakeExtractor{script: testScript()}, &fakeRenderer{fn: alwaysSucceed})
	panels, err := func() ([]domain.Panel, error) {
		if err := o.beginRun("run-1", 1); err != nil {
			return nil, err
		}
		return o.commitScript("run-1", 1, testScript())
	}()
	if err != nil {
		t.Fatalf("準備に失敗した: %v", err)
	}

	first := &imagedom.ImageResponse{Data: []byte{1}, MimeType: "image/png"}
	second := &imagedom.ImageResponse{Data: []byte{2}, MimeType: "image/png"}

	o.applyPanelImage("run-1", panels[0].ID, first)
	o.applyPanelImage("run-1", panels[0].ID, second)

	got := o.Snapshot().Panels[0].ImageURL
	if got != DataURI(first) {
		t.Error("2回目の適用で画像が上書きされた")
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	rend := &fakeRenderer{fn: alwaysSucceed}
	o := newTestOrchestrator(100, ext, rend)

	ch, cancel := o.Subscribe()
	defer cancel()

	if _, err := o.StartRun(context.Background(), testRequest()); err != nil {
		t.Fatalf("ランが失敗した: %v", err)
	}

	var last domain.RunState
	received := 0
	for {
		select {
		case s := <-ch:
			last = s
			received++
			continue
		default:
		}
		break
	}

	// analyzing, generating_panels, コマ×7, completed
	if received < 3 {
		t.Errorf("通知回数が少ない: %d", received)
	}
	if last.Status != domain.StatusCompleted {
		t.Errorf("最後のスナップショット: got %v", last.Status)
	}
}

func TestStartRunWhileRunning(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	var o *Orchestrator
	var nested error
	rend := &fakeRenderer{fn: func(call int, _ domain.PanelSpec) (*imagedom.ImageResponse, error) {
		if call == 1 {
			_, nested = o.StartRun(context.Background(), testRequest())
		}
		return alwaysSucceed(call, domain.PanelSpec{})
	}}
	o = newTestOrchestrator(1000, ext, rend)

	if _, err := o.StartRun(context.Background(), testRequest()); err != nil {
		t.Fatalf("ランが失敗した: %v", err)
	}
	if !errors.Is(nested, ErrRunInProgress) {
		t.Errorf("実行中の開始要求は ErrRunInProgress になるべき: %v", nested)
	}
}

func TestRenderOrderIsStrictlySequential(t *testing.T) {
	ext := &fakeExtractor{script: testScript()}
	rend := &fakeRenderer{}
	var o *Orchestrator

	var gotOrder []string
	rend.fn = func(call int, spec domain.PanelSpec) (*imagedom.ImageResponse, error) {
		gotOrder = append(gotOrder, spec.Description)

		// コマ i のレンダリング要求が出る時点で、それ以前のコマは
		// すべて確定済み、自分以降はまだ generating のはずなのだ
		snap := o.Snapshot()
		for i, p := range snap.Panels {
			if i < call-1 && p.Generating {
				t.Errorf("call %d: 先行コマ %d が未確定のまま次の要求が出た", call, i)
			}
			if i >= call-1 && !p.Generating {
				t.Errorf("call %d: 後続コマ %d が先に確定している", call, i)
			}
		}
		return alwaysSucceed(call, spec)
	}
	o = newTestOrchestrator(100, ext, rend)

	if _, err := o.StartRun(context.Background(), testRequest()); err != nil {
		t.Fatalf("ランが失敗した: %v", err)
	}

	want := []string{prompts.CoverPanelSpec().Description}
	for i := 1; i <= domain.PanelCount; i++ {
		want = append(want, fmt.Sprintf("scene %d", i))
	}
	if len(gotOrder) != len(want) {
		t.Fatalf("レンダリング回数: got %d, want %d", len(gotOrder), len(want))
	}
	for i := range want {
		if gotOrder[i] != want[i] {
			t.Errorf("呼び出し %d: got %q, want %q", i+1, gotOrder[i], want[i])
		}
	}
}
