package domain

import "fmt"

// RunStatus は生成ランの状態です。1ランの中では単調に進行し、
// 「新しいミッション」開始時のみ idle に戻ります。
type RunStatus string

const (
	StatusIdle             RunStatus = "idle"
	StatusAnalyzing        RunStatus = "analyzing"
	StatusGeneratingPanels RunStatus = "generating_panels"
	StatusCompleted        RunStatus = "completed"
	StatusError            RunStatus = "error"
)

// allowedTransitions は状態遷移の許可表です。
// error 分岐に入れるのは analyzing からのみ。パネル単位のレンダリング失敗は
// ランを error にせず、コマ内で吸収されます。
var allowedTransitions = map[RunStatus]map[RunStatus]bool{
	StatusIdle: {
		StatusAnalyzing: true,
	},
	StatusAnalyzing: {
		StatusGeneratingPanels: true,
		StatusError:            true,
		StatusIdle:             true, // reset
	},
	StatusGeneratingPanels: {
		StatusCompleted: true,
		StatusIdle:      true, // reset
	},
	StatusCompleted: {
		StatusAnalyzing: true, // リセットなしで次のランを開始できる
		StatusIdle:      true,
	},
	StatusError: {
		StatusAnalyzing: true,
		StatusIdle:      true,
	},
}

// CanTransition は from から to への状態遷移が許可されているかを返します。
func CanTransition(from, to RunStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Transition は RunState の状態を検証付きで進めるのだ。
func (s *RunState) Transition(to RunStatus) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("不正な状態遷移なのだ: %q -> %q (run_id=%s)", s.Status, to, s.RunID)
	}
	s.Status = to
	return nil
}

// RunState はオーケストレーターが唯一の書き手となる共有状態です。
// プレゼンテーション層はスナップショットとして読むだけです。
type RunState struct {
	RunID          string    `json:"run_id,omitempty"`
	Status         RunStatus `json:"status"`
	CreditsCharged int       `json:"credits_charged"`
	Title          string    `json:"title,omitempty"`
	StorySummary   string    `json:"story_summary,omitempty"`
	Panels         []Panel   `json:"panels"`
	Error          string    `json:"error,omitempty"`
}

// NewRunState は idle 状態の初期 RunState を返します。
func NewRunState() RunState {
	return RunState{Status: StatusIdle, Panels: []Panel{}}
}

// Clone は観測者に渡しても安全なディープコピーを返すのだ。
// 内部のパネルスライスを共有しないことで半端な更新が見えないようにするのだ。
func (s RunState) Clone() RunState {
	cloned := s
	cloned.Panels = make([]Panel, len(s.Panels))
	copy(cloned.Panels, s.Panels)
	return cloned
}
