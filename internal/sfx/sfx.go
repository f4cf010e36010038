// Package sfx はUI演出用のサウンドキューを管理するのだ。
// 再生はフロントエンドの仕事で、こちらはキュー名とアセットURLの対応、
// ミュート状態、プリロードだけを受け持つのだ。
package sfx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Cue は名前付きの効果音なのだ。
type Cue string

const (
	CueWipe   Cue = "WIPE"   // 場面転換のスウッシュ
	CuePunch  Cue = "PUNCH"  // 重い打撃音
	CueClick  Cue = "CLICK"  // UIクリック
	CueEnergy Cue = "ENERGY" // デジタルパルス
	CueHeroic Cue = "HEROIC" // ブラスヒット
)

var defaultCueURLs = map[Cue]string{
	CueWipe:   "https://cdn.pixabay.com/audio/2022/03/10/audio_c3523a4103.mp3",
	CuePunch:  "https://cdn.pixabay.com/audio/2022/03/24/audio_b28e217088.mp3",
	CueClick:  "https://cdn.pixabay.com/audio/2022/03/24/audio_3d1e188164.mp3",
	CueEnergy: "https://cdn.pixabay.com/audio/2021/08/04/audio_e652a2228e.mp3",
	CueHeroic: "https://cdn.pixabay.com/audio/2021/08/09/audio_73223f6631.mp3",
}

// Fetcher はアセットURLの取得能力なのだ。プリロードの到達性確認に使うのだ。
type Fetcher interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher は net/http でアセットを取得する Fetcher の実装なのだ。
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher は指定タイムアウトの HTTPFetcher を作るのだ。
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗したのだ: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("アセットの取得に失敗したのだ: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("アセットの取得に失敗したのだ: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Manager はサウンドキューの対応表とミュート状態を保持するのだ。
// グローバルには置かず、必要とする側へ注入して使うのだ。
type Manager struct {
	mu     sync.RWMutex
	cues   map[Cue]string
	muted  bool
	logger *slog.Logger
}

// NewManager は既定のキュー対応表を持つマネージャーを生成するのだ。
func NewManager(logger *slog.Logger) *Manager {
	cues := make(map[Cue]string, len(defaultCueURLs))
	for cue, url := range defaultCueURLs {
		cues[cue] = url
	}
	return &Manager{cues: cues, logger: logger}
}

// URL はキューに対応するアセットURLを返すのだ。
func (m *Manager) URL(cue Cue) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	url, ok := m.cues[cue]
	if !ok {
		return "", fmt.Errorf("未知のサウンドキューなのだ: %q", cue)
	}
	return url, nil
}

// Catalog はキュー名順に並べた全対応表を返すのだ。
func (m *Manager) Catalog() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	catalog := make(map[string]string, len(m.cues))
	for cue, url := range m.cues {
		catalog[string(cue)] = url
	}
	return catalog
}

// Cues は定義済みキュー名をソートして返すのだ。
func (m *Manager) Cues() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.cues))
	for cue := range m.cues {
		names = append(names, string(cue))
	}
	sort.Strings(names)
	return names
}

// SetMuted はミュート状態を切り替えるのだ。
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

// Muted は現在のミュート状態を返すのだ。
func (m *Manager) Muted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.muted
}

// Preload は全キューのアセットへ並行アクセスして到達性を確認するのだ。
// 1つでも失敗したら最初のエラーを返すのだ。
func (m *Manager) Preload(ctx context.Context, fetcher Fetcher) error {
	eg, egCtx := errgroup.WithContext(ctx)

	for cue, url := range m.Catalog() {
		eg.Go(func() error {
			rc, err := fetcher.Get(egCtx, url)
			if err != nil {
				return fmt.Errorf("サウンドキュー %s のプリロードに失敗したのだ: %w", cue, err)
			}
			defer rc.Close()

			if _, err := io.Copy(io.Discard, rc); err != nil {
				return fmt.Errorf("サウンドキュー %s の読み込みに失敗したのだ: %w", cue, err)
			}
			m.logger.Info("サウンドキューをプリロードしたのだ", "cue", cue)
			return nil
		})
	}
	return eg.Wait()
}
