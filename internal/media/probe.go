package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	probeCacheTTL     = 30 * time.Minute
	probeCacheCleanup = 1 * time.Hour
)

// FFProbe は ffprobe コマンドで動画の長さを測定する DurationProbe 実装なのだ。
// 同じパスへの測定結果はキャッシュするのだ。
type FFProbe struct {
	binary string
	cache  *cache.Cache
}

// NewFFProbe はプローブを生成するのだ。binary が空なら PATH 上の ffprobe を使うのだ。
func NewFFProbe(binary string) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{
		binary: binary,
		cache:  cache.New(probeCacheTTL, probeCacheCleanup),
	}
}

// Probe は動画の長さを秒単位で返すのだ。
func (p *FFProbe) Probe(ctx context.Context, path string) (float64, error) {
	if cached, found := p.cache.Get(path); found {
		return cached.(float64), nil
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe の実行に失敗したのだ: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe の出力をパースできないのだ (%q): %w", strings.TrimSpace(string(out)), err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("動画の長さが不正なのだ: %.2f", duration)
	}

	p.cache.Set(path, duration, cache.DefaultExpiration)
	return duration, nil
}
