package media

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wattok061-tech/cinecomic/pkg/domain"
)

type stubProbe struct {
	duration float64
	err      error
	calls    int
}

func (s *stubProbe) Probe(_ context.Context, _ string) (float64, error) {
	s.calls++
	return s.duration, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractYouTubeID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{"watch形式", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"短縮URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed形式", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"クエリ付き", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=30s", "dQw4w9WgXcQ", true},
		{"v形式", "https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"IDが短い", "https://youtu.be/short", "", false},
		{"無関係なURL", "https://example.com/video.mp4", "", false},
		{"空文字", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractYouTubeID(tt.url)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("ExtractYouTubeID(%q) = (%q, %v), want (%q, %v)", tt.url, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestAdapterFromYouTubeURL(t *testing.T) {
	a := NewAdapter(&stubProbe{}, discardLogger())

	in, err := a.FromYouTubeURL("https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("有効なURLでエラーが返った: %v", err)
	}
	if in.Payload.Kind != domain.PayloadURL {
		t.Errorf("Kind: got %v", in.Payload.Kind)
	}
	if in.DurationSeconds != RemoteDurationSeconds {
		t.Errorf("DurationSeconds: got %v, want %v", in.DurationSeconds, RemoteDurationSeconds)
	}
	if in.Title != "REMOTE_TARGET_DQW4W9" {
		t.Errorf("Title: got %q", in.Title)
	}
	if !strings.Contains(in.ThumbnailURL, "dQw4w9WgXcQ") {
		t.Errorf("ThumbnailURL にビデオIDが含まれない: %q", in.ThumbnailURL)
	}

	if _, err := a.FromYouTubeURL("https://example.com/clip"); err == nil {
		t.Error("認識できないURLはエラーになるべき")
	}
}

func TestAdapterFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	probe := &stubProbe{duration: 25.0}
	a := NewAdapter(probe, discardLogger())

	in, err := a.FromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("FromFile がエラーを返した: %v", err)
	}
	if in.Payload.Kind != domain.PayloadFile {
		t.Errorf("Kind: got %v", in.Payload.Kind)
	}
	if string(in.Payload.Data) != "fake video bytes" {
		t.Errorf("Data が読み込まれていない")
	}
	if !strings.HasPrefix(in.Payload.MimeType, "video/mp4") {
		t.Errorf("MimeType: got %q", in.Payload.MimeType)
	}
	if in.DurationSeconds != 25.0 {
		t.Errorf("DurationSeconds: got %v", in.DurationSeconds)
	}
	if probe.calls != 1 {
		t.Errorf("プローブ呼び出し回数: got %d", probe.calls)
	}

	t.Run("存在しないファイル", func(t *testing.T) {
		if _, err := a.FromFile(context.Background(), filepath.Join(dir, "missing.mp4")); err == nil {
			t.Error("読めないファイルはエラーになるべき")
		}
	})

	t.Run("空ファイル", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.mp4")
		if err := os.WriteFile(empty, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := a.FromFile(context.Background(), empty); err == nil {
			t.Error("空ファイルはエラーになるべき")
		}
	})
}
