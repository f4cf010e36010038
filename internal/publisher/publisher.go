// Package publisher は完成したランの成果物を永続化するのだ。
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-text-format/pkg/md2htmlrunner"
	"github.com/shouni/go-utils/urlpath"

	"github.com/wattok061-tech/cinecomic/pkg/domain"
)

const (
	defaultPlotName   = "comic_plot.md"
	defaultScriptName = "comic_script.json"
	defaultImageDir   = "images"
	panelFileName     = "panel.png"
	coverFileName     = "cover.png"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string // ローカルパスまたは gs:// URI
}

// PublishResult はパブリッシュ処理で生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string
	HTMLPath     string
	ScriptPath   string
	ImagePaths   []string
}

// ComicPublisher は成果物の永続化とフォーマット変換を担います。
type ComicPublisher struct {
	writer     remoteio.OutputWriter
	htmlRunner md2htmlrunner.Runner
}

// NewComicPublisher はパブリッシャーを生成するのだ。htmlRunner が nil なら
// HTML変換はスキップされるのだ。
func NewComicPublisher(writer remoteio.OutputWriter, htmlRunner md2htmlrunner.Runner) *ComicPublisher {
	return &ComicPublisher{
		writer:     writer,
		htmlRunner: htmlRunner,
	}
}

// Publish は画像の保存、脚本JSONとMarkdownの書き出し、HTML変換を
// 一括して実行するのだ！panels と images は同じ順序（表紙が先頭）で、
// 失敗したコマの画像は nil として渡されるのだ。
func (p *ComicPublisher) Publish(ctx context.Context, script domain.NarrativeScript, panels []domain.Panel, images []*imagedom.ImageResponse, opts Options) (PublishResult, error) {
	result := PublishResult{}
	if len(panels) != len(images) {
		return result, fmt.Errorf("パネルと画像の数が一致しないのだ: %d vs %d", len(panels), len(images))
	}

	markdown, err := urlpath.ResolveOutputPath(opts.OutputDir, defaultPlotName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	result.MarkdownPath = markdown

	imgDir, err := urlpath.ResolveOutputPath(opts.OutputDir, defaultImageDir)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}

	savedPaths, relativePaths, err := p.saveImages(ctx, panels, images, imgDir)
	if err != nil {
		return result, fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	result.ImagePaths = savedPaths

	scriptPath, err := p.saveScript(ctx, script, opts.OutputDir)
	if err != nil {
		return result, err
	}
	result.ScriptPath = scriptPath

	content := buildMarkdown(script, panels, relativePaths)
	if err := p.writer.Write(ctx, markdown, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	if p.htmlRunner != nil {
		slog.Info("HTMLアルバムへ変換するのだ", "title", script.Title)
		htmlBuffer, err := p.htmlRunner.Run(ctx, script.Title, []byte(content))
		if err != nil {
			return result, fmt.Errorf("HTMLの変換に失敗しました: %w", err)
		}

		htmlPath := strings.TrimSuffix(markdown, filepath.Ext(markdown)) + ".html"
		if err := p.writer.Write(ctx, htmlPath, htmlBuffer, "text/html; charset=utf-8"); err != nil {
			return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
		}
		result.HTMLPath = htmlPath
	}

	return result, nil
}

// saveImages は画像をストレージへ保存し、フルパスとMarkdown用相対パスを返すのだ。
// 表紙は cover.png、本編は panel_N.png という名前になるのだ。
func (p *ComicPublisher) saveImages(ctx context.Context, panels []domain.Panel, images []*imagedom.ImageResponse, baseDir string) ([]string, map[int]string, error) {
	var paths []string
	relative := make(map[int]string)

	panelIndex := 0
	for i, img := range images {
		name := coverFileName
		if !panels[i].IsCover {
			panelIndex++
			name = indexedPanelName(panelIndex)
		}
		if img == nil || len(img.Data) == 0 {
			continue // 失敗したコマは飛ばすのだ
		}

		fullPath, err := urlpath.ResolveOutputPath(baseDir, name)
		if err != nil {
			return nil, nil, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(img.Data), "image/png"); err != nil {
			return nil, nil, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		paths = append(paths, fullPath)
		relative[i] = path.Join(defaultImageDir, name)
	}
	return paths, relative, nil
}

// saveScript は脚本を再レンダリング可能なJSONとして書き出すのだ。
func (p *ComicPublisher) saveScript(ctx context.Context, script domain.NarrativeScript, outputDir string) (string, error) {
	scriptPath, err := urlpath.ResolveOutputPath(outputDir, defaultScriptName)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}

	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return "", fmt.Errorf("脚本JSONのエンコードに失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, scriptPath, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return "", fmt.Errorf("脚本JSONの書き込みに失敗しました: %w", err)
	}
	return scriptPath, nil
}

// buildMarkdown は脚本とレンダリング済み画像からアルバムMarkdownを組み立てるのだ。
func buildMarkdown(script domain.NarrativeScript, panels []domain.Panel, imagePaths map[int]string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", script.Title))
	sb.WriteString(fmt.Sprintf("%s\n\n", script.StorySummary))

	panelNumber := 0
	for i, panel := range panels {
		heading := "Cover"
		if !panel.IsCover {
			panelNumber++
			heading = fmt.Sprintf("Panel %d", panelNumber)
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", heading))

		if img, ok := imagePaths[i]; ok {
			sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", heading, img))
		} else {
			sb.WriteString("*(この画像は生成に失敗したのだ)*\n\n")
		}
		sb.WriteString(fmt.Sprintf("> %s\n\n", panel.Dialogue))
		sb.WriteString(fmt.Sprintf("**SFX: %s**\n\n", panel.Onomatopoeia))
	}
	return sb.String()
}

// indexedPanelName は panel.png に連番を挿入するのだ。例: 1 -> panel_1.png
func indexedPanelName(index int) string {
	name, err := urlpath.GenerateIndexedPath(panelFileName, index)
	if err != nil {
		return fmt.Sprintf("panel_%d.png", index)
	}
	return name
}
