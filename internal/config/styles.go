package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var stylesYAML []byte

// StyleInfo は画風カタログの1エントリです。Label はプロンプトへ渡される
// 正式な画風名で、ID は CLI / API 向けの短縮名です。
type StyleInfo struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
}

type styleCatalogFile struct {
	Styles []StyleInfo `yaml:"styles"`
}

// LoadStyleCatalog は埋め込みの styles.yaml をパースして返すのだ。
func LoadStyleCatalog() ([]StyleInfo, error) {
	var file styleCatalogFile
	if err := yaml.Unmarshal(stylesYAML, &file); err != nil {
		return nil, fmt.Errorf("画風カタログのパースに失敗したのだ: %w", err)
	}
	if len(file.Styles) == 0 {
		return nil, fmt.Errorf("画風カタログが空なのだ")
	}
	return file.Styles, nil
}
