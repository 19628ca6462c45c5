package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type EditorOptions struct {
	FontFamily string `toml:"font-family"`
	FontSize   int    `toml:"font-size"`
}

type Theme struct {
	Theme                 string `toml:"theme"`
	Foreground            string `toml:"foreground"`
	Background            string `toml:"background"`
	CodeForeground        string `toml:"code-foreground"`
	CodeBackground        string `toml:"code-background"`
	LinkForeground        string `toml:"link-foreground"`
	BlockquoteForeground  string `toml:"blockquote-foreground"`
	TableBorderForeground string `toml:"table-border-foreground"`
	SidebarForeground     string `toml:"sidebar-foreground"`
	SidebarBackground     string `toml:"sidebar-background"`
}

// SyncOptions tune the document bridge and boundary navigation.
type SyncOptions struct {
	FormatOnSave      bool `toml:"format-on-save"`
	FlagGraceMS       int  `toml:"flag-grace-ms"`
	BoundaryTolerance int  `toml:"boundary-tolerance"`
	PollIntervalMS    int  `toml:"poll-interval-ms"`
}

type Config struct {
	Editor EditorOptions `toml:"editor"`
	Theme  Theme         `toml:"theme"`
	Sync   SyncOptions   `toml:"sync"`
}

func Default() Config {
	return Config{
		Editor: EditorOptions{
			FontFamily: "",
			FontSize:   14,
		},
		Theme: Theme{
			Theme:                 "",
			Foreground:            "#B3B1AD",
			Background:            "#0A0E14",
			CodeForeground:        "#BAE67E",
			CodeBackground:        "#0F1419",
			LinkForeground:        "#59C2FF",
			BlockquoteForeground:  "#5C6773",
			TableBorderForeground: "#3E4B59",
			SidebarForeground:     "#B3B1AD",
			SidebarBackground:     "#0A0E14",
		},
		Sync: SyncOptions{
			FormatOnSave:      false,
			FlagGraceMS:       300,
			BoundaryTolerance: 2,
			PollIntervalMS:    1000,
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	if _, err := toml.Decode(string(data), &userCfg); err != nil {
		return cfg, err
	}

	if userCfg.Editor.FontFamily != "" {
		cfg.Editor.FontFamily = userCfg.Editor.FontFamily
	}
	if userCfg.Editor.FontSize > 0 {
		cfg.Editor.FontSize = userCfg.Editor.FontSize
	}
	if userCfg.Theme.Theme != "" {
		cfg.Theme.Theme = userCfg.Theme.Theme
	}
	if cfg.Theme.Theme != "" {
		theme, err := LoadTheme(cfg.Theme.Theme)
		if err != nil {
			return cfg, err
		}
		mergeTheme(&cfg.Theme, theme)
	}
	mergeTheme(&cfg.Theme, userCfg.Theme)
	if userCfg.Sync.FormatOnSave {
		cfg.Sync.FormatOnSave = userCfg.Sync.FormatOnSave
	}
	if userCfg.Sync.FlagGraceMS > 0 {
		cfg.Sync.FlagGraceMS = userCfg.Sync.FlagGraceMS
	}
	if userCfg.Sync.BoundaryTolerance > 0 {
		cfg.Sync.BoundaryTolerance = userCfg.Sync.BoundaryTolerance
	}
	if userCfg.Sync.PollIntervalMS > 0 {
		cfg.Sync.PollIntervalMS = userCfg.Sync.PollIntervalMS
	}

	return cfg, nil
}

func mergeTheme(dst *Theme, src Theme) {
	if src.Foreground != "" {
		dst.Foreground = src.Foreground
	}
	if src.Background != "" {
		dst.Background = src.Background
	}
	if src.CodeForeground != "" {
		dst.CodeForeground = src.CodeForeground
	}
	if src.CodeBackground != "" {
		dst.CodeBackground = src.CodeBackground
	}
	if src.LinkForeground != "" {
		dst.LinkForeground = src.LinkForeground
	}
	if src.BlockquoteForeground != "" {
		dst.BlockquoteForeground = src.BlockquoteForeground
	}
	if src.TableBorderForeground != "" {
		dst.TableBorderForeground = src.TableBorderForeground
	}
	if src.SidebarForeground != "" {
		dst.SidebarForeground = src.SidebarForeground
	}
	if src.SidebarBackground != "" {
		dst.SidebarBackground = src.SidebarBackground
	}
}

// Colors flattens the theme into the key/value form carried by the
// themeChanged message.
func (t Theme) Colors() map[string]string {
	return map[string]string{
		"foreground":              t.Foreground,
		"background":              t.Background,
		"code-foreground":         t.CodeForeground,
		"code-background":         t.CodeBackground,
		"link-foreground":         t.LinkForeground,
		"blockquote-foreground":   t.BlockquoteForeground,
		"table-border-foreground": t.TableBorderForeground,
		"sidebar-foreground":      t.SidebarForeground,
		"sidebar-background":      t.SidebarBackground,
	}
}

func ThemePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "theme", name+".toml"), nil
}

func LoadTheme(name string) (Theme, error) {
	path, err := ThemePath(name)
	if err != nil {
		return Theme{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var t Theme
	if _, err := toml.Decode(string(data), &t); err == nil {
		return t, nil
	}
	var wrap struct {
		Theme Theme `toml:"theme"`
	}
	if _, err := toml.Decode(string(data), &wrap); err != nil {
		return Theme{}, err
	}
	return wrap.Theme, nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("QMARK_CONFIG_HOME"); v != "" {
		return filepath.Join(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qmark"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qmark"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
