/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	applog "textfit/internal/log"
	"textfit/internal/textlayout"
)

// AppConfig is the YAML configuration of the renderer.
// Precedence: Defaults, then the config file, then TEXTFIT_* environment
// variables. The result is validated against the embedded JSON schema.
// Relative paths are resolved against the directory of the config file.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Fonts         FontConfig    `yaml:"fonts"`
	Base          BaseConfig    `yaml:"base"`
	Box           BoxConfig     `yaml:"box"`
	Text          TextConfig    `yaml:"text"`
	Image         ImageConfig   `yaml:"image"`
	Output        OutputConfig  `yaml:"output"`
	Logging       LoggingConfig `yaml:"logging"`
}

type FontConfig struct {
	File           string   `yaml:"file"`
	EmojiFile      string   `yaml:"emoji_file,omitempty"`
	FallbackFamily string   `yaml:"fallback_family"`
	Dirs           []string `yaml:"dirs,omitempty"`
}

// BaseConfig selects the base image. A Mapping keyword found in the text
// switches the base image and is removed from the text.
type BaseConfig struct {
	Image      string     `yaml:"image"`
	Mapping    KeywordMap `yaml:"mapping"`
	Overlay    string     `yaml:"overlay"`
	UseOverlay bool       `yaml:"use_overlay"`
}

// Point is an (x, y) pixel position written as a two-element list.
type Point [2]int

// BoxConfig is the rectangle text and images are fitted into.
type BoxConfig struct {
	TopLeft     Point `yaml:"top_left"`
	BottomRight Point `yaml:"bottom_right"`
}

type TextConfig struct {
	Color         string  `yaml:"color"`
	Highlight     string  `yaml:"highlight"`
	Align         string  `yaml:"align"`
	VAlign        string  `yaml:"valign"`
	LineSpacing   float64 `yaml:"line_spacing"`
	MaxFontSize   int     `yaml:"max_font_size"`
	WrapAlgorithm string  `yaml:"wrap_algorithm"`
	EmojiRuns     bool    `yaml:"emoji_runs"`
}

type ImageConfig struct {
	Padding      int    `yaml:"padding"`
	AllowUpscale bool   `yaml:"allow_upscale"`
	KeepAlpha    bool   `yaml:"keep_alpha"`
	Align        string `yaml:"align"`
	VAlign       string `yaml:"valign"`
}

type OutputConfig struct {
	Format string `yaml:"format"` // png | pdf
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the stock dialog-box setup.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Fonts:         FontConfig{File: "font.ttf", FallbackFamily: "DejaVuSans"},
		Base: BaseConfig{
			Image:      filepath.Join("BaseImages", "base.png"),
			Mapping:    KeywordMap{{Keyword: "#普通#", Image: filepath.Join("BaseImages", "base.png")}},
			Overlay:    filepath.Join("BaseImages", "base_overlay.png"),
			UseOverlay: true,
		},
		Box: BoxConfig{TopLeft: Point{119, 450}, BottomRight: Point{398, 625}},
		Text: TextConfig{
			Color:         "#000000",
			Highlight:     "#800080",
			Align:         "center",
			VAlign:        "middle",
			LineSpacing:   0.15,
			MaxFontSize:   64,
			WrapAlgorithm: "greedy",
			EmojiRuns:     true,
		},
		Image:   ImageConfig{Padding: 12, AllowUpscale: true, KeepAlpha: true, Align: "center", VAlign: "middle"},
		Output:  OutputConfig{Format: "png"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvFontFile      = "TEXTFIT_FONT_FILE"
	EnvEmojiFontFile = "TEXTFIT_EMOJI_FONT_FILE"
	EnvBaseImage     = "TEXTFIT_BASE_IMAGE"
	EnvOverlay       = "TEXTFIT_OVERLAY"
	EnvUseOverlay    = "TEXTFIT_USE_OVERLAY"
	EnvWrapAlgorithm = "TEXTFIT_WRAP_ALGORITHM"
	EnvMaxFontSize   = "TEXTFIT_MAX_FONT_SIZE"
	EnvOutputFormat  = "TEXTFIT_OUTPUT_FORMAT"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "TEXTFIT_LOG_LEVEL"
	EnvLogFormat = "TEXTFIT_LOG_FORMAT"
	EnvLogSource = "TEXTFIT_LOG_SOURCE"
	EnvLogFile   = "TEXTFIT_LOG_FILE"
)

// ErrInvalid is wrapped by every schema or value validation failure.
var ErrInvalid = errors.New("invalid config")

//go:embed schema.json
var schemaJSON []byte

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "textfit")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "textfit")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "textfit")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "textfit")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config at path, or at ConfigPath when path is empty. A
// missing file at the default location is not an error. It returns the
// effective config and the path that was read (empty if none).
func Load(path string) (AppConfig, string, error) {
	l := applog.WithOperation(applog.WithComponent("config"), "load")
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return cfg, "", err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		l.Debug("no config file, using defaults", slog.String("path", path))
		path = ""
	case err != nil:
		return cfg, path, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := decodeInto(&cfg, data); err != nil {
			return cfg, path, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	}

	applyEnvOverrides(&cfg)
	if _, err := textlayout.ParseStrategy(cfg.Text.WrapAlgorithm); err != nil {
		l.Warn("unknown wrap algorithm, using greedy", slog.String("value", cfg.Text.WrapAlgorithm))
		cfg.Text.WrapAlgorithm = textlayout.StrategyGreedy.String()
	}
	if err := Validate(cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// decodeInto validates the raw document against the schema and decodes it
// on top of cfg, so keys missing from the file keep their current values.
func decodeInto(cfg *AppConfig, data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return nil
	}
	if err := validateDoc(doc); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Validate checks cfg against the schema and the value rules the schema
// cannot express.
func Validate(cfg AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if err := validateDoc(doc); err != nil {
		return err
	}
	if _, err := cfg.TextRegion(); err != nil {
		return fmt.Errorf("%w: box: %v", ErrInvalid, err)
	}
	return nil
}

func validateDoc(doc any) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg AppConfig) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *AppConfig) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Fonts.File = abs(c.Fonts.File)
	c.Fonts.EmojiFile = abs(c.Fonts.EmojiFile)
	for i, d := range c.Fonts.Dirs {
		c.Fonts.Dirs[i] = abs(d)
	}
	c.Base.Image = abs(c.Base.Image)
	c.Base.Overlay = abs(c.Base.Overlay)
	for i := range c.Base.Mapping {
		c.Base.Mapping[i].Image = abs(c.Base.Mapping[i].Image)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvFontFile)); v != "" {
		cfg.Fonts.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEmojiFontFile)); v != "" {
		cfg.Fonts.EmojiFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseImage)); v != "" {
		cfg.Base.Image = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOverlay)); v != "" {
		cfg.Base.Overlay = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUseOverlay)); v != "" {
		cfg.Base.UseOverlay = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvWrapAlgorithm)); v != "" {
		cfg.Text.WrapAlgorithm = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxFontSize)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Text.MaxFontSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputFormat)); v != "" {
		cfg.Output.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"fonts.file":          EnvFontFile,
	"fonts.emoji_file":    EnvEmojiFontFile,
	"base.image":          EnvBaseImage,
	"base.overlay":        EnvOverlay,
	"base.use_overlay":    EnvUseOverlay,
	"text.wrap_algorithm": EnvWrapAlgorithm,
	"text.max_font_size":  EnvMaxFontSize,
	"output.format":       EnvOutputFormat,
	"logging.level":       EnvLogLevel,
	"logging.format":      EnvLogFormat,
	"logging.source":      EnvLogSource,
	"logging.file":        EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
