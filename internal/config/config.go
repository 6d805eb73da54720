/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"blockcanvas/internal/engine"
	"blockcanvas/internal/undo"
	"blockcanvas/internal/vector"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Undo          UndoConfig    `yaml:"undo"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	// DefinitionsDir holds the block definition documents for the palette.
	DefinitionsDir string `yaml:"definitions_dir"`
	// CatalogPath is the SQLite file indexing loaded definitions. Empty disables it.
	CatalogPath string `yaml:"catalog_path"`
	// WatchDefinitions adds new definition files to the palette while running.
	WatchDefinitions bool `yaml:"watch_definitions"`
}

// CanvasConfig is the block geometry in canvas units.
type CanvasConfig struct {
	BlockWidth     float32 `yaml:"block_width"`
	BlockHeight    float32 `yaml:"block_height"`
	SnapTolerance  float32 `yaml:"snap_tolerance"`
	PaletteWidth   float32 `yaml:"palette_width"`
	PaletteX       float32 `yaml:"palette_x"`
	PaletteY       float32 `yaml:"palette_y"`
	PaletteSpacing float32 `yaml:"palette_spacing"`
	CanvasX        float32 `yaml:"canvas_x"`
	CanvasY        float32 `yaml:"canvas_y"`
	SpawnSpacing   float32 `yaml:"spawn_spacing"`
	Strict         bool    `yaml:"strict"`
}

type UndoConfig struct {
	MaxBytes   int `yaml:"max_bytes"`
	MaxDepth   int `yaml:"max_depth"`
	CoalesceMs int `yaml:"coalesce_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	ec := engine.DefaultConfig()
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{DefinitionsDir: "blocks"},
		Canvas: CanvasConfig{
			BlockWidth:     ec.Footprint.W,
			BlockHeight:    ec.Footprint.H,
			SnapTolerance:  ec.SnapTolerance,
			PaletteWidth:   ec.PaletteWidth,
			PaletteX:       ec.PaletteOrigin.X,
			PaletteY:       ec.PaletteOrigin.Y,
			PaletteSpacing: ec.PaletteSpacing,
			CanvasX:        ec.CanvasOrigin.X,
			CanvasY:        ec.CanvasOrigin.Y,
			SpawnSpacing:   ec.SpawnSpacing,
		},
		Undo:    UndoConfig{MaxBytes: 16 * 1024 * 1024, MaxDepth: 200, CoalesceMs: 400},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Engine converts the canvas section into engine geometry.
func (c CanvasConfig) Engine() engine.Config {
	return engine.Config{
		Footprint:      vector.Size{W: c.BlockWidth, H: c.BlockHeight},
		SnapTolerance:  c.SnapTolerance,
		PaletteWidth:   c.PaletteWidth,
		PaletteOrigin:  vector.P(c.PaletteX, c.PaletteY),
		PaletteSpacing: c.PaletteSpacing,
		CanvasOrigin:   vector.P(c.CanvasX, c.CanvasY),
		SpawnSpacing:   c.SpawnSpacing,
		Strict:         c.Strict,
	}
}

// History converts the undo section into history caps.
func (u UndoConfig) History() undo.Config {
	return undo.Config{
		MaxBytes:    u.MaxBytes,
		MaxDepth:    u.MaxDepth,
		MinInterval: time.Duration(u.CoalesceMs) * time.Millisecond,
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "BC_CONFIG"
	EnvDefinitionsDir = "BC_DEFINITIONS_DIR"
	EnvCatalogPath    = "BC_CATALOG"
	EnvSnapTolerance  = "BC_SNAP_TOLERANCE"
	EnvStrict         = "BC_STRICT"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "BC_LOG_LEVEL"
	EnvLogFormat = "BC_LOG_FORMAT"
	EnvLogSource = "BC_LOG_SOURCE"
	EnvLogFile   = "BC_LOG_FILE"
)

// ConfigPath returns the per-user config file path. BC_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "BlockCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "BlockCanvas")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "blockcanvas")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. A malformed file is reported but the defaults plus
// overrides are still returned.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	var fileErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			fileErr = err
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, fileErr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.General.DefinitionsDir); s != "" {
		dst.General.DefinitionsDir = s
	}
	if s := strings.TrimSpace(src.General.CatalogPath); s != "" {
		dst.General.CatalogPath = s
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.WatchDefinitions = src.General.WatchDefinitions
	dst.Canvas.Strict = src.Canvas.Strict

	mergeFloat(&dst.Canvas.BlockWidth, src.Canvas.BlockWidth)
	mergeFloat(&dst.Canvas.BlockHeight, src.Canvas.BlockHeight)
	mergeFloat(&dst.Canvas.SnapTolerance, src.Canvas.SnapTolerance)
	mergeFloat(&dst.Canvas.PaletteWidth, src.Canvas.PaletteWidth)
	mergeFloat(&dst.Canvas.PaletteX, src.Canvas.PaletteX)
	mergeFloat(&dst.Canvas.PaletteY, src.Canvas.PaletteY)
	mergeFloat(&dst.Canvas.PaletteSpacing, src.Canvas.PaletteSpacing)
	mergeFloat(&dst.Canvas.CanvasX, src.Canvas.CanvasX)
	mergeFloat(&dst.Canvas.CanvasY, src.Canvas.CanvasY)
	mergeFloat(&dst.Canvas.SpawnSpacing, src.Canvas.SpawnSpacing)

	if src.Undo.MaxBytes != 0 {
		dst.Undo.MaxBytes = src.Undo.MaxBytes
	}
	if src.Undo.MaxDepth != 0 {
		dst.Undo.MaxDepth = src.Undo.MaxDepth
	}
	if src.Undo.CoalesceMs != 0 {
		dst.Undo.CoalesceMs = src.Undo.CoalesceMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

// mergeFloat keeps dst when the file leaves a value unset (zero).
func mergeFloat(dst *float32, src float32) {
	if src != 0 {
		*dst = src
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDefinitionsDir)); v != "" {
		cfg.General.DefinitionsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogPath)); v != "" {
		cfg.General.CatalogPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapTolerance)); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f > 0 {
			cfg.Canvas.SnapTolerance = float32(f)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStrict)); v != "" {
		cfg.Canvas.Strict = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"general.definitions_dir": EnvDefinitionsDir,
		"general.catalog_path":    EnvCatalogPath,
		"canvas.snap_tolerance":   EnvSnapTolerance,
		"canvas.strict":           EnvStrict,
		"logging.level":           EnvLogLevel,
		"logging.format":          EnvLogFormat,
		"logging.source":          EnvLogSource,
		"logging.file":            EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
