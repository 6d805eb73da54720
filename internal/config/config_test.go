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
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config path at an empty temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	for _, k := range []string{EnvDefinitionsDir, EnvCatalogPath, EnvSnapTolerance, EnvStrict, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.SnapTolerance != 12 || cfg.Canvas.BlockWidth != 140 || cfg.Canvas.BlockHeight != 90 {
		t.Fatalf("unexpected canvas defaults: %#v", cfg.Canvas)
	}
	ec := cfg.Canvas.Engine()
	if ec.PaletteWidth != 300 || ec.CanvasOrigin.X != 320 || ec.Strict {
		t.Fatalf("engine config mismatch: %#v", ec)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	p := isolate(t)
	cfg := Defaults()
	cfg.General.DefinitionsDir = "/srv/blocks"
	cfg.Canvas.SnapTolerance = 20
	cfg.Canvas.Strict = true
	cfg.Undo.CoalesceMs = 100
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.General.DefinitionsDir != "/srv/blocks" || got.Canvas.SnapTolerance != 20 || !got.Canvas.Strict {
		t.Fatalf("saved values not loaded: %#v", got)
	}
	if h := got.Undo.History(); h.MinInterval != 100*time.Millisecond {
		t.Fatalf("undo interval = %v", h.MinInterval)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("canvas:\n  block_height: 60\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.BlockHeight != 60 || cfg.Canvas.BlockWidth != 140 || cfg.Canvas.SnapTolerance != 12 {
		t.Fatalf("partial merge wrong: %#v", cfg.Canvas)
	}
}

func TestMalformedFileReported(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("canvas: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Canvas.SnapTolerance != 12 {
		t.Fatalf("defaults lost on parse error: %#v", cfg.Canvas)
	}
}

func TestEnvOverridesCanvas(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSnapTolerance, "30")
	t.Setenv(EnvStrict, "yes")
	t.Setenv(EnvDefinitionsDir, "/tmp/defs")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.SnapTolerance != 30 || !cfg.Canvas.Strict || cfg.General.DefinitionsDir != "/tmp/defs" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if env, ok := EnvOverrideFor("canvas.snap_tolerance"); !ok || env != EnvSnapTolerance {
		t.Fatalf("EnvOverrideFor = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("canvas.block_width"); ok {
		t.Fatalf("block_width has no override")
	}
}

func TestEnvIgnoresBadTolerance(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSnapTolerance, "-4")
	cfg, _ := Load()
	if cfg.Canvas.SnapTolerance != 12 {
		t.Fatalf("negative tolerance accepted: %v", cfg.Canvas.SnapTolerance)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/bc.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/bc.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/bc.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/bc.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}
