/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blockcanvas/internal/config"
	"blockcanvas/internal/workspace"
)

const (
	ledDef   = `{"block":{"sections":[{"id":"digital_write","Shown_element":"Digital write","inputs":[{"name":"pin"}]}]}}`
	delayDef = `{"block":{"sections":[{"id":"delay"}]}}`
)

// execute runs the CLI with an isolated config and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	for _, k := range []string{config.EnvDefinitionsDir, config.EnvCatalogPath, config.EnvSnapTolerance, config.EnvStrict, config.EnvLogFormat, config.EnvLogSource, config.EnvLogFile} {
		t.Setenv(k, "")
	}
	t.Setenv(config.EnvLogLevel, "error")
	var out bytes.Buffer
	root := newApp(&out).root()
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func defsDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "blocks")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{"a_led.json": ledDef, "b_delay.json": delayDef, "c_bad.json": `{"block":`} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "blockcanvas ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := defsDir(t)
	out, err := execute(t, "validate", filepath.Join(dir, "a_led.json"), filepath.Join(dir, "c_bad.json"))
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "ok   ") || !strings.Contains(out, "(digital_write)") || !strings.Contains(out, "FAIL ") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPaletteThenSearch(t *testing.T) {
	dir := defsDir(t)
	db := filepath.Join(t.TempDir(), "catalog.db")

	out, err := execute(t, "--catalog", db, "palette", dir)
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	for _, want := range []string{"palette:", `[0] digital_write "Digital write"`, "[1] delay", "2 blocks from", "1 skipped"} {
		if !strings.Contains(out, want) {
			t.Fatalf("palette output lacks %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "--catalog", db, "search", "digi")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "digital_write") || strings.Contains(out, "delay") {
		t.Fatalf("unexpected search output:\n%s", out)
	}
}

func TestSearchNeedsCatalog(t *testing.T) {
	if _, err := execute(t, "search", "x"); err == nil {
		t.Fatal("expected error without a catalog")
	}
}

func TestReplayCommand(t *testing.T) {
	dir := defsDir(t)
	script := filepath.Join(filepath.Dir(dir), "session.yaml")
	body := `steps:
  - op: load
    dir: blocks
  - op: spawn
    kind: digital_write
  - op: spawn
    kind: delay
  - op: drag
    block: 3
    dx: 0
    dy: -10
  - op: release
    block: 3
  - op: expect
    block: 3
    parent: 2
`
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "replay", script)
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "\n    [3] delay (320,150)\n") {
		t.Fatalf("delay not attached below digital_write:\n%s", out)
	}
}

func TestReplayReportsFailedExpectation(t *testing.T) {
	dir := defsDir(t)
	script := filepath.Join(filepath.Dir(dir), "session.yaml")
	body := "steps:\n  - op: load\n    dir: blocks\n  - op: expect\n    len: 5\n"
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "replay", script)
	if !errors.Is(err, workspace.ErrExpectation) {
		t.Fatalf("expected ErrExpectation, got %v", err)
	}
}
