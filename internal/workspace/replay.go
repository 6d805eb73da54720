/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	applog "blockcanvas/internal/log"
)

// Script is a recorded interaction session.
//
//	steps:
//	  - op: load
//	    dir: blocks
//	  - op: spawn
//	    kind: digital_write
//	  - op: drag
//	    block: 3
//	    dx: 0
//	    dy: -12
//	  - op: release
//	    block: 3
//	  - op: expect
//	    len: 4
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one scripted event. Block addresses an arena index; Kind, when
// set, addresses the palette block of that kind instead.
type Step struct {
	Op     string  `yaml:"op"`
	Block  int     `yaml:"block"`
	Kind   string  `yaml:"kind"`
	Dir    string  `yaml:"dir"`
	DX     float32 `yaml:"dx"`
	DY     float32 `yaml:"dy"`
	Name   string  `yaml:"name"`
	Text   string  `yaml:"text"`
	Len    *int    `yaml:"len"`
	Parent *int    `yaml:"parent"`
}

// ErrExpectation is returned when an expect step does not hold.
var ErrExpectation = errors.New("expectation failed")

// ParseScript decodes a YAML script.
func ParseScript(r io.Reader) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	return s, nil
}

// Replay runs the steps in order through the same calls the canvas uses.
// Relative load directories resolve against baseDir. Every step is followed
// by an invariant check; the first failure stops the replay.
func (w *Workspace) Replay(ctx context.Context, s Script, baseDir string) error {
	for n, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		sctx := applog.WithContext(ctx, slog.Int("step", n+1), slog.String("op", st.Op))
		if err := w.step(sctx, st, baseDir); err != nil {
			return fmt.Errorf("step %d (%s): %w", n+1, st.Op, err)
		}
		if err := w.eng.Validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", n+1, st.Op, err)
		}
		w.log.DebugContext(sctx, "step done", slog.Int("blocks", w.eng.Len()))
	}
	return nil
}

func (w *Workspace) step(ctx context.Context, st Step, baseDir string) error {
	target := st.Block
	if st.Kind != "" {
		i, ok := w.PaletteIndex(st.Kind)
		if !ok {
			return fmt.Errorf("no palette block of kind %q", st.Kind)
		}
		target = i
	}
	switch st.Op {
	case "load":
		dir := st.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		_, errs := w.LoadPalette(ctx, dir)
		for _, err := range errs {
			w.log.WarnContext(ctx, "definition skipped", slog.Any("err", err))
		}
		return nil
	case "spawn":
		_, err := w.Spawn(target)
		return err
	case "press":
		w.Press()
		return nil
	case "drag":
		return w.Drag(target, st.DX, st.DY)
	case "release":
		_, _, err := w.Release(target)
		return err
	case "delete":
		_, err := w.Delete(target)
		return err
	case "input":
		return w.SetInput(target, st.Name, st.Text)
	case "undo":
		return w.Undo()
	case "redo":
		return w.Redo()
	case "expect":
		return w.expect(st)
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
}

func (w *Workspace) expect(st Step) error {
	if st.Len != nil && w.eng.Len() != *st.Len {
		return fmt.Errorf("%w: have %d blocks, want %d", ErrExpectation, w.eng.Len(), *st.Len)
	}
	if st.Parent != nil {
		b, err := w.eng.Block(st.Block)
		if err != nil {
			return err
		}
		if b.Parent != *st.Parent {
			return fmt.Errorf("%w: block %d has parent %d, want %d", ErrExpectation, st.Block, b.Parent, *st.Parent)
		}
	}
	return nil
}
