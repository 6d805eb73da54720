/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package workspace drives one block engine the way the canvas does: it
// loads the palette, forwards user events, records undo steps and keeps the
// definition catalog in sync. A Workspace is not safe for concurrent use;
// callers deliver events from a single goroutine.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blockcanvas/internal/blockdef"
	"blockcanvas/internal/engine"
	applog "blockcanvas/internal/log"
	"blockcanvas/internal/storage"
	"blockcanvas/internal/undo"
)

// ErrNothingToUndo is returned by Undo and Redo on an empty stack.
var ErrNothingToUndo = errors.New("nothing to undo")

// Options configures a Workspace. Catalog is optional.
type Options struct {
	Engine  engine.Config
	History undo.Config
	Catalog *storage.Catalog
}

type Workspace struct {
	eng     *engine.Engine
	hist    *undo.History
	cat     *storage.Catalog
	loaded  map[string]bool // definition paths already on the palette
	pointer engine.Pointer
	log     *slog.Logger
	now     func() time.Time
}

func New(opts Options) *Workspace {
	return &Workspace{
		eng:    engine.New(opts.Engine),
		hist:   undo.New(opts.History),
		cat:    opts.Catalog,
		loaded: make(map[string]bool),
		log:    applog.WithComponent("workspace"),
		now:    time.Now,
	}
}

// Engine exposes the engine for drawing and hit testing.
func (w *Workspace) Engine() *engine.Engine { return w.eng }

// Snapshot encodes the current block tree.
func (w *Workspace) Snapshot() ([]byte, error) { return w.eng.Snapshot() }

// LoadPalette adds every definition in dir that is not on the palette yet.
// Malformed files are logged and skipped. It returns the number of palette
// entries added and the per-file errors.
func (w *Workspace) LoadPalette(ctx context.Context, dir string) (int, []error) {
	defs, errs := blockdef.LoadDir(dir)
	added := 0
	for _, ld := range defs {
		if _, ok := w.AddDefinition(ctx, ld); ok {
			added++
		}
	}
	w.log.Info("palette loaded", slog.String("dir", dir), slog.Int("added", added), slog.Int("skipped", len(errs)))
	return added, errs
}

// LoadDefinitionFile loads a single file, typically reported by a directory
// watcher, and adds it to the palette if its path is new.
func (w *Workspace) LoadDefinitionFile(ctx context.Context, path string) (int, bool, error) {
	ld, err := blockdef.LoadFile(path)
	if err != nil {
		w.log.Warn("skip definition", slog.String("path", path), slog.Any("err", err))
		return -1, false, err
	}
	idx, ok := w.AddDefinition(ctx, ld)
	return idx, ok, nil
}

// AddDefinition appends ld to the palette unless its path is already
// there; the catalog is updated either way. Adding a palette entry resets
// the undo history, since older snapshots do not contain it.
func (w *Workspace) AddDefinition(ctx context.Context, ld blockdef.Loaded) (int, bool) {
	if w.cat != nil {
		if _, err := w.cat.Upsert(ctx, ld); err != nil {
			w.log.Warn("catalog update failed", slog.String("path", ld.Path), slog.Any("err", err))
		}
	}
	if ld.Path != "" && w.loaded[ld.Path] {
		return -1, false
	}
	w.loaded[ld.Path] = true
	idx := w.eng.AddPalette(ld.Def)
	w.hist.Clear()
	return idx, true
}

// record runs op and pushes the prior state as an undo step when op
// reports a change.
func (w *Workspace) record(label string, op func() (bool, error)) error {
	before, err := w.eng.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot before %s: %w", label, err)
	}
	changed, err := op()
	if err != nil {
		return err
	}
	if changed {
		w.hist.Push(undo.Snapshot{Label: label, Blob: before, TS: w.now()})
	}
	return nil
}

// Spawn copies palette block i onto the canvas.
func (w *Workspace) Spawn(i int) (int, error) {
	idx := -1
	err := w.record("spawn", func() (bool, error) {
		var err error
		idx, err = w.eng.OnPaletteClicked(i)
		return err == nil, err
	})
	return idx, err
}

// Press records the pointer going down; Move and Release follow.
func (w *Workspace) Press() { w.pointer.Update(true) }

// Drag moves block i by (dx, dy). Drags and the release that ends them
// form one undo step.
func (w *Workspace) Drag(i int, dx, dy float32) error {
	if !w.pointer.Down() {
		w.pointer.Update(true)
	}
	return w.record("move", func() (bool, error) {
		if _, err := w.eng.Block(i); err != nil {
			return false, err
		}
		moved := !w.eng.IsPalette(i) && (dx != 0 || dy != 0)
		detached, err := w.eng.OnDragDelta(i, dx, dy)
		return moved || detached, err
	})
}

// Release ends a drag of block i. Snap resolution runs only on the
// pointer's down-to-up edge; a second Release is a no-op.
func (w *Workspace) Release(i int) (int, bool, error) {
	if !w.pointer.Update(false) {
		return engine.NoParent, false, nil
	}
	parent, attached := engine.NoParent, false
	err := w.record("move", func() (bool, error) {
		var err error
		parent, attached, err = w.eng.OnDragReleased(i)
		return attached, err
	})
	if attached {
		w.log.Debug("block snapped", slog.Int("index", i), slog.Int("parent", parent))
	}
	return parent, attached, err
}

// Delete removes canvas block i and its subtree.
func (w *Workspace) Delete(i int) ([]int, error) {
	var removed []int
	err := w.record("delete", func() (bool, error) {
		var err error
		removed, err = w.eng.OnSecondaryClicked(i)
		return len(removed) > 0, err
	})
	return removed, err
}

// SetInput stores the text of input name on block i.
func (w *Workspace) SetInput(i int, name, text string) error {
	return w.record("input", func() (bool, error) {
		err := w.eng.OnInputTextChanged(i, name, text)
		return err == nil, err
	})
}

// Undo restores the state before the latest recorded step.
func (w *Workspace) Undo() error {
	cur, err := w.eng.Snapshot()
	if err != nil {
		return err
	}
	s, ok := w.hist.Undo(cur)
	if !ok {
		return ErrNothingToUndo
	}
	if err := w.eng.Restore(s.Blob); err != nil {
		return fmt.Errorf("undo %s: %w", s.Label, err)
	}
	w.log.Debug("undo", slog.String("step", s.Label))
	return nil
}

// Redo reapplies the latest undone step.
func (w *Workspace) Redo() error {
	cur, err := w.eng.Snapshot()
	if err != nil {
		return err
	}
	s, ok := w.hist.Redo(cur)
	if !ok {
		return ErrNothingToUndo
	}
	if err := w.eng.Restore(s.Blob); err != nil {
		return fmt.Errorf("redo %s: %w", s.Label, err)
	}
	w.log.Debug("redo", slog.String("step", s.Label))
	return nil
}

// PaletteIndex returns the palette block of the given kind.
func (w *Workspace) PaletteIndex(kind string) (int, bool) {
	for i := 0; i < w.eng.Len(); i++ {
		if b, _ := w.eng.Block(i); b.Kind == kind && w.eng.IsPalette(i) {
			return i, true
		}
	}
	return -1, false
}
