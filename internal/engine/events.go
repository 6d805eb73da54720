/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"
	"log/slog"

	"blockcanvas/internal/vector"
)

// OnDragDelta moves the canvas block at i by (dx, dy) and cascades the move
// to its subtree. Dragging an attached block detaches it first and restacks
// its former siblings. Palette blocks do not move, and the subtree is held
// back at the palette boundary so it never enters the palette region.
func (e *Engine) OnDragDelta(i int, dx, dy float32) (detached bool, err error) {
	if err := e.checkIndex(i); err != nil {
		return false, err
	}
	if e.IsPalette(i) {
		return false, nil
	}
	if p := e.arena.At(i).Parent; p != NoParent {
		e.detach(i)
		if e.arena.Valid(p) {
			e.Reposition(p)
		}
		detached = true
		e.log.Debug("block detached by drag", slog.Int("index", i), slog.Int("parent", p))
	}
	b := e.arena.At(i)
	b.Pos = b.Pos.Add(vector.P(dx, dy))
	e.Reposition(i)
	if w := e.cfg.PaletteWidth; w > 0 {
		if left := e.minX(i); left < w {
			b = e.arena.At(i)
			b.Pos.X += w - left
			e.Reposition(i)
		}
	}
	return detached, nil
}

// minX is the leftmost x of the subtree rooted at i.
func (e *Engine) minX(i int) float32 {
	ids := e.collect(i)
	left := e.arena.At(ids[0]).Pos.X
	for _, j := range ids[1:] {
		left = min(left, e.arena.At(j).Pos.X)
	}
	return left
}

// OnDragReleased runs snap resolution for the canvas block at i. Palette
// blocks are never chosen as parents, nor is a parent whose anchor would put
// part of the subtree into the palette region.
func (e *Engine) OnDragReleased(i int) (parent int, attached bool, err error) {
	if err := e.checkIndex(i); err != nil {
		return NoParent, false, err
	}
	if e.IsPalette(i) {
		return NoParent, false, nil
	}
	w := e.cfg.PaletteWidth
	// Offset of the subtree's left edge from i, constant under translation.
	rel := e.minX(i) - e.arena.At(i).Pos.X
	parent, attached = e.snap(i, func(j int) bool {
		if e.IsPalette(j) {
			return false
		}
		return w <= 0 || e.anchor(j).X+rel >= w
	})
	if attached {
		e.Reposition(i)
	}
	return parent, attached, nil
}

// OnPaletteClicked spawns a canvas copy of the palette block at i.
func (e *Engine) OnPaletteClicked(i int) (int, error) {
	if err := e.checkIndex(i); err != nil {
		return -1, err
	}
	if !e.IsPalette(i) {
		return -1, fmt.Errorf("%w: %d", ErrNotPalette, i)
	}
	return e.Spawn(i), nil
}

// OnSecondaryClicked deletes the canvas block at i and its subtree.
// Palette blocks cannot be deleted; the call returns no removed indices.
func (e *Engine) OnSecondaryClicked(i int) ([]int, error) {
	if err := e.checkIndex(i); err != nil {
		return nil, err
	}
	if e.IsPalette(i) {
		return nil, nil
	}
	return e.Delete(i), nil
}

// OnInputTextChanged stores text as the value of the named input of block i.
func (e *Engine) OnInputTextChanged(i int, name, text string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	b := e.arena.At(i)
	if _, ok := b.Values[name]; !ok {
		return fmt.Errorf("%w: %q on block %d", ErrNoSuchInput, name, i)
	}
	b.Values[name] = text
	return nil
}

// Pointer turns per-cycle button state into release edges.
type Pointer struct {
	down bool
}

// Update records the button state of the current cycle and reports whether
// the button went from down to up since the previous one.
func (p *Pointer) Update(down bool) (released bool) {
	released = p.down && !down
	p.down = down
	return released
}

func (p *Pointer) Down() bool { return p.down }
