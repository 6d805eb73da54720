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
	"log/slog"
	"slices"

	"blockcanvas/internal/vector"
)

// Snap attaches the block at i beneath the first block, in arena order,
// whose child anchor lies within the snap tolerance of i's position. On a
// match the block is moved exactly onto the anchor and appended to the
// parent's children. It returns the parent index, or NoParent and false.
//
// Blocks in i's own subtree are never candidates. An attached block keeps
// its parent while it is within tolerance of either its stacked slot (the
// anchor moved down one footprint per earlier sibling) or the anchor itself,
// where a fresh snap places it.
func (e *Engine) Snap(i int) (int, bool) {
	return e.snap(i, nil)
}

func (e *Engine) snap(i int, accept func(j int) bool) (int, bool) {
	b := e.arena.At(i)
	pos := b.Pos
	tol := e.cfg.SnapTolerance

	if p := b.Parent; p != NoParent && e.arena.Valid(p) {
		if k := slices.Index(e.arena.At(p).Children, i); k >= 0 {
			base := e.anchor(p)
			for _, target := range []vector.Pt{base.Add(vector.P(0, float32(k)*e.cfg.Footprint.H)), base} {
				if pos.Near(target, tol) {
					b.Pos = target
					return p, true
				}
			}
		}
	}

	own := make([]bool, e.arena.Len())
	for _, d := range e.collect(i) {
		own[d] = true
	}
	for j := 0; j < e.arena.Len(); j++ {
		if own[j] || (accept != nil && !accept(j)) {
			continue
		}
		target := e.anchor(j)
		if !pos.Near(target, tol) {
			continue
		}
		if e.arena.At(i).Parent != NoParent {
			e.detach(i)
		}
		b = e.arena.At(i)
		b.Pos = target
		b.Parent = j
		pb := e.arena.At(j)
		pb.Children = append(pb.Children, i)
		e.log.Debug("block attached", slog.Int("index", i), slog.Int("parent", j))
		return j, true
	}
	return NoParent, false
}
