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

// Spawn copies the static fields of the block at src into a new canvas root
// and returns its index. The copy starts with empty inputs and no links,
// stacked below the previously spawned block.
func (e *Engine) Spawn(src int) int {
	s := e.arena.At(src)
	b := Block{
		Kind:     s.Kind,
		Label:    s.Label,
		Colour:   cloneString(s.Colour),
		Inputs:   slices.Clone(s.Inputs),
		Parent:   NoParent,
		Instance: e.newID(),
	}
	if s.ChildOffset != nil {
		off := *s.ChildOffset
		b.ChildOffset = &off
	}
	b.Values = emptyValues(b.Inputs)
	b.Pos = e.cfg.CanvasOrigin.Add(vector.P(0, float32(e.spawned)*e.cfg.SpawnSpacing))
	e.spawned++
	idx := e.arena.Append(b)
	e.log.Debug("block spawned", slog.Int("src", src), slog.Int("index", idx), slog.String("instance", b.Instance))
	return idx
}
