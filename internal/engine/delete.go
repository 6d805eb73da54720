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
	"slices"
)

// Delete removes the block at i together with its whole subtree and
// renumbers every surviving reference. It returns the removed indices in
// ascending order, as they were before the removal.
func (e *Engine) Delete(i int) []int {
	if e.arena.At(i).Parent != NoParent {
		e.detach(i)
	}
	removed := e.collect(i)
	slices.Sort(removed)
	for k := len(removed) - 1; k >= 0; k-- {
		e.arena.Remove(removed[k])
	}
	e.renumber(removed)
	e.log.Debug("subtree deleted", slog.Int("index", i), slog.Int("removed", len(removed)), slog.Int("remaining", e.arena.Len()))
	return removed
}

// renumber shifts every stored index past the removed ones. removed must be
// sorted ascending. A reference to a removed record is dropped.
func (e *Engine) renumber(removed []int) {
	for idx := 0; idx < e.arena.Len(); idx++ {
		b := e.arena.At(idx)
		if b.Parent != NoParent {
			n, gone := slices.BinarySearch(removed, b.Parent)
			if gone {
				e.violation(&InvariantError{Op: "renumber", Index: idx, Err: fmt.Errorf("parent %d was removed: %w", b.Parent, ErrBrokenLink)})
				b.Parent = NoParent
			} else {
				b.Parent -= n
			}
		}
		kept := b.Children[:0]
		for _, c := range b.Children {
			n, gone := slices.BinarySearch(removed, c)
			if gone {
				e.violation(&InvariantError{Op: "renumber", Index: idx, Err: fmt.Errorf("child %d was removed: %w", c, ErrBrokenLink)})
				continue
			}
			kept = append(kept, c-n)
		}
		b.Children = kept
	}
}
