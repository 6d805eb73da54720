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

import "blockcanvas/internal/vector"

// Reposition moves every descendant of i so the subtree follows i. Children
// stack vertically below their parent's anchor in list order, and each child
// then places its own children the same way (depth-first, pre-order).
func (e *Engine) Reposition(i int) {
	h := e.cfg.Footprint.H
	seen := make([]bool, e.arena.Len())
	seen[i] = true
	stack := []int{i}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		base := e.anchor(p)
		var next []int
		for k, c := range e.arena.At(p).Children {
			if !e.arena.Valid(c) {
				e.violation(&InvariantError{Op: "reposition", Index: p, Err: ErrIndexOutOfRange})
				continue
			}
			if seen[c] {
				e.violation(&InvariantError{Op: "reposition", Index: c, Err: ErrCycle})
				continue
			}
			seen[c] = true
			e.arena.At(c).Pos = base.Add(vector.P(0, float32(k)*h))
			next = append(next, c)
		}
		for k := len(next) - 1; k >= 0; k-- {
			stack = append(stack, next[k])
		}
	}
}
