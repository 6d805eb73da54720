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
	"errors"
	"fmt"
)

// Validate checks the structural invariants of the arena: every reference
// is in range, Parent and Children are mutual inverses without duplicates,
// the attachment relation is a forest, and palette records are neither
// attached nor parents.
func (e *Engine) Validate() error {
	return e.validateBlocks(e.arena.blocks)
}

func (e *Engine) validateBlocks(blocks []Block) error {
	var errs []error
	valid := func(i int) bool { return i >= 0 && i < len(blocks) }

	for i := range blocks {
		b := &blocks[i]
		if e.cfg.PaletteWidth > 0 && b.Pos.X < e.cfg.PaletteWidth && (b.Parent != NoParent || len(b.Children) > 0) {
			errs = append(errs, &InvariantError{Op: "validate", Index: i, Err: fmt.Errorf("parent %d, children %v: %w", b.Parent, b.Children, ErrPaletteLinked)})
		}
		if b.Parent != NoParent {
			switch {
			case !valid(b.Parent):
				errs = append(errs, &InvariantError{Op: "validate", Index: i, Err: fmt.Errorf("parent %d: %w", b.Parent, ErrIndexOutOfRange)})
			case !contains(blocks[b.Parent].Children, i):
				errs = append(errs, &InvariantError{Op: "validate", Index: i, Err: fmt.Errorf("not listed by parent %d: %w", b.Parent, ErrBrokenLink)})
			}
		}
		seen := make(map[int]bool, len(b.Children))
		for _, c := range b.Children {
			switch {
			case !valid(c):
				errs = append(errs, &InvariantError{Op: "validate", Index: i, Err: fmt.Errorf("child %d: %w", c, ErrIndexOutOfRange)})
			case seen[c]:
				errs = append(errs, &InvariantError{Op: "validate", Index: i, Err: fmt.Errorf("child %d listed twice: %w", c, ErrBrokenLink)})
			case blocks[c].Parent != i:
				errs = append(errs, &InvariantError{Op: "validate", Index: i, Err: fmt.Errorf("child %d has parent %d: %w", c, blocks[c].Parent, ErrBrokenLink)})
			}
			seen[c] = true
		}
	}

	// Walk up from every block; a forest reaches a root within len(blocks) steps.
	for i := range blocks {
		p := i
		for steps := 0; p != NoParent && valid(p); steps++ {
			if steps > len(blocks) {
				errs = append(errs, &InvariantError{Op: "validate", Index: i, Err: ErrCycle})
				break
			}
			p = blocks[p].Parent
		}
	}
	return errors.Join(errs...)
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
