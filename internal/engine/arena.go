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

import "slices"

// Arena is the ordered, index-addressed store of blocks. Only the Engine
// restructures it; index bookkeeping after Remove is the caller's job.
type Arena struct {
	blocks []Block
}

func (a *Arena) Len() int { return len(a.blocks) }

// Valid reports whether i addresses a stored record.
func (a *Arena) Valid(i int) bool { return i >= 0 && i < len(a.blocks) }

// At returns the record at i for in-place mutation. The pointer is
// invalidated by the next Append or Remove.
func (a *Arena) At(i int) *Block {
	a.mustValid("at", i)
	return &a.blocks[i]
}

// Append stores b and returns its index.
func (a *Arena) Append(b Block) int {
	a.blocks = append(a.blocks, b)
	return len(a.blocks) - 1
}

// Remove deletes the record at i and shifts every later record down by one.
func (a *Arena) Remove(i int) {
	a.mustValid("remove", i)
	a.blocks = slices.Delete(a.blocks, i, i+1)
}

func (a *Arena) mustValid(op string, i int) {
	if !a.Valid(i) {
		panic(&InvariantError{Op: op, Index: i, Err: ErrIndexOutOfRange})
	}
}
