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

var (
	// ErrIndexOutOfRange is wrapped by InvariantError when an index does not address a record.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrCycle reports an attachment cycle found during traversal.
	ErrCycle = errors.New("attachment cycle")
	// ErrBrokenLink reports parent and children entries that are not mutual inverses.
	ErrBrokenLink = errors.New("parent/child link mismatch")
	// ErrPaletteLinked reports a palette record with a parent or children.
	ErrPaletteLinked = errors.New("palette block is linked")

	ErrNoSuchBlock = errors.New("no such block")
	ErrNotPalette  = errors.New("block is not a palette template")
	ErrNoSuchInput = errors.New("no such input")
)

// InvariantError describes a structural defect in the arena. These are
// programming errors, not user errors; in strict mode they panic.
type InvariantError struct {
	Op    string
	Index int
	Err   error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: block %d: %v", e.Op, e.Index, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }
