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
	"maps"
	"slices"

	"blockcanvas/internal/vector"
)

// NoParent marks a root block in Block.Parent.
const NoParent = -1

// InputSlot is a named text input declared by a block definition.
type InputSlot struct {
	Name string `json:"name"`
}

// Block is one block on the canvas, either a palette template or a spawned copy.
// Parent and Children are indices into the owning Arena; they are only
// meaningful together with it and are renumbered by Engine.Delete.
type Block struct {
	Kind        string            `json:"kind"`
	Label       string            `json:"label,omitempty"`
	Colour      *string           `json:"colour,omitempty"`
	Pos         vector.Pt         `json:"pos"`
	ChildOffset *vector.Pt        `json:"childOffset,omitempty"`
	Inputs      []InputSlot       `json:"inputs,omitempty"`
	Values      map[string]string `json:"values,omitempty"`
	Parent      int               `json:"parent"`
	Children    []int             `json:"children,omitempty"`
	// Instance identifies this record in logs and UI bindings. It is never
	// used as a cross-reference.
	Instance string `json:"instance"`
}

// DisplayLabel returns the text shown on the block.
func (b *Block) DisplayLabel() string {
	if b.Label != "" {
		return b.Label
	}
	return b.Kind
}

// Attached reports whether the block has a parent.
func (b *Block) Attached() bool { return b.Parent != NoParent }

// Offset returns the child anchor offset, zero when the definition has none.
func (b *Block) Offset() vector.Pt {
	if b.ChildOffset == nil {
		return vector.Pt{}
	}
	return *b.ChildOffset
}

func (b *Block) clone() Block {
	c := *b
	c.Colour = cloneString(b.Colour)
	if b.ChildOffset != nil {
		off := *b.ChildOffset
		c.ChildOffset = &off
	}
	c.Inputs = slices.Clone(b.Inputs)
	c.Values = maps.Clone(b.Values)
	c.Children = slices.Clone(b.Children)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func emptyValues(slots []InputSlot) map[string]string {
	values := make(map[string]string, len(slots))
	for _, s := range slots {
		values[s.Name] = ""
	}
	return values
}
