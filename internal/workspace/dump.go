/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"fmt"
	"io"
	"strings"

	"blockcanvas/internal/engine"
	"blockcanvas/internal/vector"
)

// Dump writes the palette and the canvas forest, one block per line,
// children indented under their parent.
func (w *Workspace) Dump(out io.Writer) error {
	blocks := w.eng.Blocks()
	var palette, roots []int
	for i, b := range blocks {
		switch {
		case w.eng.IsPalette(i):
			palette = append(palette, i)
		case b.Parent == engine.NoParent:
			roots = append(roots, i)
		}
	}
	var sb strings.Builder
	sb.WriteString("palette:\n")
	for _, i := range palette {
		fmt.Fprintf(&sb, "  [%d] %s\n", i, describe(blocks[i]))
	}
	sb.WriteString("canvas:\n")
	for _, r := range roots {
		// Pre-order with depth; the engine guarantees a forest.
		type item struct{ idx, depth int }
		stack := []item{{r, 1}}
		for len(stack) > 0 {
			it := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b := blocks[it.idx]
			fmt.Fprintf(&sb, "%s[%d] %s %s%s\n", strings.Repeat("  ", it.depth), it.idx, describe(b), pos(b.Pos), values(b))
			for k := len(b.Children) - 1; k >= 0; k-- {
				stack = append(stack, item{b.Children[k], it.depth + 1})
			}
		}
	}
	_, err := io.WriteString(out, sb.String())
	return err
}

func describe(b engine.Block) string {
	if b.Label != "" && b.Label != b.Kind {
		return fmt.Sprintf("%s %q", b.Kind, b.Label)
	}
	return b.Kind
}

func pos(p vector.Pt) string {
	return fmt.Sprintf("(%g,%g)", vector.FloatRound(p.X, 2), vector.FloatRound(p.Y, 2))
}

func values(b engine.Block) string {
	var sb strings.Builder
	for _, in := range b.Inputs {
		fmt.Fprintf(&sb, " %s=%q", in.Name, b.Values[in.Name])
	}
	return sb.String()
}
