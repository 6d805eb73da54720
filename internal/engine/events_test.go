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
	"math/rand/v2"
	"slices"
	"testing"

	"blockcanvas/internal/blockdef"
	"blockcanvas/internal/vector"
)

func paletteEngine(t *testing.T) (*Engine, int) {
	t.Helper()
	e := New(DefaultConfig())
	p := e.AddPalette(blockdef.Definition{ID: "step", Inputs: []blockdef.Input{{Name: "n"}}})
	return e, p
}

func TestEventsRejectUnknownIndex(t *testing.T) {
	e, _ := paletteEngine(t)
	if _, err := e.OnDragDelta(7, 1, 1); !errors.Is(err, ErrNoSuchBlock) {
		t.Fatalf("OnDragDelta err = %v", err)
	}
	if _, _, err := e.OnDragReleased(-1); !errors.Is(err, ErrNoSuchBlock) {
		t.Fatalf("OnDragReleased err = %v", err)
	}
	if _, err := e.OnPaletteClicked(3); !errors.Is(err, ErrNoSuchBlock) {
		t.Fatalf("OnPaletteClicked err = %v", err)
	}
	if _, err := e.OnSecondaryClicked(3); !errors.Is(err, ErrNoSuchBlock) {
		t.Fatalf("OnSecondaryClicked err = %v", err)
	}
	if err := e.OnInputTextChanged(3, "n", "x"); !errors.Is(err, ErrNoSuchBlock) {
		t.Fatalf("OnInputTextChanged err = %v", err)
	}
	if _, err := e.Block(3); !errors.Is(err, ErrNoSuchBlock) {
		t.Fatalf("Block err = %v", err)
	}
}

func TestPaletteBlocksAreFixed(t *testing.T) {
	e, p := paletteEngine(t)
	before := e.arena.At(p).Pos
	if _, err := e.OnDragDelta(p, 200, 40); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if got := e.arena.At(p).Pos; got != before {
		t.Fatalf("palette block moved to %+v", got)
	}
	removed, err := e.OnSecondaryClicked(p)
	if err != nil || removed != nil || e.Len() != 1 {
		t.Fatalf("palette block deleted: %v %v", removed, err)
	}
	if _, attached, _ := e.OnDragReleased(p); attached {
		t.Fatalf("palette block attached")
	}
}

func TestPaletteClickSpawnsOnlyFromPalette(t *testing.T) {
	e, p := paletteEngine(t)
	s, err := e.OnPaletteClicked(p)
	if err != nil || s != 1 {
		t.Fatalf("OnPaletteClicked = %d, %v", s, err)
	}
	if _, err := e.OnPaletteClicked(s); !errors.Is(err, ErrNotPalette) {
		t.Fatalf("click on canvas block err = %v", err)
	}
	if e.Len() != 2 {
		t.Fatalf("Len = %d", e.Len())
	}
}

func TestReleaseSkipsPaletteCandidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PaletteWidth = 100
	e := New(cfg)
	tmpl := root(e, "T", vector.P(95, 60)) // palette side
	b := root(e, "B", vector.P(101, 150))  // canvas side, within tolerance of T's anchor
	if _, attached, _ := e.OnDragReleased(b); attached {
		t.Fatalf("block attached to palette template %d", tmpl)
	}
	// The resolver itself has no palette notion.
	if p, ok := e.Snap(b); !ok || p != tmpl {
		t.Fatalf("Snap = (%d, %v)", p, ok)
	}
}

func TestDragDetachesAttachedBlock(t *testing.T) {
	e := New(DefaultConfig())
	a := root(e, "A", vector.P(400, 60))
	b := root(e, "B", vector.P(400, 150))
	c := root(e, "C", vector.P(400, 240))
	link(e, a, b)
	link(e, a, c)

	detached, err := e.OnDragDelta(b, 200, 0)
	if err != nil || !detached {
		t.Fatalf("OnDragDelta = %v, %v", detached, err)
	}
	if e.arena.At(b).Attached() {
		t.Fatalf("B still attached")
	}
	if got := e.arena.At(a).Children; !equalInts(got, []int{c}) {
		t.Fatalf("A.Children = %v", got)
	}
	// C closes the gap left by B.
	if got := e.arena.At(c).Pos; got != vector.P(400, 150) {
		t.Fatalf("C.Pos = %+v", got)
	}
	if got := e.arena.At(b).Pos; got != vector.P(600, 150) {
		t.Fatalf("B.Pos = %+v", got)
	}
	detached, _ = e.OnDragDelta(b, 1, 1)
	if detached {
		t.Fatalf("second delta reported a detach")
	}
	mustValid(t, e)
}

func TestDragStopsAtPaletteBoundary(t *testing.T) {
	e := New(DefaultConfig())
	a := root(e, "A", vector.P(400, 60))
	b := root(e, "B", vector.P(0, 0))
	link(e, a, b)
	e.Reposition(a)

	if _, err := e.OnDragDelta(a, -250, 0); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if got := e.arena.At(a).Pos; got != vector.P(300, 60) {
		t.Fatalf("A.Pos = %+v, want (300,60)", got)
	}
	if got := e.arena.At(b).Pos; got != vector.P(300, 150) {
		t.Fatalf("B.Pos = %+v, want (300,150)", got)
	}
	if e.IsPalette(a) || e.IsPalette(b) {
		t.Fatalf("dragged subtree entered the palette")
	}
	mustValid(t, e)

	// The subtree is still an ordinary canvas tree.
	if _, err := e.OnPaletteClicked(a); !errors.Is(err, ErrNotPalette) {
		t.Fatalf("OnPaletteClicked = %v", err)
	}
	if _, err := e.OnDragDelta(a, 40, 0); err != nil {
		t.Fatalf("drag back: %v", err)
	}
	if got := e.arena.At(b).Pos; got != vector.P(340, 150) {
		t.Fatalf("B.Pos after drag back = %+v", got)
	}
	if removed, _ := e.OnSecondaryClicked(a); !equalInts(removed, []int{a, b}) {
		t.Fatalf("delete removed %v", removed)
	}
}

func TestDragClampsChildWithNegativeOffset(t *testing.T) {
	e := New(DefaultConfig())
	a := root(e, "A", vector.P(500, 60))
	off := vector.P(-150, 0)
	e.arena.At(a).ChildOffset = &off
	b := root(e, "B", vector.P(0, 0))
	link(e, a, b)
	e.Reposition(a) // B at (350,150)

	if _, err := e.OnDragDelta(a, -100, 10); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if got := e.arena.At(b).Pos; got != vector.P(300, 160) {
		t.Fatalf("B.Pos = %+v, want (300,160)", got)
	}
	if got := e.arena.At(a).Pos; got != vector.P(450, 70) {
		t.Fatalf("A.Pos = %+v, want (450,70)", got)
	}
	mustValid(t, e)
}

func TestReleaseRejectsParentThatPushesSubtreeIntoPalette(t *testing.T) {
	e := New(DefaultConfig())
	a := root(e, "A", vector.P(440, 60)) // anchor (440,150)
	c := root(e, "C", vector.P(450, 150))
	off := vector.P(-150, 0)
	e.arena.At(c).ChildOffset = &off
	d := root(e, "D", vector.P(0, 0))
	link(e, c, d)
	e.Reposition(c) // D at (300,240)
	mustValid(t, e)

	// Snapping C onto A's anchor would put D at x=290.
	if p, attached, err := e.OnDragReleased(c); err != nil || attached {
		t.Fatalf("OnDragReleased = (%d, %v, %v)", p, attached, err)
	}
	if got := e.arena.At(d).Pos; got != vector.P(300, 240) {
		t.Fatalf("D moved to %+v", got)
	}
	mustValid(t, e)

	// Without the child the same drop attaches.
	e.arena.At(c).ChildOffset = nil
	e.Reposition(c)
	if p, attached, err := e.OnDragReleased(c); err != nil || !attached || p != a {
		t.Fatalf("OnDragReleased = (%d, %v, %v)", p, attached, err)
	}
	mustValid(t, e)
}

func TestDragThenReleaseAttaches(t *testing.T) {
	e, p := paletteEngine(t)
	a := e.Spawn(p) // (320,60)
	b := e.Spawn(p) // (320,160)
	var ptr Pointer
	ptr.Update(true)
	if _, err := e.OnDragDelta(b, 300, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := e.OnDragDelta(b, -295, -12); err != nil {
		t.Fatal(err)
	}
	if !ptr.Update(false) {
		t.Fatalf("release edge not seen")
	}
	parent, attached, err := e.OnDragReleased(b)
	if err != nil || !attached || parent != a {
		t.Fatalf("OnDragReleased = %d, %v, %v", parent, attached, err)
	}
	if got := e.arena.At(b).Pos; got != vector.P(320, 150) {
		t.Fatalf("B.Pos = %+v", got)
	}
	mustValid(t, e)
}

func TestInputTextChanged(t *testing.T) {
	e, p := paletteEngine(t)
	s := e.Spawn(p)
	if err := e.OnInputTextChanged(s, "n", "42"); err != nil {
		t.Fatalf("OnInputTextChanged: %v", err)
	}
	if got := e.arena.At(s).Values["n"]; got != "42" {
		t.Fatalf("value = %q", got)
	}
	if err := e.OnInputTextChanged(s, "missing", "1"); !errors.Is(err, ErrNoSuchInput) {
		t.Fatalf("unknown input err = %v", err)
	}
	if got := e.arena.At(p).Values["n"]; got != "" {
		t.Fatalf("template value changed to %q", got)
	}
}

func TestPointerReleaseEdge(t *testing.T) {
	var p Pointer
	steps := []struct {
		down, want bool
	}{
		{false, false},
		{true, false},
		{true, false},
		{false, true},
		{false, false},
		{true, false},
		{false, true},
	}
	for k, s := range steps {
		if got := p.Update(s.down); got != s.want {
			t.Fatalf("step %d: Update(%v) = %v, want %v", k, s.down, got, s.want)
		}
		if p.Down() != s.down {
			t.Fatalf("step %d: Down() = %v", k, p.Down())
		}
	}
}

func TestHitTestPrefersTopMost(t *testing.T) {
	e := New(DefaultConfig())
	root(e, "A", vector.P(400, 60))
	b := root(e, "B", vector.P(450, 100))
	if got := e.HitTest(vector.P(460, 110)); got != b {
		t.Fatalf("HitTest = %d, want %d", got, b)
	}
	if got := e.HitTest(vector.P(10, 10)); got != -1 {
		t.Fatalf("HitTest on empty canvas = %d", got)
	}
}

// randomForest builds n canvas roots and links each later block under a
// random earlier one with probability 2/3.
func randomForest(r *rand.Rand, n int) *Engine {
	e := New(DefaultConfig())
	for i := 0; i < n; i++ {
		e.arena.Append(Block{
			Kind:     "k",
			Pos:      vector.P(float32(400+i*7), float32(60+i*3)),
			Parent:   NoParent,
			Instance: string(rune('a' + i)),
		})
		if i > 0 && r.IntN(3) > 0 {
			link(e, r.IntN(i), i)
		}
	}
	return e
}

func TestDeleteKeepsIdentityOfSurvivors(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		e := randomForest(r, 2+r.IntN(14))
		before := e.Blocks()
		victim := r.IntN(len(before))
		subtree, _ := e.Descendants(victim)

		removed := e.Delete(victim)
		if !slices.IsSorted(removed) || len(removed) != len(subtree) {
			t.Fatalf("round %d: removed %v, subtree %v", round, removed, subtree)
		}
		if e.Len() != len(before)-len(removed) {
			t.Fatalf("round %d: Len = %d", round, e.Len())
		}
		mustValid(t, e)

		gone := map[string]bool{}
		for _, d := range removed {
			gone[before[d].Instance] = true
		}
		byID := map[string]Block{}
		for _, b := range before {
			byID[b.Instance] = b
		}
		for i := 0; i < e.Len(); i++ {
			now := e.arena.At(i)
			if gone[now.Instance] {
				t.Fatalf("round %d: removed block %s survived", round, now.Instance)
			}
			old := byID[now.Instance]
			switch {
			case old.Parent == NoParent || gone[before[old.Parent].Instance]:
				if now.Parent != NoParent {
					t.Fatalf("round %d: %s gained parent %d", round, now.Instance, now.Parent)
				}
			default:
				if e.arena.At(now.Parent).Instance != before[old.Parent].Instance {
					t.Fatalf("round %d: %s parent changed identity", round, now.Instance)
				}
			}
			var want []string
			for _, c := range old.Children {
				if !gone[before[c].Instance] {
					want = append(want, before[c].Instance)
				}
			}
			var got []string
			for _, c := range now.Children {
				got = append(got, e.arena.At(c).Instance)
			}
			if !slices.Equal(got, want) {
				t.Fatalf("round %d: %s children %v, want %v", round, now.Instance, got, want)
			}
		}
	}
}

func TestRandomEventSequencesKeepInvariants(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	e := New(DefaultConfig())
	for k := 0; k < 3; k++ {
		e.AddPalette(blockdef.Definition{ID: "p", Inputs: []blockdef.Input{{Name: "v"}}})
	}
	canvas := func() []int {
		var out []int
		for i := 0; i < e.Len(); i++ {
			if !e.IsPalette(i) {
				out = append(out, i)
			}
		}
		return out
	}

	for step := 0; step < 2000; step++ {
		blocks := canvas()
		switch op := r.IntN(10); {
		case op < 3 || len(blocks) == 0:
			if _, err := e.OnPaletteClicked(r.IntN(3)); err != nil {
				t.Fatalf("step %d: spawn: %v", step, err)
			}
		case op < 6:
			i := blocks[r.IntN(len(blocks))]
			// Aim at a canvas block's anchor with a little slack, or now
			// and then deep into the palette region.
			to := e.anchor(blocks[r.IntN(len(blocks))]).Add(vector.P(float32(r.IntN(9)-4), float32(r.IntN(9)-4)))
			if r.IntN(8) == 0 {
				to.X = float32(r.IntN(300))
			}
			from := e.arena.At(i).Pos
			if _, err := e.OnDragDelta(i, to.X-from.X, to.Y-from.Y); err != nil {
				t.Fatalf("step %d: drag: %v", step, err)
			}
			if _, _, err := e.OnDragReleased(i); err != nil {
				t.Fatalf("step %d: release: %v", step, err)
			}
		case op < 7:
			i := blocks[r.IntN(len(blocks))]
			first, _ := e.Snap(i)
			again, _ := e.Snap(i)
			if first != again {
				t.Fatalf("step %d: Snap not idempotent: %d then %d", step, first, again)
			}
		case op < 8:
			if _, err := e.OnSecondaryClicked(blocks[r.IntN(len(blocks))]); err != nil {
				t.Fatalf("step %d: delete: %v", step, err)
			}
		default:
			i := blocks[r.IntN(len(blocks))]
			if err := e.OnInputTextChanged(i, "v", "x"); err != nil {
				t.Fatalf("step %d: input: %v", step, err)
			}
		}
		if err := e.Validate(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		for i := 0; i < e.Len(); i++ {
			if b := e.arena.At(i); e.IsPalette(i) && (len(b.Children) > 0 || b.Parent != NoParent) {
				t.Fatalf("step %d: palette block %d is linked", step, i)
			}
		}
	}
}
