/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package engine maintains the tree of positioned blocks behind the canvas.
//
// All blocks live in one Arena and reference each other by index. The
// engine applies drags, snaps blocks beneath each other, cascades moves to
// descendants and deletes whole subtrees while keeping every index valid.
// It is single-threaded: callers deliver one event at a time.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"blockcanvas/internal/blockdef"
	applog "blockcanvas/internal/log"
	"blockcanvas/internal/vector"
)

// Config holds the canvas geometry the engine works with.
type Config struct {
	// Footprint is the size of every block.
	Footprint vector.Size
	// SnapTolerance is the per-axis distance below which a released block
	// attaches to a candidate parent.
	SnapTolerance float32
	// PaletteWidth is the x coordinate separating the palette from the
	// canvas. Zero disables the palette region.
	PaletteWidth   float32
	PaletteOrigin  vector.Pt
	PaletteSpacing float32
	CanvasOrigin   vector.Pt
	SpawnSpacing   float32
	// Strict panics on invariant violations instead of logging and repairing.
	Strict bool
}

// DefaultConfig returns the standard canvas layout.
func DefaultConfig() Config {
	return Config{
		Footprint:      vector.Size{W: 140, H: 90},
		SnapTolerance:  12,
		PaletteWidth:   300,
		PaletteOrigin:  vector.P(20, 60),
		PaletteSpacing: 100,
		CanvasOrigin:   vector.P(320, 60),
		SpawnSpacing:   100,
	}
}

// Engine owns the arena and implements every tree mutation.
type Engine struct {
	cfg     Config
	arena   Arena
	loaded  int // palette templates added so far
	spawned int // canvas copies spawned so far, never decremented
	log     *slog.Logger
	newID   func() string
}

// New creates an empty engine. Missing geometry falls back to DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Footprint.W <= 0 || cfg.Footprint.H <= 0 {
		cfg.Footprint = def.Footprint
	}
	if cfg.SnapTolerance <= 0 {
		cfg.SnapTolerance = def.SnapTolerance
	}
	if cfg.PaletteSpacing <= 0 {
		cfg.PaletteSpacing = cfg.Footprint.H + 10
	}
	if cfg.SpawnSpacing <= 0 {
		cfg.SpawnSpacing = cfg.Footprint.H + 10
	}
	return &Engine{cfg: cfg, log: applog.WithComponent("engine"), newID: uuid.NewString}
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Len() int { return e.arena.Len() }

// Block returns a copy of the record at i.
func (e *Engine) Block(i int) (Block, error) {
	if err := e.checkIndex(i); err != nil {
		return Block{}, err
	}
	return e.arena.At(i).clone(), nil
}

// Blocks returns a copy of all records in arena order, for drawing.
func (e *Engine) Blocks() []Block {
	out := make([]Block, e.arena.Len())
	for i := range out {
		out[i] = e.arena.At(i).clone()
	}
	return out
}

// IsPalette reports whether the block at i sits in the palette region.
func (e *Engine) IsPalette(i int) bool {
	return e.cfg.PaletteWidth > 0 && e.arena.At(i).Pos.X < e.cfg.PaletteWidth
}

// Rect returns the block's footprint on the canvas.
func (e *Engine) Rect(i int) vector.Rect {
	return vector.RectAt(e.arena.At(i).Pos, e.cfg.Footprint)
}

// HitTest returns the top-most block containing p, or -1. Later blocks are
// drawn above earlier ones.
func (e *Engine) HitTest(p vector.Pt) int {
	for i := e.arena.Len() - 1; i >= 0; i-- {
		if e.Rect(i).Contains(p) {
			return i
		}
	}
	return -1
}

// AddPalette appends a palette template built from def and returns its index.
func (e *Engine) AddPalette(def blockdef.Definition) int {
	b := Block{
		Kind:     def.ID,
		Label:    def.Label,
		Colour:   cloneString(def.Colour),
		Parent:   NoParent,
		Instance: e.newID(),
	}
	if def.ChildOffset != nil {
		off := vector.P(def.ChildOffset.X, def.ChildOffset.Y)
		b.ChildOffset = &off
	}
	b.Inputs = make([]InputSlot, 0, len(def.Inputs))
	for _, in := range def.Inputs {
		b.Inputs = append(b.Inputs, InputSlot{Name: in.Name})
	}
	b.Values = emptyValues(b.Inputs)
	b.Pos = e.cfg.PaletteOrigin.Add(vector.P(0, float32(e.loaded)*e.cfg.PaletteSpacing))
	e.loaded++
	idx := e.arena.Append(b)
	e.log.Debug("palette block added", slog.Int("index", idx), slog.String("kind", b.Kind))
	return idx
}

// anchor is where the first child of p is placed.
func (e *Engine) anchor(p int) vector.Pt {
	b := e.arena.At(p)
	return b.Pos.Add(b.Offset()).Add(vector.P(0, e.cfg.Footprint.H))
}

// detach unlinks i from its parent. The parent keeps its position.
func (e *Engine) detach(i int) {
	b := e.arena.At(i)
	p := b.Parent
	b.Parent = NoParent
	if !e.arena.Valid(p) {
		e.violation(&InvariantError{Op: "detach", Index: i, Err: fmt.Errorf("parent %d: %w", p, ErrIndexOutOfRange)})
		return
	}
	pb := e.arena.At(p)
	n := len(pb.Children)
	pb.Children = slices.DeleteFunc(pb.Children, func(c int) bool { return c == i })
	if len(pb.Children) == n {
		e.violation(&InvariantError{Op: "detach", Index: i, Err: fmt.Errorf("missing from children of %d: %w", p, ErrBrokenLink)})
	}
}

// collect returns root and all of its descendants in pre-order.
func (e *Engine) collect(root int) []int {
	seen := make([]bool, e.arena.Len())
	var out []int
	stack := []int{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !e.arena.Valid(n) {
			e.violation(&InvariantError{Op: "collect", Index: n, Err: ErrIndexOutOfRange})
			continue
		}
		if seen[n] {
			e.violation(&InvariantError{Op: "collect", Index: n, Err: ErrCycle})
			continue
		}
		seen[n] = true
		out = append(out, n)
		children := e.arena.At(n).Children
		for k := len(children) - 1; k >= 0; k-- {
			stack = append(stack, children[k])
		}
	}
	return out
}

// Descendants returns i and its whole subtree in pre-order.
func (e *Engine) Descendants(i int) ([]int, error) {
	if err := e.checkIndex(i); err != nil {
		return nil, err
	}
	return e.collect(i), nil
}

// Bounds returns the area covered by i and its subtree.
func (e *Engine) Bounds(i int) (vector.Rect, error) {
	ids, err := e.Descendants(i)
	if err != nil {
		return vector.Rect{}, err
	}
	r := e.Rect(ids[0])
	for _, j := range ids[1:] {
		r = r.Union(e.Rect(j))
	}
	return r, nil
}

func (e *Engine) checkIndex(i int) error {
	if !e.arena.Valid(i) {
		return fmt.Errorf("%w: %d (have %d)", ErrNoSuchBlock, i, e.arena.Len())
	}
	return nil
}

func (e *Engine) violation(err error) {
	if e.cfg.Strict {
		panic(err)
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		e.log.Error("invariant violation", slog.String("op", ie.Op), slog.Int("index", ie.Index), slog.Any("err", ie.Err))
		return
	}
	e.log.Error("invariant violation", slog.Any("err", err))
}
