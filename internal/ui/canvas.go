//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"blockcanvas/internal/blockdef"
	"blockcanvas/internal/vector"
	"blockcanvas/internal/workspace"
)

// BlockCanvas draws the palette and the canvas of one workspace and turns
// pointer input into workspace events: a tap on a palette block spawns it,
// a secondary tap deletes a canvas block with its subtree, and dragging a
// canvas block moves it until release snaps it. Dragging empty canvas pans.
type BlockCanvas struct {
	widget.BaseWidget
	ws *workspace.Workspace

	offsetX float32
	offsetY float32

	dragMode dragMode
	dragged  int // block index while dragMode == dragBlock

	// entries holds the input widgets per block instance and input name.
	entries map[string]map[string]*widget.Entry
	syncing bool

	OnError  func(error)
	OnChange func()
}

type dragMode int

const (
	dragNone dragMode = iota
	dragPan
	dragBlock
)

func NewBlockCanvas(ws *workspace.Workspace) *BlockCanvas {
	bc := &BlockCanvas{ws: ws, dragged: -1, entries: make(map[string]map[string]*widget.Entry)}
	bc.ExtendBaseWidget(bc)
	return bc
}

// CreateRenderer builds the block visuals; they are recreated on refresh
// from the engine state, input entries are reused.
func (b *BlockCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &blockCanvasRenderer{
		bc:      b,
		bg:      canvas.NewRectangle(canvasBg),
		palette: canvas.NewRectangle(paletteBg),
		divider: canvas.NewLine(dividerColor),
		outline: canvas.NewRectangle(color.Transparent),
	}
	r.outline.StrokeColor = highlightColor
	r.outline.StrokeWidth = 2
	r.rebuild()
	return r
}

// PreferredSize sets a decent default size for the widget.
func (b *BlockCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

func (b *BlockCanvas) toScreen(p vector.Pt) fyne.Position {
	return fyne.NewPos(p.X+b.offsetX, p.Y+b.offsetY)
}

func (b *BlockCanvas) toCanvas(pos fyne.Position) vector.Pt {
	return vector.P(pos.X-b.offsetX, pos.Y-b.offsetY)
}

// apply reports err, if any, and redraws.
func (b *BlockCanvas) apply(err error) {
	if err != nil && b.OnError != nil {
		b.OnError(err)
	}
	if err == nil && b.OnChange != nil {
		b.OnChange()
	}
	b.Refresh()
}

// Tapped spawns a copy of a palette block.
func (b *BlockCanvas) Tapped(e *fyne.PointEvent) {
	eng := b.ws.Engine()
	i := eng.HitTest(b.toCanvas(e.Position))
	if i < 0 || !eng.IsPalette(i) {
		return
	}
	_, err := b.ws.Spawn(i)
	b.apply(err)
}

// TappedSecondary deletes a canvas block and everything attached below it.
func (b *BlockCanvas) TappedSecondary(e *fyne.PointEvent) {
	eng := b.ws.Engine()
	i := eng.HitTest(b.toCanvas(e.Position))
	if i < 0 || eng.IsPalette(i) {
		return
	}
	_, err := b.ws.Delete(i)
	b.apply(err)
}

func (b *BlockCanvas) Dragged(e *fyne.DragEvent) {
	if b.dragMode == dragNone {
		// The event position is already past the first delta.
		start := b.toCanvas(e.Position.Subtract(fyne.NewPos(e.Dragged.DX, e.Dragged.DY)))
		eng := b.ws.Engine()
		i := eng.HitTest(start)
		switch {
		case i >= 0 && !eng.IsPalette(i):
			b.dragMode, b.dragged = dragBlock, i
			b.ws.Press()
		case i < 0:
			b.dragMode = dragPan
		default:
			// Palette blocks stay put.
			return
		}
	}
	switch b.dragMode {
	case dragPan:
		b.offsetX += e.Dragged.DX
		b.offsetY += e.Dragged.DY
	case dragBlock:
		if err := b.ws.Drag(b.dragged, e.Dragged.DX, e.Dragged.DY); err != nil && b.OnError != nil {
			b.OnError(err)
		}
	}
	b.Refresh()
}

// DragEnd is the pointer release: a dragged block snaps here.
func (b *BlockCanvas) DragEnd() {
	mode, i := b.dragMode, b.dragged
	b.dragMode, b.dragged = dragNone, -1
	if mode != dragBlock {
		return
	}
	_, _, err := b.ws.Release(i)
	b.apply(err)
}

// entry returns the input widget for one input of a block instance.
func (b *BlockCanvas) entry(instance, name string) *widget.Entry {
	byName := b.entries[instance]
	if byName == nil {
		byName = make(map[string]*widget.Entry)
		b.entries[instance] = byName
	}
	if en, ok := byName[name]; ok {
		return en
	}
	en := widget.NewEntry()
	en.SetPlaceHolder(name)
	en.OnChanged = func(text string) {
		if b.syncing {
			return
		}
		if i := b.indexOf(instance); i >= 0 {
			if err := b.ws.SetInput(i, name, text); err != nil && b.OnError != nil {
				b.OnError(err)
			}
		}
	}
	byName[name] = en
	return en
}

func (b *BlockCanvas) indexOf(instance string) int {
	for i, blk := range b.ws.Engine().Blocks() {
		if blk.Instance == instance {
			return i
		}
	}
	return -1
}

// blockCanvasRenderer lays out one rectangle, label and input row per block.
type blockCanvasRenderer struct {
	bc      *BlockCanvas
	bg      *canvas.Rectangle
	palette *canvas.Rectangle
	divider *canvas.Line
	outline *canvas.Rectangle // around the subtree being dragged
	objects []fyne.CanvasObject
	visuals []blockVisual
}

type blockVisual struct {
	rect   *canvas.Rectangle
	label  *canvas.Text
	inputs []*widget.Entry
}

func (r *blockCanvasRenderer) Destroy()                     {}
func (r *blockCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *blockCanvasRenderer) MinSize() fyne.Size           { return r.bc.PreferredSize() }

func (r *blockCanvasRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.bc.Size())
	canvas.Refresh(r.bc)
}

// rebuild recreates the block visuals in arena order so later blocks draw
// on top, matching hit testing. Entries of deleted instances are dropped.
func (r *blockCanvasRenderer) rebuild() {
	eng := r.bc.ws.Engine()
	blocks := eng.Blocks()
	live := make(map[string]bool, len(blocks))
	r.visuals = r.visuals[:0]
	r.objects = []fyne.CanvasObject{r.bg, r.palette, r.divider}

	r.bc.syncing = true
	for i, blk := range blocks {
		live[blk.Instance] = true
		rect := canvas.NewRectangle(blockdef.ColourOf(blk.Colour))
		rect.StrokeColor = outlineColor
		rect.StrokeWidth = 1
		rect.CornerRadius = 4
		label := canvas.NewText(blk.DisplayLabel(), labelColor)
		label.TextStyle = fyne.TextStyle{Bold: true}
		v := blockVisual{rect: rect, label: label}
		r.objects = append(r.objects, rect, label)
		for _, in := range blk.Inputs {
			en := r.bc.entry(blk.Instance, in.Name)
			if en.Text != blk.Values[in.Name] {
				en.SetText(blk.Values[in.Name])
			}
			if eng.IsPalette(i) {
				en.Disable()
			} else {
				en.Enable()
			}
			v.inputs = append(v.inputs, en)
			r.objects = append(r.objects, en)
		}
		r.visuals = append(r.visuals, v)
	}
	r.bc.syncing = false
	r.objects = append(r.objects, r.outline)
	for inst := range r.bc.entries {
		if !live[inst] {
			delete(r.bc.entries, inst)
		}
	}
}

func (r *blockCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	eng := r.bc.ws.Engine()
	cfg := eng.Config()
	if cfg.PaletteWidth > 0 {
		r.palette.Show()
		r.divider.Show()
		x := max(cfg.PaletteWidth+r.bc.offsetX, 0)
		r.palette.Move(fyne.NewPos(0, 0))
		r.palette.Resize(fyne.NewSize(x, size.Height))
		r.divider.Position1 = fyne.NewPos(x, 0)
		r.divider.Position2 = fyne.NewPos(x, size.Height)
	} else {
		r.palette.Hide()
		r.divider.Hide()
	}

	r.outline.Hide()
	if r.bc.dragMode == dragBlock {
		if bounds, err := eng.Bounds(r.bc.dragged); err == nil {
			const grow = 3
			r.outline.Move(r.bc.toScreen(bounds.Min()).Subtract(fyne.NewPos(grow, grow)))
			r.outline.Resize(fyne.NewSize(bounds.W+2*grow, bounds.H+2*grow))
			r.outline.Show()
		}
	}

	fp := cfg.Footprint
	const pad = float32(6)
	for i, v := range r.visuals {
		if i >= eng.Len() {
			break
		}
		rect := eng.Rect(i)
		pos := r.bc.toScreen(rect.Min())
		v.rect.Move(pos)
		v.rect.Resize(fyne.NewSize(fp.W, fp.H))
		v.label.Move(pos.Add(fyne.NewPos(pad, pad)))
		if len(v.inputs) == 0 {
			continue
		}
		// Inputs share the space below the label.
		rowH := (fp.H - 2*pad - v.label.MinSize().Height) / float32(len(v.inputs))
		y := pos.Y + pad + v.label.MinSize().Height
		for _, en := range v.inputs {
			en.Move(fyne.NewPos(pos.X+pad, y))
			en.Resize(fyne.NewSize(fp.W-2*pad, rowH))
			y += rowH
		}
	}
}
