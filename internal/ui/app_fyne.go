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
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"blockcanvas/internal/blockdef"
	"blockcanvas/internal/config"
	"blockcanvas/internal/crash"
	applog "blockcanvas/internal/log"
	"blockcanvas/internal/storage"
	"blockcanvas/internal/workspace"
)

// Run starts the Fyne desktop canvas with the palette loaded from dir
// (the configured definitions directory when empty).
func Run(cfg config.AppConfig, dir string) error {
	l := applog.WithComponent("ui")
	if strings.TrimSpace(dir) == "" {
		dir = cfg.General.DefinitionsDir
	}
	l.Info("starting UI", slog.String("definitions", dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cat *storage.Catalog
	if p := strings.TrimSpace(cfg.General.CatalogPath); p != "" {
		c, rebuilt, err := storage.OpenOrRebuild(ctx, p)
		if err != nil {
			l.Warn("catalog unavailable", slog.Any("err", err))
		} else {
			if rebuilt {
				l.Warn("catalog was rebuilt", slog.String("path", p))
			}
			cat = c
			defer cat.Close()
		}
	}

	ws := workspace.New(workspace.Options{
		Engine:  cfg.Canvas.Engine(),
		History: cfg.Undo.History(),
		Catalog: cat,
	})
	crashDir := ""
	if f := strings.TrimSpace(cfg.Logging.File); f != "" {
		crashDir = filepath.Dir(f)
	}
	defer crash.Recover(crashDir, ws)

	fyneApp := app.NewWithID("blockcanvas")
	w := fyneApp.NewWindow("Block Canvas")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	bc := NewBlockCanvas(ws)
	bc.OnError = func(err error) {
		l.Warn("event rejected", slog.Any("err", err))
		status.SetText(err.Error())
	}
	bc.OnChange = func() {
		status.SetText(fmt.Sprintf("%d blocks", ws.Engine().Len()))
	}

	added, errs := ws.LoadPalette(ctx, dir)
	status.SetText(fmt.Sprintf("Loaded %d blocks from %s (%d skipped)", added, dir, len(errs)))

	if cfg.General.WatchDefinitions {
		go func() {
			err := blockdef.Watch(ctx, dir, func(path string) {
				fyne.Do(func() {
					if _, ok, err := ws.LoadDefinitionFile(ctx, path); err == nil && ok {
						status.SetText("Added " + filepath.Base(path))
						bc.Refresh()
					}
				})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				l.Warn("definition watch stopped", slog.Any("err", err))
			}
		}()
	}

	undoFn := func() { bc.apply(ws.Undo()) }
	redoFn := func() { bc.apply(ws.Redo()) }
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), undoFn),
		widget.NewToolbarAction(theme.ContentRedoIcon(), redoFn),
	)
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { undoFn() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { redoFn() })

	var top fyne.CanvasObject = toolbar
	if cat != nil {
		search := widget.NewEntry()
		search.SetPlaceHolder("Search blocks")
		search.OnSubmitted = func(q string) {
			hits, err := cat.Search(ctx, storage.SearchQuery{Text: q, Limit: 20})
			if err != nil {
				status.SetText(err.Error())
				return
			}
			kinds := make([]string, len(hits))
			for i, h := range hits {
				kinds[i] = h.Kind
			}
			status.SetText(fmt.Sprintf("%d matches: %s", len(hits), strings.Join(kinds, ", ")))
		}
		top = container.NewBorder(nil, nil, toolbar, nil, search)
	}

	w.SetContent(container.NewBorder(top, status, nil, nil, bc))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		dialog.ShowInformation("Some definitions were skipped", strings.Join(msgs, "\n"), w)
	}
	w.ShowAndRun()
	return nil
}

var (
	canvasBg       = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	paletteBg      = color.RGBA{R: 44, G: 44, B: 50, A: 255}
	dividerColor   = color.RGBA{R: 90, G: 90, B: 100, A: 255}
	labelColor     = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	outlineColor   = color.RGBA{R: 15, G: 15, B: 15, A: 255}
	highlightColor = color.RGBA{R: 250, G: 210, B: 60, A: 255}
)
