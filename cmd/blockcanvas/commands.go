/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"blockcanvas/internal/blockdef"
	"blockcanvas/internal/config"
	"blockcanvas/internal/crash"
	applog "blockcanvas/internal/log"
	"blockcanvas/internal/storage"
	"blockcanvas/internal/ui"
	"blockcanvas/internal/version"
	"blockcanvas/internal/workspace"
)

// app carries the loaded configuration into the subcommands.
type app struct {
	out io.Writer
	cfg config.AppConfig

	verbose     bool
	definitions string
	catalog     string
	strict      bool
}

func newApp(out io.Writer) *app { return &app{out: out} }

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "blockcanvas",
		Short:         "Block canvas for composing programs from snap-together blocks",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetVersionTemplate("blockcanvas {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&a.definitions, "definitions", "", "block definitions directory (overrides config)")
	pf.StringVar(&a.catalog, "catalog", "", "definition catalog database (overrides config)")
	pf.BoolVar(&a.strict, "strict", false, "panic on tree invariant violations")

	root.AddCommand(
		a.uiCommand(),
		a.validateCommand(),
		a.paletteCommand(),
		a.searchCommand(),
		a.replayCommand(),
		a.watchCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads the config, applies flag overrides and initializes logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if a.definitions != "" {
		cfg.General.DefinitionsDir = a.definitions
	}
	if a.catalog != "" {
		cfg.General.CatalogPath = a.catalog
	}
	if cmd.Flags().Changed("strict") {
		cfg.Canvas.Strict = a.strict
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	if err != nil {
		applog.WithComponent("cli").Warn("config ignored", slog.Any("err", err))
	}
	a.cfg = cfg
	return nil
}

func (a *app) dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.General.DefinitionsDir
}

func (a *app) crashDir() string {
	if f := strings.TrimSpace(a.cfg.Logging.File); f != "" {
		return filepath.Dir(f)
	}
	return ""
}

// openCatalog opens the configured catalog; it returns nil when none is set.
func (a *app) openCatalog(cmd *cobra.Command) (*storage.Catalog, error) {
	p := strings.TrimSpace(a.cfg.General.CatalogPath)
	if p == "" {
		return nil, nil
	}
	cat, rebuilt, err := storage.OpenOrRebuild(cmd.Context(), p)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		applog.WithComponent("cli").Warn("catalog was rebuilt", slog.String("path", p))
	}
	return cat, nil
}

func (a *app) workspace(cat *storage.Catalog) *workspace.Workspace {
	return workspace.New(workspace.Options{
		Engine:  a.cfg.Canvas.Engine(),
		History: a.cfg.Undo.History(),
		Catalog: cat,
	})
}

func (a *app) uiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [definitionsDir]",
		Short: "Launch the desktop canvas (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return ui.Run(a.cfg, a.dirArg(args))
		},
	}
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check block definition documents against the schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				ld, err := blockdef.LoadFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(a.out, "FAIL %v\n", err)
					continue
				}
				fmt.Fprintf(a.out, "ok   %s (%s)\n", path, ld.Def.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions invalid", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) paletteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "palette [definitionsDir]",
		Short: "Load a definitions directory and print the palette",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			if cat != nil {
				defer cat.Close()
			}
			ws := a.workspace(cat)
			dir := a.dirArg(args)
			added, errs := ws.LoadPalette(cmd.Context(), dir)
			if err := ws.Dump(a.out); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d blocks from %s", added, dir)
			if len(errs) > 0 {
				fmt.Fprintf(a.out, ", %d skipped:\n", len(errs))
				for _, err := range errs {
					fmt.Fprintf(a.out, "  %v\n", err)
				}
			} else {
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
}

func (a *app) searchCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Search the definition catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			if cat == nil {
				return errors.New("no catalog configured: set general.catalog_path or --catalog")
			}
			defer cat.Close()
			hits, err := cat.Search(cmd.Context(), storage.SearchQuery{Text: strings.Join(args, " "), Limit: limit})
			if err != nil {
				return err
			}
			for _, h := range hits {
				label := h.Label
				if label == "" {
					label = h.Kind
				}
				fmt.Fprintf(a.out, "%-20s %-24q %s\n", h.Kind, label, h.Path)
			}
			if len(hits) == 0 {
				fmt.Fprintln(a.out, "no matches")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}

func (a *app) replayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Run a recorded event script and print the resulting forest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			script, err := workspace.ParseScript(f)
			if err != nil {
				return err
			}
			ws := a.workspace(nil)
			defer crash.Recover(a.crashDir(), ws)
			replayErr := ws.Replay(cmd.Context(), script, filepath.Dir(args[0]))
			if err := ws.Dump(a.out); err != nil {
				return err
			}
			return replayErr
		},
	}
}

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [definitionsDir]",
		Short: "Report block definitions as they are added or changed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			if cat != nil {
				defer cat.Close()
			}
			dir := a.dirArg(args)
			l := applog.WithOperation(applog.WithComponent("cli"), "watch")
			l.Info("watching definitions", slog.String("dir", dir))
			return blockdef.Watch(cmd.Context(), dir, func(path string) {
				ld, err := blockdef.LoadFile(path)
				if err != nil {
					fmt.Fprintf(a.out, "invalid %v\n", err)
					return
				}
				fmt.Fprintf(a.out, "defined %s %s\n", ld.Def.ID, path)
				if cat != nil {
					if _, err := cat.Upsert(cmd.Context(), ld); err != nil {
						l.Warn("catalog update failed", slog.String("path", path), slog.Any("err", err))
					}
				}
			})
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(a.out, "blockcanvas", version.String())
		},
	}
}
