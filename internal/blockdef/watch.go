/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package blockdef

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "blockcanvas/internal/log"
)

// settle coalesces the create/write bursts editors produce for one save.
const settle = 150 * time.Millisecond

// Watch calls fn with the path of every definition file created or written
// in dir until ctx is done. fn runs on a background goroutine; UI callers
// must hop back to their own thread.
func Watch(ctx context.Context, dir string, fn func(path string)) error {
	l := applog.WithOperation(applog.WithComponent("blockdef"), "watch").With(slog.String("dir", dir))
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var mu sync.Mutex
	pending := map[string]*time.Timer{}
	fire := func(path string) {
		mu.Lock()
		delete(pending, path)
		mu.Unlock()
		if ctx.Err() == nil {
			fn(path)
		}
	}

	go func() {
		defer func() {
			_ = w.Close()
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if !IsDefinitionFile(ev.Name) {
					continue
				}
				path := ev.Name
				mu.Lock()
				if t, ok := pending[path]; ok {
					t.Reset(settle)
				} else {
					pending[path] = time.AfterFunc(settle, func() { fire(path) })
				}
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.Warn("watch error", slog.Any("err", err))
			}
		}
	}()
	l.Info("watching definitions")
	return nil
}
