/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns panics at the process edge into crash reports.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "blockcanvas/internal/log"
	"blockcanvas/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Snapshotter provides the state dump stored next to a crash report. The
// engine and the workspace both satisfy it.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// Recover captures a panic, logs an error with stacktrace, writes a report
// file into dir (the temp dir when empty) and, if s is non-nil, a dump of
// the block tree next to it.
//
// Usage: defer crash.Recover(dir, ws)
func Recover(dir string, s Snapshotter) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		var state []byte
		if s != nil {
			state = dumpState(s)
		}
		reportPath, err := writeReport(dir, r, stack, state)
		if err != nil {
			l.Error("crash report write failed", slog.Any("err", err))
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

// dumpState snapshots s, tolerating a second panic from a broken tree.
func dumpState(s Snapshotter) (state []byte) {
	defer func() {
		if r := recover(); r != nil {
			state = []byte(fmt.Sprintf("state dump panicked: %v", r))
		}
	}()
	b, err := s.Snapshot()
	if err != nil {
		return []byte(fmt.Sprintf("state dump failed: %v", err))
	}
	return b
}

func writeReport(dir string, panicVal any, stack, state []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Block Canvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if state != nil {
		statePath := filepath.Join(dir, fmt.Sprintf("crash-%s.state.json", stamp))
		if err := os.WriteFile(statePath, state, 0o644); err != nil {
			_, _ = fmt.Fprintf(&buf, "State: write failed: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(&buf, "State: %s\n", statePath)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
