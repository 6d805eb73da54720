/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeState struct {
	blob  []byte
	err   error
	panic bool
}

func (f fakeState) Snapshot() ([]byte, error) {
	if f.panic {
		panic("tree broken")
	}
	return f.blob, f.err
}

func silenceStderr(t *testing.T) {
	t.Helper()
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	})
}

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport("", "boom", []byte("stacktrace"), nil)
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Block Canvas Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "State:") {
		t.Fatalf("state line without a state dump: %s", s)
	}
}

// TestRecover_WritesReportAndState ensures Recover handles a panic, writes a
// report plus state dump, and calls the injected exitFn.
func TestRecover_WritesReportAndState(t *testing.T) {
	silenceStderr(t)
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	func() {
		defer Recover(dir, fakeState{blob: []byte(`{"blocks":[]}`)})
		panic("boom")
	}()

	reports, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	states, _ := filepath.Glob(filepath.Join(dir, "crash-*.state.json"))
	if len(reports) != 1 || len(states) != 1 {
		t.Fatalf("expected one report and one state file, got %v %v", reports, states)
	}
	b, _ := os.ReadFile(reports[0])
	if !bytes.Contains(b, []byte("Panic: boom")) || !bytes.Contains(b, []byte("State: ")) {
		t.Fatalf("report incomplete: %s", b)
	}
	if st, _ := os.ReadFile(states[0]); string(st) != `{"blocks":[]}` {
		t.Fatalf("state dump = %q", st)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestDumpStateSurvivesFailures(t *testing.T) {
	if got := string(dumpState(fakeState{err: errors.New("nope")})); !strings.Contains(got, "nope") {
		t.Fatalf("error not recorded: %q", got)
	}
	if got := string(dumpState(fakeState{panic: true})); !strings.Contains(got, "tree broken") {
		t.Fatalf("panic not recorded: %q", got)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if called {
		t.Fatalf("exit called without a panic")
	}
}
