/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps a bounded in-memory undo/redo history of opaque state
// snapshots.
package undo

import (
	"sync"
	"time"
)

// Snapshot is a state blob captured before a change. Blob content is opaque
// to the history; size is estimated as len(Blob). Label names the change
// ("spawn", "drag", ...) and TS is when the snapshot was captured.
type Snapshot struct {
	Label string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of undo steps kept (0 means unlimited).
	MaxDepth int
	// MinInterval merges a snapshot into the previous one when both carry
	// the same label and arrive within the interval. The older blob is kept,
	// so a burst of drag deltas undoes in one step.
	MinInterval time.Duration
}

// History provides undo/redo stacks with memory safeguards.
// It is safe for concurrent use.
type History struct {
	cfg        Config
	mu         sync.Mutex
	undo       []Snapshot
	redo       []Snapshot
	totalBytes int
}

func New(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &History{cfg: cfg}
}

// Push records the state before a change and clears the redo stack.
// It reports whether a new undo step was created.
func (h *History) Push(s Snapshot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropRedoLocked()
	if n := len(h.undo); n > 0 {
		last := &h.undo[n-1]
		if last.Label == s.Label && s.TS.Sub(last.TS) < h.cfg.MinInterval {
			last.TS = s.TS
			return false
		}
	}
	h.undo = append(h.undo, s)
	h.totalBytes += len(s.Blob)
	h.enforceCapsLocked()
	return true
}

// Undo pops the latest snapshot for the caller to restore. current is the
// state being replaced; it becomes the redo entry.
func (h *History) Undo(current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.undo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := h.undo[n-1]
	h.undo = h.undo[:n-1]
	h.totalBytes -= len(s.Blob)
	h.redo = append(h.redo, Snapshot{Label: s.Label, Blob: current, TS: time.Now()})
	h.totalBytes += len(current)
	return s, true
}

// Redo pops the latest undone state for the caller to restore; current goes
// back onto the undo stack.
func (h *History) Redo(current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.redo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.totalBytes -= len(s.Blob)
	h.undo = append(h.undo, Snapshot{Label: s.Label, Blob: current, TS: time.Now()})
	h.totalBytes += len(current)
	h.enforceCapsLocked()
	return s, true
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo, h.totalBytes = nil, nil, 0
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes, undoDepth, redoDepth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalBytes, len(h.undo), len(h.redo)
}

func (h *History) dropRedoLocked() {
	for _, s := range h.redo {
		h.totalBytes -= len(s.Blob)
	}
	h.redo = nil
}

func (h *History) enforceCapsLocked() {
	if h.cfg.MaxDepth > 0 && len(h.undo) > h.cfg.MaxDepth {
		toDrop := len(h.undo) - h.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			h.totalBytes -= len(h.undo[i].Blob)
		}
		h.undo = append([]Snapshot{}, h.undo[toDrop:]...)
	}
	// Global memory cap: prune oldest undo steps, keep the newest one.
	for h.totalBytes > h.cfg.MaxBytes && len(h.undo) > 1 {
		h.totalBytes -= len(h.undo[0].Blob)
		h.undo = h.undo[1:]
	}
}
