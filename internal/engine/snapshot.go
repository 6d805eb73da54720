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
	"encoding/json"
	"fmt"
)

type snapshot struct {
	Blocks  []Block `json:"blocks"`
	Loaded  int     `json:"loaded"`
	Spawned int     `json:"spawned"`
}

// Snapshot encodes the arena for the undo history and crash reports.
func (e *Engine) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{Blocks: e.Blocks(), Loaded: e.loaded, Spawned: e.spawned})
}

// Restore replaces the arena with a snapshot. A snapshot that fails
// validation leaves the engine untouched. Spawn counters never go back, so
// new copies never land on coordinates used earlier in the session.
func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if err := e.validateBlocks(s.Blocks); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	e.arena = Arena{blocks: s.Blocks}
	e.loaded = max(e.loaded, s.Loaded)
	e.spawned = max(e.spawned, s.Spawned)
	return nil
}
