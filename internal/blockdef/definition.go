/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package blockdef reads block-definition documents: the JSON files that
// declare the blocks offered in the palette.
package blockdef

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	applog "blockcanvas/internal/log"
)

var (
	ErrInvalidDocument = errors.New("invalid block definition")
	ErrEmptyDocument   = errors.New("block definition has no sections")
)

// Offset is the child anchor offset of a block.
type Offset struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Input declares a named text input.
type Input struct {
	Name string `json:"name"`
}

// Definition is one block section of a document.
type Definition struct {
	ID          string  `json:"id"`
	Colour      *string `json:"Block_colour,omitempty"`
	Label       string  `json:"Shown_element,omitempty"`
	ChildOffset *Offset `json:"child_offset,omitempty"`
	Inputs      []Input `json:"inputs,omitempty"`
}

// Document is the on-disk layout: {"block": {"sections": [...]}}.
type Document struct {
	Block struct {
		Sections []Definition `json:"sections"`
	} `json:"block"`
}

// Loaded is a definition together with the file it came from.
type Loaded struct {
	Path string
	Sum  string // sha256 of the file contents, hex
	Def  Definition
}

// Parse validates data against the definition schema and returns the first
// section. Further sections are ignored.
func Parse(data []byte) (Definition, error) {
	if err := Validate(data); err != nil {
		return Definition{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Definition{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(doc.Block.Sections) == 0 {
		return Definition{}, ErrEmptyDocument
	}
	return doc.Block.Sections[0], nil
}

// LoadFile reads and parses a single definition file.
func LoadFile(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("read %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return Loaded{}, fmt.Errorf("%s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return Loaded{Path: path, Sum: hex.EncodeToString(sum[:]), Def: def}, nil
}

// LoadDir loads every *.json file in dir in name order. Files that fail to
// load are reported in errs and skipped; they never abort the batch.
func LoadDir(dir string) (defs []Loaded, errs []error) {
	l := applog.WithOperation(applog.WithComponent("blockdef"), "load_dir").With(slog.String("dir", dir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read definitions dir: %w", err)}
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsDefinitionFile(e.Name()) {
			continue
		}
		ld, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			l.Warn("skip definition", slog.String("file", e.Name()), slog.Any("err", err))
			errs = append(errs, err)
			continue
		}
		defs = append(defs, ld)
	}
	l.Debug("definitions loaded", slog.Int("ok", len(defs)), slog.Int("failed", len(errs)))
	return defs, errs
}

// IsDefinitionFile reports whether name looks like a definition document.
func IsDefinitionFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".json") && !strings.HasPrefix(base, ".")
}
