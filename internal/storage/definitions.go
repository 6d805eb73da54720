/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"blockcanvas/internal/blockdef"
)

// Upsert records a loaded definition keyed by its file path. It reports
// whether the catalog changed; an unchanged checksum is a no-op.
func (c *Catalog) Upsert(ctx context.Context, ld blockdef.Loaded) (bool, error) {
	var sum string
	err := c.db.QueryRowContext(ctx, `SELECT sum FROM definitions WHERE path=?`, ld.Path).Scan(&sum)
	switch {
	case err == nil && sum == ld.Sum:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("lookup %s: %w", ld.Path, err)
	}
	names := make([]string, len(ld.Def.Inputs))
	for i, in := range ld.Def.Inputs {
		names[i] = in.Name
	}
	inputs := strings.Join(names, ",")
	var colour string
	if ld.Def.Colour != nil {
		colour = *ld.Def.Colour
	}
	text := strings.Join(append([]string{ld.Def.ID, ld.Def.Label}, names...), " ")
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO definitions (kind, label, colour, inputs, path, sum, text, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind=excluded.kind, label=excluded.label, colour=excluded.colour,
			inputs=excluded.inputs, sum=excluded.sum, text=excluded.text,
			loaded_at=excluded.loaded_at`,
		ld.Def.ID, ld.Def.Label, colour, inputs, ld.Path, ld.Sum, text,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", ld.Path, err)
	}
	c.log.Debug("definition catalogued", slog.String("kind", ld.Def.ID), slog.String("path", ld.Path))
	return true, nil
}

// Remove drops the entry for path. Missing entries are not an error.
func (c *Catalog) Remove(ctx context.Context, path string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM definitions WHERE path=?`, path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// List returns every entry ordered by kind, then path.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	return c.query(ctx, `SELECT kind, COALESCE(label,''), COALESCE(colour,''), COALESCE(inputs,''), path, sum, loaded_at
		FROM definitions ORDER BY kind, path`)
}

// SearchQuery selects catalog entries. Text is split into terms; every term
// must prefix-match a word of the kind, label or input names. Empty Text
// lists everything.
type SearchQuery struct {
	Text   string
	Limit  int
	Offset int
}

// Search runs q against the full-text index.
func (c *Catalog) Search(ctx context.Context, q SearchQuery) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	match := ftsQuery(q.Text)
	if match == "" {
		return c.query(ctx, `SELECT kind, COALESCE(label,''), COALESCE(colour,''), COALESCE(inputs,''), path, sum, loaded_at
			FROM definitions ORDER BY kind, path LIMIT ? OFFSET ?`, limit, offset)
	}
	return c.query(ctx, `SELECT d.kind, COALESCE(d.label,''), COALESCE(d.colour,''), COALESCE(d.inputs,''), d.path, d.sum, d.loaded_at
		FROM fts_definitions JOIN definitions d ON fts_definitions.rowid = d.id
		WHERE fts_definitions MATCH ?
		ORDER BY rank, d.kind LIMIT ? OFFSET ?`, match, limit, offset)
}

// ftsQuery turns free text into an FTS5 query of quoted prefix terms.
func ftsQuery(text string) string {
	var terms []string
	for _, f := range strings.Fields(text) {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"*`)
	}
	return strings.Join(terms, " ")
}

func (c *Catalog) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var inputs, loaded string
		if err := rows.Scan(&e.Kind, &e.Label, &e.Colour, &inputs, &e.Path, &e.Sum, &loaded); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		if inputs != "" {
			e.Inputs = strings.Split(inputs, ",")
		}
		e.LoadedAt, _ = time.Parse(time.RFC3339, loaded)
		out = append(out, e)
	}
	return out, rows.Err()
}
