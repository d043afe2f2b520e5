/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/scenefile"
	"layoutquote/internal/storage"
)

// ErrConflict reports a preset whose (category, name) already exists.
var ErrConflict = errors.New("conflict")

// Preset is a catalog item managed through the admin routes.
type Preset struct {
	ID string `json:"id"`
	catalog.Item
}

// Store is the persistence behind the HTTP routes.
type Store interface {
	Ping(ctx context.Context) error
	SaveProject(ctx context.Context, name string, doc []byte, total int64) (string, error)
	ListProjects(ctx context.Context, limit int) ([]storage.ProjectSummary, error)
	GetProject(ctx context.Context, id string) (domain.ProjectRecord, error)
	ListPresets(ctx context.Context) ([]Preset, error)
	CreatePreset(ctx context.Context, it catalog.Item) (Preset, error)
	DeletePreset(ctx context.Context, id string) error
}

// PGStore implements Store on Postgres through database/sql and pgx.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// SaveProject stores a validated scene document with its quote total.
func (s *PGStore) SaveProject(ctx context.Context, name string, doc []byte, total int64) (string, error) {
	if err := checkProject(name, total); err != nil {
		return "", err
	}
	parsed, err := scenefile.Decode(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO projects(id, name, total_price, objects, document) VALUES($1, $2, $3, $4, $5::jsonb)`,
		id, name, total, len(parsed.Objects), string(doc))
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}
	return id, nil
}

func (s *PGStore) ListProjects(ctx context.Context, limit int) ([]storage.ProjectSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, total_price, objects, created_at FROM projects ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []storage.ProjectSummary{}
	for rows.Next() {
		var p storage.ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.TotalPrice, &p.Objects, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) GetProject(ctx context.Context, id string) (domain.ProjectRecord, error) {
	var (
		rec domain.ProjectRecord
		doc []byte
	)
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, total_price, document, created_at FROM projects WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Name, &rec.TotalPrice, &doc, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("get project: %w", err)
	}
	rec.Document = doc
	return rec, nil
}

func (s *PGStore) ListPresets(ctx context.Context) ([]Preset, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, category, type, width, height, depth, color, fixed, price, url, icon
		FROM presets ORDER BY category, created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []Preset{}
	for rows.Next() {
		var (
			p     Preset
			kind  string
			color string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &kind, &p.Footprint.Width, &p.Footprint.Height, &p.Footprint.Depth,
			&color, &p.Fixed, &p.Price, &p.URL, &p.Icon); err != nil {
			return nil, err
		}
		if p.Kind, err = catalog.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.ID, err)
		}
		if p.Color, err = domain.ParseColor(color); err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) CreatePreset(ctx context.Context, it catalog.Item) (Preset, error) {
	if err := it.Validate(); err != nil {
		return Preset{}, err
	}
	p := Preset{ID: uuid.NewString(), Item: it}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO presets(id, name, category, type, width, height, depth, color, fixed, price, url, icon)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, it.Name, it.Category, string(it.Kind), it.Footprint.Width, it.Footprint.Height, it.Footprint.Depth,
		it.Color.Hex(), it.Fixed, it.Price, it.URL, it.Icon)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Preset{}, fmt.Errorf("preset %s: %w", it.Key(), ErrConflict)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("insert preset: %w", err)
	}
	return p, nil
}

func (s *PGStore) DeletePreset(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM presets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("preset %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func checkProject(name string, total int64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("project name is required: %w", domain.ErrInvalidInput)
	}
	if total < 0 {
		return fmt.Errorf("negative total %d: %w", total, domain.ErrInvalidInput)
	}
	return nil
}

// Catalog builds a catalog from presets.
func Catalog(presets []Preset) (*catalog.Catalog, error) {
	items := make([]catalog.Item, 0, len(presets))
	for _, p := range presets {
		items = append(items, p.Item)
	}
	return catalog.New(items...)
}
