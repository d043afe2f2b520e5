/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"layoutquote/internal/domain"
	applog "layoutquote/internal/log"
	"layoutquote/internal/version"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexDirName  = ".lq"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the workspace's embedded index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the SQLite index exists at .lq/index.sqlite,
// opens the database, enables WAL mode, and brings the schema up to date.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("workspace root is required: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .lq dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .lq dir: %w", err)
	}

	path := IndexPath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the existing schema number for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Quotes submitted through the local gateway
		`CREATE TABLE IF NOT EXISTS projects (
			id          TEXT    PRIMARY KEY,
			name        TEXT    NOT NULL,
			total_price INTEGER NOT NULL,
			objects     INTEGER NOT NULL DEFAULT 0,
			document    BLOB    NOT NULL,
			created_at  TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_created ON projects(created_at);`,

		// Snapshots (history of scene documents)
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY,
			scene      TEXT    NOT NULL,
			ts         TEXT    NOT NULL,
			doc_blob   BLOB    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_scene_ts ON snapshots(scene, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// never downgrade
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// v1 had no object counts and no name lookup
			if !hasColumn(ctx, db, "projects", "objects") {
				stmts = append(stmts, `ALTER TABLE projects ADD COLUMN objects INTEGER NOT NULL DEFAULT 0;`)
			}
			stmts = append(stmts, `CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);`)
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	// fresh databases get the v2 indexes from here as well
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);`)
	return err
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) bool {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s);", table))
	if err != nil {
		return false
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if strings.EqualFold(name, column) {
			return true
		}
	}
	return false
}

// Index is the workspace's quote index. It implements the persistence
// gateway contract for local use.
type Index struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenIndex opens (creating if needed) the index of the workspace at root.
func OpenIndex(root string) (*Index, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, log: applog.WithComponent("storage")}, nil
}

func (ix *Index) Close() error { return ix.db.Close() }

// DB exposes the underlying handle for maintenance tasks.
func (ix *Index) DB() *sql.DB { return ix.db }

// SaveProject stores a scene document with its name and total and returns the new id.
func (ix *Index) SaveProject(ctx context.Context, name string, doc []byte, total int64) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("project name is required: %w", domain.ErrInvalidInput)
	}
	if total < 0 {
		return "", fmt.Errorf("negative total %d: %w", total, domain.ErrInvalidInput)
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO projects(id, name, total_price, objects, document, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		id, name, total, countObjects(doc), doc, now.Format(tsLayout))
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}
	applog.WithOperation(ix.log, "save_project").Info("project stored", slog.String("id", id), slog.String("name", name), slog.Int64("total", total))
	return id, nil
}

// ProjectSummary is a listing row without the document.
type ProjectSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TotalPrice int64     `json:"total_price"`
	Objects    int       `json:"objects"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListProjects returns up to limit projects, newest first.
func (ix *Index) ListProjects(ctx context.Context, limit int) ([]ProjectSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT id, name, total_price, objects, created_at FROM projects ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		var ts string
		if err := rows.Scan(&p.ID, &p.Name, &p.TotalPrice, &p.Objects, &ts); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(tsLayout, ts)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProject returns one project including its document.
func (ix *Index) GetProject(ctx context.Context, id string) (domain.ProjectRecord, error) {
	var rec domain.ProjectRecord
	var ts string
	var doc []byte
	err := ix.db.QueryRowContext(ctx, `SELECT id, name, total_price, document, created_at FROM projects WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Name, &rec.TotalPrice, &doc, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProjectRecord{}, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ProjectRecord{}, fmt.Errorf("get project: %w", err)
	}
	rec.Document = json.RawMessage(doc)
	rec.CreatedAt, _ = time.Parse(tsLayout, ts)
	return rec, nil
}

// countObjects is informational; documents that do not parse count as empty.
func countObjects(doc []byte) int {
	var probe struct {
		Objects []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return 0
	}
	return len(probe.Objects)
}
