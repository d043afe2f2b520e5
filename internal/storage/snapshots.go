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
	"time"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(scene, ts, doc_blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT ts, doc_blob FROM snapshots WHERE scene = ? ORDER BY ts DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT ts, doc_blob FROM snapshots WHERE scene = ? ORDER BY ts DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE scene = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE scene = ? ORDER BY ts DESC LIMIT ?
)`

// tsLayout keeps a fixed width so that text order equals time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is a stored scene document version.
type Snapshot struct {
	TS   time.Time
	Blob []byte
}

// SaveSnapshot records a version of a scene document.
func (ix *Index) SaveSnapshot(ctx context.Context, scene string, doc []byte, ts time.Time) error {
	if err := ValidName(scene); err != nil {
		return err
	}
	_, err := ix.db.ExecContext(ctx, insertSnapshotSQL, scene, ts.UTC().Format(tsLayout), doc)
	return err
}

// LatestSnapshot returns the newest version of a scene or nil if none.
func (ix *Index) LatestSnapshot(ctx context.Context, scene string) ([]byte, time.Time, error) {
	var tsStr string
	var blob []byte
	err := ix.db.QueryRowContext(ctx, selectLatestSnapshotSQL, scene).Scan(&tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	ts, err := time.Parse(tsLayout, tsStr)
	if err != nil {
		return blob, time.Time{}, nil // return blob even if ts parse fails
	}
	return blob, ts, nil
}

// ListSnapshots returns up to limit most recent versions of a scene.
func (ix *Index) ListSnapshots(ctx context.Context, scene string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, listSnapshotsSQL, scene, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var tsStr string
		var blob []byte
		if err := rows.Scan(&tsStr, &blob); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(tsLayout, tsStr)
		out = append(out, Snapshot{TS: ts, Blob: blob})
	}
	return out, rows.Err()
}

// PruneOldSnapshots keeps at most keepLast versions of a scene.
func (ix *Index) PruneOldSnapshots(ctx context.Context, scene string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneOldSnapshotsSQL, scene, scene, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
