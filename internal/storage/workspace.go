/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"layoutquote/internal/domain"
	applog "layoutquote/internal/log"
	"layoutquote/internal/scenefile"
)

const (
	ScenesDirName  = "scenes"
	BackupsDirName = "backups"
	ExportsDirName = "exports"
	SceneExt       = ".json"

	backupStamp = "20060102-150405.000000"
)

var standardSubDirs = []string{
	ScenesDirName,
	BackupsDirName,
	ExportsDirName,
}

// Workspace is a directory of named scene documents.
type Workspace struct {
	Root string
}

// InitWorkspace creates root and its standard subfolders if needed.
func InitWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("workspace root is required: %w", domain.ErrInvalidInput)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &Workspace{Root: root}, nil
}

// OpenWorkspace opens an existing workspace directory.
func OpenWorkspace(root string) (*Workspace, error) {
	fi, err := os.Stat(filepath.Join(root, ScenesDirName))
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("open workspace %s: %s is not a directory", root, ScenesDirName)
	}
	return &Workspace{Root: root}, nil
}

// ValidName reports whether name can be used as a scene file name.
func ValidName(name string) error {
	n := strings.TrimSpace(name)
	if n == "" || n != name || n == "." || n == ".." || strings.ContainsAny(n, `/\:`) || strings.HasPrefix(n, ".") {
		return fmt.Errorf("scene name %q: %w", name, domain.ErrInvalidInput)
	}
	return nil
}

func (w *Workspace) ScenePath(name string) string {
	return filepath.Join(w.Root, ScenesDirName, name+SceneExt)
}

func (w *Workspace) ExportsDir() string { return filepath.Join(w.Root, ExportsDirName) }

// SaveScene validates doc and writes it with transactional semantics and a
// timestamped backup of the previous version (if present).
func (w *Workspace) SaveScene(name string, doc []byte) error {
	if err := ValidName(name); err != nil {
		return err
	}
	if _, err := scenefile.Decode(doc); err != nil {
		return fmt.Errorf("save scene %q: %w", name, err)
	}
	target := w.ScenePath(name)
	bdir := filepath.Join(w.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("ensure scenes dir: %w", err)
	}

	if _, statErr := os.Stat(target); statErr == nil {
		bpath := filepath.Join(bdir, fmt.Sprintf("%s%s.%s.bak", name, SceneExt, time.Now().Format(backupStamp)))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup current scene: %w", cerr)
		}
	}

	// write to a temp file in the same directory, then rename over the target
	temp := filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.tmp-%d-%d", name, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, doc); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp scene: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace scene: %w", rerr)
	}
	applog.WithOperation(applog.WithComponent("storage"), "save_scene").Debug("scene written", slog.String("path", target), slog.Int("bytes", len(doc)))
	return nil
}

// OpenScene returns the validated document bytes of a scene. When the file is
// missing or corrupt the latest backup is tried.
func (w *Workspace) OpenScene(name string) ([]byte, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "open_scene").With(slog.String("scene", name))
	b, err := os.ReadFile(w.ScenePath(name))
	if err == nil {
		if _, err = scenefile.Decode(b); err == nil {
			return b, nil
		}
	}
	l.Warn("scene unreadable, trying latest backup", slog.Any("err", err))
	bb, berr := w.latestBackup(name)
	if berr != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open scene %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open scene %q: %w; backup attempt: %v", name, err, berr)
	}
	return bb, nil
}

// ListScenes returns the scene names in the workspace, sorted.
func (w *Workspace) ListScenes() ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(w.Root, ScenesDirName))
	if err != nil {
		return nil, fmt.Errorf("read scenes dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, SceneExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(n, SceneExt))
	}
	sort.Strings(out)
	return out, nil
}

// AutosaveCrashSnapshot writes doc next to the backups without validating it,
// so that whatever state existed at a crash survives.
func (w *Workspace) AutosaveCrashSnapshot(name string, doc []byte) (string, error) {
	if name == "" {
		name = "untitled"
	}
	bdir := filepath.Join(w.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s%s", filepath.Base(name), time.Now().Format("20060102-150405"), SceneExt))
	if err := writeFileSync(path, doc); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// latestBackup returns the newest backup of name that still validates.
func (w *Workspace) latestBackup(name string) ([]byte, error) {
	bdir := filepath.Join(w.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := name + SceneExt + "."
	var candidates []string
	for _, e := range ents {
		n := e.Name()
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, n))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			continue
		}
		if _, err := scenefile.Decode(b); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("no valid backup found")
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
