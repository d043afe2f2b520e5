/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"layoutquote/internal/backend"
	"layoutquote/internal/catalog"
	"layoutquote/internal/config"
	"layoutquote/internal/crash"
	"layoutquote/internal/domain"
	"layoutquote/internal/export"
	applog "layoutquote/internal/log"
	"layoutquote/internal/meshload"
	"layoutquote/internal/pricing"
	"layoutquote/internal/scene"
	"layoutquote/internal/scenefile"
	"layoutquote/internal/session"
	"layoutquote/internal/storage"
	"layoutquote/internal/ui"
	"layoutquote/internal/version"
)

// snapshotsKept is how many versions of a scene the index retains.
const snapshotsKept = 20

type cli struct {
	cfg    config.AppConfig
	token  string
	out    io.Writer
	errOut io.Writer
	events session.Events
	log    *slog.Logger
	// loader overrides the configured mesh loader (tests).
	loader meshload.Loader
}

// run executes one command and returns the process exit code: 0 on
// success, 1 on failure and 2 on usage errors.
func (c *cli) run(ctx context.Context, args []string) int {
	if c.log == nil {
		c.log = applog.WithComponent("cli")
	}
	c.log.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(c.out)
		return 0
	}
	need := func(n int, what string) bool {
		if len(args) < n+1 {
			_, _ = fmt.Fprintf(c.errOut, "%s requires %s\n", args[0], what)
			usage(c.errOut)
			return false
		}
		return true
	}

	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(c.out, version.String())
		return 0
	case "help", "-h", "--help":
		usage(c.out)
		return 0
	case "catalog":
		category := ""
		if len(args) > 1 {
			category = args[1]
		}
		err = c.catalogCmd(ctx, category)
	case "quote":
		if !need(1, "<scene.json>") {
			return 2
		}
		err = c.quoteCmd(ctx, args[1], len(args) > 2 && args[2] == "--json")
	case "export":
		if !need(2, "<scene.json> and <outdir>") {
			return 2
		}
		preset := export.PresetPrint
		if len(args) > 3 {
			preset = export.PresetName(args[3])
		}
		err = c.exportCmd(ctx, args[1], args[2], preset)
	case "save":
		if !need(2, "<workspace> and <scene.json>") {
			return 2
		}
		name := ""
		if len(args) > 3 {
			name = args[3]
		}
		err = c.saveCmd(ctx, args[1], args[2], name)
	case "history":
		if !need(1, "<workspace>") {
			return 2
		}
		name := ""
		if len(args) > 2 {
			name = args[2]
		}
		err = c.historyCmd(ctx, args[1], name)
	case "submit":
		if !need(2, "<scene.json> and <name>") {
			return 2
		}
		err = c.submitCmd(ctx, args[1], args[2])
	case "serve":
		err = c.serveCmd(ctx)
	case "login":
		if !need(1, "<token>") {
			return 2
		}
		err = config.Save(c.cfg, args[1])
		if err == nil {
			_, _ = fmt.Fprintln(c.out, "Token stored in the OS keychain.")
		}
	case "logout":
		err = config.ClearToken()
		if err == nil {
			_, _ = fmt.Fprintln(c.out, "Token removed.")
		}
	case "config":
		err = c.configCmd()
	case "ui":
		err = c.uiCmd(ctx, args[1:])
	default:
		_, _ = fmt.Fprintf(c.errOut, "unknown command %q\n", args[0])
		usage(c.errOut)
		return 2
	}
	if err != nil {
		c.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(c.errOut, "Error:", err)
		return 1
	}
	return 0
}

func (c *cli) client() *backend.Client {
	return backend.NewClient(c.cfg.Backend.BaseURL, c.token).WithTimeout(c.cfg.Backend.Timeout())
}

func (c *cli) meshLoader() meshload.Loader {
	if c.loader != nil {
		return c.loader
	}
	return meshload.Router{Remote: meshload.NewHTTPLoader(c.cfg.Loader.Timeout()), Local: meshload.FileLoader{}}
}

func (c *cli) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	switch c.cfg.Catalog.Source {
	case config.CatalogFile:
		return catalog.LoadFile(c.cfg.Catalog.File)
	case config.CatalogBackend:
		return c.client().Catalog(ctx)
	default:
		return catalog.Builtin(), nil
	}
}

// resolveScene rebuilds a document with all of its models measured, so
// that every entry is placed and priced. Skipped entries and models that
// failed to load are reported but not fatal.
func (c *cli) resolveScene(ctx context.Context, cat *catalog.Catalog, data []byte) (*scene.Scene, error) {
	doc, err := scenefile.Decode(data)
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, rec := range doc.Objects {
		if it, err := cat.Lookup(rec.Category, rec.PresetName); err == nil && it.Kind.IsMesh() {
			urls = append(urls, it.URL)
		}
	}
	cache := meshload.NewCache()
	if len(urls) > 0 {
		if err := cache.Warm(ctx, c.meshLoader(), urls...); err != nil {
			_, _ = fmt.Fprintln(c.errOut, "Warning:", err)
		}
	}
	sc, skips, err := scenefile.Rebuild(doc, cat, cache)
	if err != nil {
		return nil, err
	}
	for _, s := range skips {
		_, _ = fmt.Fprintln(c.errOut, "Skipped:", s)
	}
	if n := len(sc.Pending()); n > 0 {
		_, _ = fmt.Fprintf(c.errOut, "Warning: %d model(s) could not be measured and are not priced\n", n)
	}
	return sc, nil
}

func (c *cli) openScene(ctx context.Context, path string) (*scene.Scene, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read scene: %w", err)
	}
	cat, err := c.loadCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	sc, err := c.resolveScene(ctx, cat, data)
	if err != nil {
		return nil, nil, err
	}
	return sc, data, nil
}

func sceneName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (c *cli) catalogCmd(ctx context.Context, category string) error {
	cat, err := c.loadCatalog(ctx)
	if err != nil {
		return err
	}
	items := cat.All()
	if category != "" {
		items = cat.ListByCategory(category)
		if len(items) == 0 {
			return fmt.Errorf("category %q: %w", category, domain.ErrNotFound)
		}
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CATEGORY\tNAME\tKIND\tSIZE (mm)\tPRICE")
	for _, it := range items {
		size := "-"
		if !it.Kind.IsMesh() {
			size = fmt.Sprintf("%gx%gx%g", it.Footprint.Width, it.Footprint.Height, it.Footprint.Depth)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.Category, it.Name, it.Kind, size, pricing.FormatWon(it.Price))
	}
	return tw.Flush()
}

func (c *cli) quoteCmd(ctx context.Context, path string, asJSON bool) error {
	sc, _, err := c.openScene(ctx, path)
	if err != nil {
		return err
	}
	q := pricing.Compute(sc)
	c.events.Event("quote", map[string]any{"objects": sc.Len()})
	if asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, ln := range q.Lines {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", ln.Category, ln.Name, pricing.FormatWon(ln.Price))
	}
	_ = tw.Flush()
	if s := q.Summary(); s != "" {
		_, _ = fmt.Fprintln(c.out, s)
	}
	_, _ = fmt.Fprintf(c.out, "Total: %s\n", pricing.FormatWon(q.Total))
	return nil
}

func (c *cli) exportCmd(ctx context.Context, path, outDir string, preset export.PresetName) error {
	if preset != export.PresetPrint && preset != export.PresetWeb {
		return fmt.Errorf("unknown preset %q: %w", preset, domain.ErrInvalidInput)
	}
	sc, _, err := c.openScene(ctx, path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	paths, err := export.BatchExport(nil, sceneName(path), sc, export.BatchOptions{Preset: preset, OutDir: abs, FontPath: c.cfg.Export.FontPath})
	if err != nil {
		return err
	}
	c.events.Event("export", map[string]any{"preset": string(preset), "count": len(paths)})
	for _, p := range paths {
		_, _ = fmt.Fprintln(c.out, p)
	}
	return nil
}

func (c *cli) saveCmd(ctx context.Context, root, path, name string) error {
	if name == "" {
		name = sceneName(path)
	}
	if err := storage.ValidName(name); err != nil {
		return err
	}
	ws, err := storage.InitWorkspace(root)
	if err != nil {
		return err
	}
	sc, data, err := c.openScene(ctx, path)
	if err != nil {
		return err
	}
	defer crash.Recover(ws, name, func() []byte { return data })

	if err := ws.SaveScene(name, data); err != nil {
		return err
	}
	ix, err := storage.OpenIndex(ws.Root)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()
	id, err := ix.SaveProject(ctx, name, data, pricing.Total(sc))
	if err != nil {
		return err
	}
	if err := ix.SaveSnapshot(ctx, name, data, time.Now()); err != nil {
		return err
	}
	if _, err := ix.PruneOldSnapshots(ctx, name, snapshotsKept); err != nil {
		c.log.Warn("prune snapshots failed", slog.Any("err", err))
	}
	_, _ = fmt.Fprintf(c.out, "Saved %s (%s, %s)\n", name, id, pricing.FormatWon(pricing.Total(sc)))
	return nil
}

func (c *cli) historyCmd(ctx context.Context, root, name string) error {
	ws, err := storage.OpenWorkspace(root)
	if err != nil {
		return err
	}
	ix, err := storage.OpenIndex(ws.Root)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	if name == "" {
		ps, err := ix.ListProjects(ctx, 50)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tOBJECTS\tTOTAL\tCREATED")
		for _, p := range ps {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Objects, pricing.FormatWon(p.TotalPrice), p.CreatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	}
	snaps, err := ix.ListSnapshots(ctx, name, snapshotsKept)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("no versions of %q: %w", name, domain.ErrNotFound)
	}
	_, _ = fmt.Fprintln(tw, "SAVED\tBYTES")
	for _, s := range snaps {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", s.TS.Local().Format(time.DateTime), len(s.Blob))
	}
	return tw.Flush()
}

func (c *cli) submitCmd(ctx context.Context, path, name string) error {
	sc, _, err := c.openScene(ctx, path)
	if err != nil {
		return err
	}
	doc, err := scenefile.Encode(scenefile.Serialize(sc))
	if err != nil {
		return err
	}
	id, err := c.client().SaveProject(ctx, name, doc, pricing.Total(sc))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, id)
	return nil
}

func (c *cli) serveCmd(ctx context.Context) error {
	bcfg := backend.ConfigFromEnv()
	if c.cfg.Backend.DatabaseURL != "" {
		bcfg.DBURL = c.cfg.Backend.DatabaseURL
	}
	err := backend.Start(ctx, bcfg)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *cli) configCmd() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "# %s\n", path)
	enc := yaml.NewEncoder(c.out)
	enc.SetIndent(2)
	if err := enc.Encode(c.cfg); err != nil {
		return err
	}
	return enc.Close()
}

func (c *cli) uiCmd(ctx context.Context, args []string) error {
	cat, err := c.loadCatalog(ctx)
	if err != nil {
		return err
	}
	opts := ui.Options{
		Catalog:     cat,
		Loader:      c.meshLoader(),
		Events:      c.events,
		AreaWidth:   c.cfg.General.DefaultAreaWidth,
		Sensitivity: c.cfg.General.RotateSensitivity,
		FontPath:    c.cfg.Export.FontPath,
	}
	if c.cfg.Backend.BaseURL != "" {
		opts.Gateway = c.client()
	}
	if len(args) > 0 {
		ws, err := storage.InitWorkspace(args[0])
		if err != nil {
			return err
		}
		ix, err := storage.OpenIndex(ws.Root)
		if err != nil {
			return err
		}
		defer func() { _ = ix.Close() }()
		opts.Workspace, opts.Index = ws, ix
		if len(args) > 1 {
			opts.Scene = args[1]
		}
	}
	return ui.Run(opts)
}
