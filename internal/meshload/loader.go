/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package meshload fetches external glTF/GLB models and measures them.
// Every failure is reported as domain.ErrLoadFailed.
package meshload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"layoutquote/internal/domain"
	applog "layoutquote/internal/log"

	"github.com/qmuntal/gltf"
)

// MaxModelBytes caps the size of a downloaded model.
const MaxModelBytes = 64 << 20

// Loader measures the model at url.
type Loader interface {
	Load(ctx context.Context, url string) (domain.MeshInfo, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) (domain.MeshInfo, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (domain.MeshInfo, error) { return f(ctx, url) }

// HTTPLoader downloads models over HTTP(S). Models must be self-contained
// (GLB or glTF with embedded buffers).
type HTTPLoader struct {
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPLoader(timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{Client: &http.Client{}, Timeout: timeout}
}

func (h *HTTPLoader) Load(ctx context.Context, url string) (domain.MeshInfo, error) {
	l := applog.WithOperation(applog.WithComponent("meshload"), "http").With(slog.String("url", url))
	start := time.Now()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.MeshInfo{}, fail(url, err)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		l.Warn("fetch failed", slog.Any("err", err))
		return domain.MeshInfo{}, fail(url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return domain.MeshInfo{}, fail(url, fmt.Errorf("http status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxModelBytes+1))
	if err != nil {
		return domain.MeshInfo{}, fail(url, err)
	}
	if len(data) > MaxModelBytes {
		return domain.MeshInfo{}, fail(url, fmt.Errorf("model exceeds %d bytes", MaxModelBytes))
	}
	info, err := Measure(data)
	if err != nil {
		return domain.MeshInfo{}, fail(url, err)
	}
	l.Info("model measured", slog.Int("bytes", len(data)), slog.Int("parts", len(info.Parts)), slog.Duration("took", time.Since(start)))
	return info, nil
}

// FileLoader reads models from the local file system. External buffers are
// resolved relative to the model file.
type FileLoader struct{}

func (FileLoader) Load(ctx context.Context, path string) (domain.MeshInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.MeshInfo{}, fail(path, err)
	}
	doc, err := gltf.Open(strings.TrimPrefix(path, "file://"))
	if err != nil {
		return domain.MeshInfo{}, fail(path, err)
	}
	info, err := measure(doc)
	if err != nil {
		return domain.MeshInfo{}, fail(path, err)
	}
	return info, nil
}

// Measure decodes an in-memory GLB or glTF document and returns its bounds.
func Measure(data []byte) (domain.MeshInfo, error) {
	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return domain.MeshInfo{}, fmt.Errorf("decode gltf: %w", err)
	}
	return measure(&doc)
}

// Router sends http(s) URLs to Remote and everything else to Local.
type Router struct {
	Remote Loader
	Local  Loader
}

func (r Router) Load(ctx context.Context, url string) (domain.MeshInfo, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return r.Remote.Load(ctx, url)
	}
	return r.Local.Load(ctx, url)
}

func fail(url string, err error) error {
	return fmt.Errorf("load %s: %w: %v", url, domain.ErrLoadFailed, err)
}

// Cache keeps measured meshes by URL. It is safe for concurrent use and the
// zero value is ready to use.
type Cache struct {
	mu sync.RWMutex
	m  map[string]domain.MeshInfo
}

func NewCache() *Cache { return &Cache{m: map[string]domain.MeshInfo{}} }

func (c *Cache) Mesh(url string) (domain.MeshInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mi, ok := c.m[url]
	return mi, ok
}

func (c *Cache) Put(url string, mi domain.MeshInfo) {
	c.mu.Lock()
	if c.m == nil {
		c.m = map[string]domain.MeshInfo{}
	}
	c.m[url] = mi
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Warm loads every url that is not cached yet. Successful loads stay cached
// even when others fail; the failures are joined.
func (c *Cache) Warm(ctx context.Context, l Loader, urls ...string) error {
	var errs []error
	for _, u := range urls {
		if _, ok := c.Mesh(u); ok {
			continue
		}
		mi, err := l.Load(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.Put(u, mi)
	}
	return errors.Join(errs...)
}
