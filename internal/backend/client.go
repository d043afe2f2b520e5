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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/storage"
)

// Client is a minimal HTTP client for the backend API. It is the remote
// persistence gateway of the editor and an optional catalog source.
type Client struct {
	BaseURL string
	Token   string // bearer token, forwarded when set
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.client.Timeout = d
	}
	return c
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, u.Path, resp)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// statusError keeps the server's message and maps 404 and 400 onto the error taxonomy.
func statusError(method, path string, resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(b, &e)
	msg := resp.Status
	if e.Error != "" {
		msg = e.Error
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("server %s %s: %s: %w", method, path, msg, domain.ErrNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("server %s %s: %s: %w", method, path, msg, domain.ErrInvalidInput)
	case http.StatusConflict:
		return fmt.Errorf("server %s %s: %s: %w", method, path, msg, ErrConflict)
	}
	return fmt.Errorf("server %s %s: %s", method, path, msg)
}

// SaveProject submits a scene document with its quote total and returns the new id.
func (c *Client) SaveProject(ctx context.Context, name string, doc []byte, total int64) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	req := SaveRequest{Name: name, Objects: json.RawMessage(doc), TotalPrice: total}
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ListProjects returns up to limit projects, newest first.
func (c *Client) ListProjects(ctx context.Context, limit int) ([]storage.ProjectSummary, error) {
	p := "/api/projects"
	if limit > 0 {
		p += "?limit=" + strconv.Itoa(limit)
	}
	var list []storage.ProjectSummary
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetProject fetches one project including its document.
func (c *Client) GetProject(ctx context.Context, id string) (domain.ProjectRecord, error) {
	var rec domain.ProjectRecord
	err := c.doJSON(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

func (c *Client) ListPresets(ctx context.Context) ([]Preset, error) {
	var list []Preset
	if err := c.doJSON(ctx, http.MethodGet, "/api/presets", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreatePreset(ctx context.Context, it catalog.Item) (Preset, error) {
	var p Preset
	err := c.doJSON(ctx, http.MethodPost, "/api/presets", it, &p)
	return p, err
}

func (c *Client) DeletePreset(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/presets/"+url.PathEscape(id), nil, nil)
}

// Catalog fetches the presets and builds a catalog from them.
func (c *Client) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	list, err := c.ListPresets(ctx)
	if err != nil {
		return nil, err
	}
	return Catalog(list)
}
