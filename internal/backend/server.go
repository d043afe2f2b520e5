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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	applog "layoutquote/internal/log"
	"layoutquote/internal/version"
)

const maxBody = 4 << 20

// SaveRequest is the body of POST /api/projects. Objects holds the scene document.
type SaveRequest struct {
	Name       string          `json:"name"`
	Objects    json.RawMessage `json:"objects"`
	TotalPrice int64           `json:"total_price"`
}

// NewServer returns the HTTP API backed by a Postgres database.
func NewServer(db *sql.DB) http.Handler {
	return NewHandler(&PGStore{DB: db})
}

// NewHandler returns the HTTP API over any Store.
func NewHandler(st Store) http.Handler {
	l := applog.WithComponent("backend")
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})

	mux.HandleFunc("GET /api/projects", func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
				return
			}
			limit = n
		}
		list, err := st.ListProjects(r.Context(), limit)
		if err != nil {
			writeStoreError(w, l, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("POST /api/projects", func(w http.ResponseWriter, r *http.Request) {
		var req SaveRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		id, err := st.SaveProject(r.Context(), req.Name, req.Objects, req.TotalPrice)
		if err != nil {
			writeStoreError(w, l, err)
			return
		}
		l.Info("project saved", slog.String("id", id), slog.String("name", req.Name), slog.Int64("total", req.TotalPrice))
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	})
	mux.HandleFunc("GET /api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := st.GetProject(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, l, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	mux.HandleFunc("GET /api/presets", func(w http.ResponseWriter, r *http.Request) {
		list, err := st.ListPresets(r.Context())
		if err != nil {
			writeStoreError(w, l, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("POST /api/presets", func(w http.ResponseWriter, r *http.Request) {
		var it catalog.Item
		if err := readJSON(r, &it); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p, err := st.CreatePreset(r.Context(), it)
		if err != nil {
			writeStoreError(w, l, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	})
	mux.HandleFunc("DELETE /api/presets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeletePreset(r.Context(), r.PathValue("id")); err != nil {
			writeStoreError(w, l, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func readJSON(r *http.Request, dest any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// writeStoreError maps the error taxonomy onto status codes.
func writeStoreError(w http.ResponseWriter, l *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrCorruptDocument):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err)
	default:
		l.Error("store failure", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
