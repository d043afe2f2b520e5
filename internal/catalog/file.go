/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	applog "layoutquote/internal/log"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a catalog file:
//
//	items:
//	  - name: 상자
//	    category: 디자인물
//	    type: box
//	    size: {width: 100, height: 100, depth: 100}
//	    color: "#3399ff"
//	    price: 7000
type File struct {
	Items []Item `yaml:"items"`
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "load_file").With(slog.String("path", path))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	c, err := Decode(f)
	if err != nil {
		l.Error("catalog rejected", slog.Any("err", err))
		return nil, err
	}
	l.Info("catalog loaded", slog.Int("items", c.Len()), slog.Int("categories", len(c.categories)))
	return c, nil
}

// Decode parses catalog YAML. Unknown keys are rejected.
func Decode(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Items...)
}

// Encode writes c as catalog YAML.
func Encode(w io.Writer, c *Catalog) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(File{Items: c.All()}); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
