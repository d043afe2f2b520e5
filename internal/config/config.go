/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"layoutquote/internal/domain"
	applog "layoutquote/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	DefaultAreaWidth  float64 `yaml:"default_area_width"` // mm
	RotateSensitivity float64 `yaml:"rotate_sensitivity"` // radians per pixel
	TelemetryOptIn    bool    `yaml:"telemetry_opt_in"`
}

// Catalog sources.
const (
	CatalogBuiltin = "builtin"
	CatalogFile    = "file"
	CatalogBackend = "backend"
)

type CatalogConfig struct {
	Source string `yaml:"source"` // builtin | file | backend
	File   string `yaml:"file"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	DatabaseURL string `yaml:"database_url"` // used by the server
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoaderConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

type ExportConfig struct {
	FontPath string `yaml:"font_path"` // UTF-8 TTF for Hangul in PDF and PNG output
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Catalog       CatalogConfig `yaml:"catalog"`
	Backend       BackendConfig `yaml:"backend"`
	Loader        LoaderConfig  `yaml:"loader"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{DefaultAreaWidth: 3640, RotateSensitivity: 0.01},
		Catalog:       CatalogConfig{Source: CatalogBuiltin},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Loader:        LoaderConfig{TimeoutMs: 30000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "LQ_CONFIG"
	EnvAreaWidth        = "LQ_AREA_WIDTH"
	EnvTelemetryOptIn   = "LQ_TELEMETRY_OPT_IN"
	EnvCatalogSource    = "LQ_CATALOG_SOURCE"
	EnvCatalogFile      = "LQ_CATALOG_FILE"
	EnvBackendURL       = "LQ_BACKEND_URL"
	EnvBackendTimeoutMs = "LQ_BACKEND_TIMEOUT_MS"
	EnvDatabaseURL      = "LQ_DATABASE_URL"
	EnvLoaderTimeoutMs  = "LQ_LOADER_TIMEOUT_MS"
	EnvExportFont       = "LQ_EXPORT_FONT"
	// EnvLogLevel Logging envs
	EnvLogLevel  = applog.EnvLevel
	EnvLogFormat = applog.EnvFormat
	EnvLogSource = applog.EnvSource
	EnvLogFile   = applog.EnvFile
)

// Service/keys for OS keyring.
const (
	keyringService = "layoutquote"
	keyringToken   = "backend_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error   { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error       { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. LQ_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "LayoutQuote")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "LayoutQuote")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "layoutquote")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "layoutquote")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend token from keyring (not kept inside the struct; returned separately).
// A missing keyring entry is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w: %v", path, domain.ErrInvalidInput, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, "", err
	}
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		applog.WithComponent("config").Debug("keyring unavailable", "err", err)
	}
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the backend token from the keyring.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Validate checks values that would make the editor unusable.
func (c AppConfig) Validate() error {
	var errs []error
	if c.General.DefaultAreaWidth <= 0 {
		errs = append(errs, fmt.Errorf("general.default_area_width %g must be positive", c.General.DefaultAreaWidth))
	}
	switch c.Catalog.Source {
	case CatalogBuiltin, CatalogBackend:
	case CatalogFile:
		if strings.TrimSpace(c.Catalog.File) == "" {
			errs = append(errs, errors.New("catalog.file is required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source %q is not builtin, file or backend", c.Catalog.Source))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.DefaultAreaWidth != 0 {
		dst.General.DefaultAreaWidth = src.General.DefaultAreaWidth
	}
	if src.General.RotateSensitivity != 0 {
		dst.General.RotateSensitivity = src.General.RotateSensitivity
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.ToLower(strings.TrimSpace(src.Catalog.Source)); s != "" {
		dst.Catalog.Source = s
	}
	if src.Catalog.File != "" {
		dst.Catalog.File = src.Catalog.File
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	if src.Backend.DatabaseURL != "" {
		dst.Backend.DatabaseURL = src.Backend.DatabaseURL
	}
	if src.Loader.TimeoutMs != 0 {
		dst.Loader.TimeoutMs = src.Loader.TimeoutMs
	}
	if src.Export.FontPath != "" {
		dst.Export.FontPath = src.Export.FontPath
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAreaWidth)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.General.DefaultAreaWidth = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogSource)); v != "" {
		cfg.Catalog.Source = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogFile)); v != "" {
		cfg.Catalog.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Backend.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLoaderTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Loader.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFont)); v != "" {
		cfg.Export.FontPath = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.default_area_width": EnvAreaWidth,
	"general.telemetry_opt_in":   EnvTelemetryOptIn,
	"catalog.source":             EnvCatalogSource,
	"catalog.file":               EnvCatalogFile,
	"backend.base_url":           EnvBackendURL,
	"backend.timeout_ms":         EnvBackendTimeoutMs,
	"backend.database_url":       EnvDatabaseURL,
	"loader.timeout_ms":          EnvLoaderTimeoutMs,
	"export.font_path":           EnvExportFont,
	"logging.level":              EnvLogLevel,
	"logging.format":             EnvLogFormat,
	"logging.source":             EnvLogSource,
	"logging.file":               EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return millis(b.TimeoutMs, Defaults().Backend.TimeoutMs)
}

// Timeout returns the per-mesh load timeout.
func (l LoaderConfig) Timeout() time.Duration {
	return millis(l.TimeoutMs, Defaults().Loader.TimeoutMs)
}
