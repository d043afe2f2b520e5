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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"layoutquote/internal/config"
	"layoutquote/internal/crash"
	applog "layoutquote/internal/log"
	"layoutquote/internal/telemetry"
	"layoutquote/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "layoutquote: store layout editor and quote tool")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  layoutquote version|-v|--version                    Show version")
	_, _ = fmt.Fprintln(w, "  layoutquote catalog [category]                      List presets of the configured catalog")
	_, _ = fmt.Fprintln(w, "  layoutquote quote <scene.json> [--json]             Price a scene document")
	_, _ = fmt.Fprintln(w, "  layoutquote export <scene.json> <outdir> [preset]   Export plan and quote (preset: print|web)")
	_, _ = fmt.Fprintln(w, "  layoutquote save <workspace> <scene.json> [name]    Store a scene in a workspace and its index")
	_, _ = fmt.Fprintln(w, "  layoutquote history <workspace> [name]              List stored projects or versions of one scene")
	_, _ = fmt.Fprintln(w, "  layoutquote submit <scene.json> <name>              Send a scene to the backend")
	_, _ = fmt.Fprintln(w, "  layoutquote serve                                   Run the project backend (PostgreSQL)")
	_, _ = fmt.Fprintln(w, "  layoutquote login <token> | logout                  Store or remove the backend token")
	_, _ = fmt.Fprintln(w, "  layoutquote config                                  Print the effective configuration")
	_, _ = fmt.Fprintln(w, "  layoutquote ui [<workspace> [scene]]                Launch desktop UI (build with -tags fyne)")
}

func main() {
	cfg, token, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Defaults()
	}
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config ignored, using defaults", slog.Any("err", cfgErr))
	}

	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := func() int {
		defer crash.Recover(nil, "", nil)
		c := &cli{cfg: cfg, token: token, out: os.Stdout, errOut: os.Stderr, events: telemetry.Default()}
		return c.run(ctx, os.Args[1:])
	}()
	stop()
	telemetry.Default().Flush(context.Background())
	telemetry.Default().Close()
	os.Exit(code)
}
