//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"

	"layoutquote/internal/attach"
	"layoutquote/internal/catalog"
	"layoutquote/internal/control"
	"layoutquote/internal/crash"
	"layoutquote/internal/domain"
	"layoutquote/internal/export"
	applog "layoutquote/internal/log"
	"layoutquote/internal/pricing"
	"layoutquote/internal/scene"
	"layoutquote/internal/session"
	"layoutquote/internal/storage"
	"layoutquote/internal/vector"
	"layoutquote/internal/version"
)

// fyneProjector hands views and errors over to the UI goroutine.
type fyneProjector struct {
	render func(session.View)
	report func(error)
}

func (p fyneProjector) Render(v session.View) { fyne.Do(func() { p.render(v) }) }
func (p fyneProjector) Report(err error)      { fyne.Do(func() { p.report(err) }) }

// Run starts the Fyne editor: catalog on the left, the floor plan in the
// middle, inspector and quote on the right. The session runs on its own
// goroutine and every UI action is sent to it as an input.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))
	if opts.Catalog == nil {
		opts.Catalog = catalog.Builtin()
	}

	fyneApp := app.NewWithID("layoutquote")
	w := fyneApp.NewWindow("layoutquote")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 900 {
		winW = 900
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	plan := NewPlanCanvas()
	plan.SetLabels(prefs.BoolWithFallback("plan.labels", true))

	// quote panel
	totalLabel := widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	summaryLabel := widget.NewLabel("")
	summaryLabel.Wrapping = fyne.TextWrapWord
	var lines []pricing.Line
	linesList := widget.NewList(
		func() int { return len(lines) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			ln := lines[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s (%s) %s", ln.Name, ln.Category, pricing.FormatWon(ln.Price)))
		},
	)

	// inspector
	selLabel := widget.NewLabelWithStyle("Nothing selected", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	sizeEntries := [3]*widget.Entry{widget.NewEntry(), widget.NewEntry(), widget.NewEntry()}
	colorEntry := widget.NewEntry()
	colorEntry.SetPlaceHolder("#rrggbb")
	yEntry := widget.NewEntry()
	areaEntry := widget.NewEntry()
	areaLabel := widget.NewLabel("")
	lastSel := uuid.Nil

	inputs := make(chan session.Input, 64)
	send := func(in session.Input) { inputs <- in }

	var undoBtn, redoBtn *widget.Button

	proj := fyneProjector{
		render: func(v session.View) {
			plan.SetView(v)
			totalLabel.SetText("Total " + pricing.FormatWon(v.Quote.Total))
			summaryLabel.SetText(v.Quote.Summary())
			lines = v.Quote.Lines
			linesList.Refresh()
			setEnabled(undoBtn, v.CanUndo)
			setEnabled(redoBtn, v.CanRedo)
			areaLabel.SetText(fmt.Sprintf("Floor %.0f mm", v.AreaWidth))
			if v.Pending > 0 {
				status.SetText(fmt.Sprintf("Loading %d model(s)", v.Pending))
			}
			in, ok := v.SelectedInstance()
			if !ok {
				selLabel.SetText("Nothing selected")
				lastSel = uuid.Nil
				return
			}
			selLabel.SetText(fmt.Sprintf("%s · %s", in.Item.Name, pricing.FormatWon(in.Item.Price)))
			// refill the entries only when the selection changes so typing is not clobbered
			if in.ID != lastSel || v.State != control.Idle {
				rs := in.RealSize()
				for a, e := range sizeEntries {
					e.SetText(strconv.FormatFloat(vector.FloatRound(rs.Get(vector.Axis(a)), 1), 'f', -1, 64))
				}
				colorEntry.SetText(in.Color.Hex())
				yEntry.SetText(strconv.FormatFloat(vector.FloatRound(in.Position.Y, 1), 'f', -1, 64))
				lastSel = in.ID
			}
		},
		report: func(err error) {
			l.Warn("action failed", slog.Any("err", err))
			status.SetText(err.Error())
			if !errors.Is(err, domain.ErrNotFound) {
				dialog.ShowError(err, w)
			}
		},
	}

	sess, err := session.New(session.Options{
		Catalog:     opts.Catalog,
		Loader:      opts.Loader,
		Projector:   proj,
		Events:      opts.Events,
		AreaWidth:   opts.AreaWidth,
		Sensitivity: opts.Sensitivity,
		Viewport:    control.Viewport{Width: 800, Height: 600},
		Camera:      planCamera,
	})
	if err != nil {
		return err
	}
	sceneName := opts.Scene
	defer crash.Recover(opts.Workspace, sceneName, sess.Snapshot)

	plan.OnResize = func(vp control.Viewport) { send(func(s *session.Session) error { s.SetViewport(vp); return nil }) }
	plan.OnPointer = func(kind PointerKind, ev control.PointerEvent) {
		send(func(s *session.Session) error {
			switch kind {
			case PointerDown:
				s.PointerDown(ev)
			case PointerMove:
				s.PointerMove(ev)
			case PointerUp:
				s.PointerUp(ev)
			}
			return nil
		})
	}

	// catalog
	modeSelect := widget.NewSelect([]string{"Floor", "Above", "Front"}, nil)
	modeSelect.SetSelected("Floor")
	left := container.NewVBox(widget.NewLabelWithStyle("Catalog", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), widget.NewForm(widget.NewFormItem("Place", modeSelect)))
	for _, cat := range opts.Catalog.Categories() {
		left.Add(widget.NewSeparator())
		left.Add(widget.NewLabel(cat))
		for _, it := range opts.Catalog.ListByCategory(cat) {
			left.Add(widget.NewButton(fmt.Sprintf("%s %s  %s", it.Icon, it.Name, pricing.FormatWon(it.Price)), func() {
				mode := modeSelect.Selected
				send(func(s *session.Session) error {
					if mode == "" || mode == "Floor" {
						_, err := s.Add(it.Category, it.Name)
						return err
					}
					m, err := attach.ParseMode(mode)
					if err != nil {
						return err
					}
					_, err = s.Attach(m, it.Category, it.Name)
					return err
				})
			}))
		}
	}

	// inspector actions
	applySize := widget.NewButton("Apply size", func() {
		vals := [3]string{}
		for a, e := range sizeEntries {
			vals[a] = e.Text
		}
		send(func(s *session.Session) error {
			for a, txt := range vals {
				v, err := parseMM(txt)
				if err != nil {
					return err
				}
				sel, ok := s.Scene().Selected()
				if !ok {
					return session.ErrNoSelection
				}
				if vector.FloatRound(sel.RealSize().Get(vector.Axis(a)), 1) == vector.FloatRound(v, 1) {
					continue
				}
				if err := s.Resize(vector.Axis(a), v); err != nil {
					return err
				}
			}
			return nil
		})
	})
	applyColor := widget.NewButton("Apply color", func() {
		txt := colorEntry.Text
		send(func(s *session.Session) error {
			c, err := domain.ParseColor(txt)
			if err != nil {
				return err
			}
			return s.SetColor(c)
		})
	})
	applyY := widget.NewButton("Apply height", func() {
		txt := yEntry.Text
		send(func(s *session.Session) error {
			y, err := parseMM(txt)
			if err != nil {
				return err
			}
			return s.SetVerticalPosition(y)
		})
	})
	removeBtn := widget.NewButton("Remove", func() { send(func(s *session.Session) error { return s.Remove() }) })
	applyArea := widget.NewButton("Set floor", func() {
		txt := areaEntry.Text
		send(func(s *session.Session) error {
			v, err := parseMM(txt)
			if err != nil {
				return err
			}
			return s.SetAreaWidth(v)
		})
	})
	areaEntry.SetPlaceHolder(strconv.FormatFloat(scene.DefaultAreaWidth, 'f', -1, 64))

	undoBtn = widget.NewButton("Undo", func() { send(func(s *session.Session) error { _, err := s.Undo(); return err }) })
	redoBtn = widget.NewButton("Redo", func() { send(func(s *session.Session) error { _, err := s.Redo(); return err }) })
	undoBtn.Disable()
	redoBtn.Disable()

	inspector := container.NewVBox(
		selLabel,
		widget.NewForm(
			widget.NewFormItem("Width", sizeEntries[0]),
			widget.NewFormItem("Height", sizeEntries[1]),
			widget.NewFormItem("Depth", sizeEntries[2]),
		),
		applySize,
		widget.NewForm(widget.NewFormItem("Color", colorEntry), widget.NewFormItem("Y", yEntry)),
		container.NewGridWithColumns(2, applyColor, applyY),
		removeBtn,
		widget.NewSeparator(),
		areaLabel,
		container.NewBorder(nil, nil, nil, applyArea, areaEntry),
		widget.NewSeparator(),
		totalLabel,
		summaryLabel,
	)
	right := container.NewBorder(inspector, nil, nil, nil, linesList)

	// file actions
	saveBtn := widget.NewButton("Save", func() {
		if opts.Workspace == nil {
			status.SetText("No workspace open")
			return
		}
		askName(w, "Save scene", sceneName, func(name string) {
			sceneName = name
			send(func(s *session.Session) error {
				if err := saveScene(s, opts.Workspace, opts.Index, name); err != nil {
					return err
				}
				fyne.Do(func() { status.SetText("Saved " + name) })
				return nil
			})
		})
	})
	openBtn := widget.NewButton("Open", func() {
		dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer func() { _ = rc.Close() }()
			b, rerr := io.ReadAll(rc)
			if rerr != nil {
				dialog.ShowError(rerr, w)
				return
			}
			send(func(s *session.Session) error {
				skips, err := s.Load(b)
				if err != nil {
					return err
				}
				fyne.Do(func() { status.SetText(skipSummary(len(skips))) })
				return nil
			})
		}, w)
	})
	exportBtn := widget.NewButton("Export", func() {
		name := sceneName
		if name == "" {
			name = "layout"
		}
		bo := export.BatchOptions{Preset: export.PresetPrint, OutDir: exportDir(opts.Workspace), FontPath: opts.FontPath}
		send(func(s *session.Session) error {
			paths, err := export.BatchExport(opts.Workspace, name, s.Scene(), bo)
			if err != nil {
				return err
			}
			fyne.Do(func() { status.SetText(fmt.Sprintf("Exported %d file(s)", len(paths))) })
			return nil
		})
	})
	top := container.NewHBox(openBtn, saveBtn, exportBtn, widget.NewSeparator(), undoBtn, redoBtn)
	if opts.Gateway != nil {
		top.Add(widget.NewSeparator())
		top.Add(widget.NewButton("Submit", func() {
			askName(w, "Submit project", sceneName, func(name string) {
				send(func(s *session.Session) error {
					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					id, err := s.Submit(ctx, opts.Gateway, name)
					if err != nil {
						return err
					}
					fyne.Do(func() { status.SetText("Submitted as " + id) })
					return nil
				})
			})
		}))
	}
	labelsCheck := widget.NewCheck("Labels", func(on bool) {
		plan.SetLabels(on)
		prefs.SetBool("plan.labels", on)
	})
	labelsCheck.SetChecked(plan.showLbl)
	top.Add(labelsCheck)

	split := container.NewHSplit(container.NewVScroll(left), container.NewHSplit(plan, right))
	split.Offset = 0.2
	w.SetContent(container.NewBorder(top, status, nil, nil, split))

	if opts.Workspace != nil && opts.Scene != "" {
		ws, name := opts.Workspace, opts.Scene
		send(func(s *session.Session) error {
			doc, err := ws.OpenScene(name)
			if err != nil {
				return err
			}
			_, err = s.Load(doc)
			return err
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer crash.Recover(opts.Workspace, sceneName, sess.Snapshot)
		if err := sess.Run(ctx, inputs); err != nil && !errors.Is(err, context.Canceled) {
			l.Error("session stopped", slog.Any("err", err))
		}
	}()

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cancel()
	})
	w.ShowAndRun()
	return nil
}

func setEnabled(b *widget.Button, on bool) {
	if b == nil {
		return
	}
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

func parseMM(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", s, domain.ErrInvalidInput)
	}
	return v, nil
}

func skipSummary(n int) string {
	if n == 0 {
		return "Scene loaded"
	}
	return fmt.Sprintf("Scene loaded, %d unknown preset(s) skipped", n)
}

// exportDir keeps UI exports together when there is no workspace.
func exportDir(ws *storage.Workspace) string {
	if ws != nil {
		return ""
	}
	return fyne.CurrentApp().Storage().RootURI().Path()
}

// saveScene writes the document to the workspace and records it in the
// index when one is open.
func saveScene(s *session.Session, ws *storage.Workspace, ix *storage.Index, name string) error {
	doc, err := s.Save()
	if err != nil {
		return err
	}
	if err := ws.SaveScene(name, doc); err != nil {
		return err
	}
	if ix == nil {
		return nil
	}
	ctx := context.Background()
	if _, err := ix.SaveProject(ctx, name, doc, s.Quote().Total); err != nil {
		return err
	}
	return ix.SaveSnapshot(ctx, name, doc, time.Now())
}

func askName(w fyne.Window, title, initial string, done func(string)) {
	e := widget.NewEntry()
	e.SetText(initial)
	dialog.ShowForm(title, "OK", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", e)}, func(ok bool) {
		if !ok {
			return
		}
		name := strings.TrimSpace(e.Text)
		if err := storage.ValidName(name); err != nil {
			dialog.ShowError(err, w)
			return
		}
		done(name)
	}, w)
}
