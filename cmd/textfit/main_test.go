/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	applog "textfit/internal/log"
	"textfit/internal/version"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 250, 250, 250, 255
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

// setupWorkspace writes a base, an alternative base and a config into a temp
// dir and returns the dir and the config path.
func setupWorkspace(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "base.png"), 300, 200)
	writeImage(t, filepath.Join(dir, "alt.png"), 320, 200)
	cfg := `fonts:
  file: missing.ttf
base:
  image: base.png
  mapping:
    "#alt#": alt.png
  use_overlay: false
box:
  top_left: [10, 10]
  bottom_right: [290, 190]
logging:
  level: error
`
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir, p
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	return img
}

func TestRun_VersionAndUsage(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != 0 || strings.TrimSpace(out) != version.String() {
		t.Fatalf("version: code=%d out=%q", code, out)
	}
	if code, _, errOut := runCLI(t, "", "bogus"); code != 2 || !strings.Contains(errOut, "Usage:") {
		t.Fatalf("unknown command: code=%d", code)
	}
	if code, _, _ := runCLI(t, ""); code != 2 {
		t.Fatalf("no command: code=%d", code)
	}
	if code, _, _ := runCLI(t, "", "text"); code != 2 {
		t.Fatalf("text without args: code=%d", code)
	}
}

func TestRun_TextWritesPNG(t *testing.T) {
	dir, cfg := setupWorkspace(t)
	out := filepath.Join(dir, "out", "dialog.png")
	code, stdout, stderr := runCLI(t, "", "text", "-config", cfg, "-o", out, "hello", "[world]")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != out {
		t.Fatalf("expected output path on stdout, got %q", stdout)
	}
	img := decodePNG(t, out)
	if img.Bounds() != image.Rect(0, 0, 300, 200) {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	inked := false
	for y := 10; y < 190 && !inked; y++ {
		for x := 10; x < 290; x++ {
			if c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA); c.R < 200 {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Fatalf("no text drawn")
	}
}

func TestRun_TextKeywordSwitchesBase(t *testing.T) {
	dir, cfg := setupWorkspace(t)
	out := filepath.Join(dir, "alt.png.out.png")
	if code, _, stderr := runCLI(t, "", "text", "-config", cfg, "-o", out, "#alt# hi"); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if b := decodePNG(t, out).Bounds(); b.Dx() != 320 {
		t.Fatalf("keyword did not switch the base image: %v", b)
	}

	// only a keyword: nothing to draw, nothing written
	empty := filepath.Join(dir, "empty.png")
	if code, _, stderr := runCLI(t, "", "text", "-config", cfg, "-o", empty, "#alt#"); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Fatalf("expected no output for keyword-only text")
	}
}

func TestRun_TextFromStdinAsPDF(t *testing.T) {
	dir, cfg := setupWorkspace(t)
	out := filepath.Join(dir, "dialog.pdf")
	if code, _, stderr := runCLI(t, "hello from stdin\n", "text", "-config", cfg, "-o", out, "-"); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected a PDF picked from the extension (%v)", err)
	}
}

func TestRun_Image(t *testing.T) {
	dir, cfg := setupWorkspace(t)
	content := filepath.Join(dir, "content.png")
	writeImage(t, content, 60, 30)
	out := filepath.Join(dir, "pasted.png")
	if code, _, stderr := runCLI(t, "", "image", "-config", cfg, "-o", out, content); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if b := decodePNG(t, out).Bounds(); b != image.Rect(0, 0, 300, 200) {
		t.Fatalf("unexpected size %v", b)
	}
	if code, _, _ := runCLI(t, "", "image", "-config", cfg, "-o", out, filepath.Join(dir, "nope.png")); code != 1 {
		t.Fatalf("missing content should fail with 1, got %d", code)
	}
	if code, _, _ := runCLI(t, "", "image", "-config", cfg, "-format", "gif", content); code != 2 {
		t.Fatalf("bad format should be a usage error, got %d", code)
	}
}

func TestRun_ConfigInitAndPrint(t *testing.T) {
	p := filepath.Join(t.TempDir(), "conf", "config.yaml")
	code, out, stderr := runCLI(t, "", "config", "init", p)
	if code != 0 || strings.TrimSpace(out) != p {
		t.Fatalf("init: code=%d out=%q err=%s", code, out, stderr)
	}
	if code, _, _ := runCLI(t, "", "config", "init", p); code != 1 {
		t.Fatalf("second init must refuse to overwrite, got %d", code)
	}
	code, out, stderr = runCLI(t, "", "config", "-config", p)
	if code != 0 {
		t.Fatalf("print: code=%d err=%s", code, stderr)
	}
	if !strings.HasPrefix(out, "# "+p) || !strings.Contains(out, "wrap_algorithm: greedy") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestFileWatcher_SignalsWrite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "dialog.txt")
	if err := os.WriteFile(p, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := newFileWatcher(p)
	if err != nil {
		t.Fatalf("newFileWatcher: %v", err)
	}
	defer w.Close()
	if err := os.WriteFile(p, []byte("b"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatalf("no change event")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFileWatcher_PollingFallback(t *testing.T) {
	old := pollInterval
	pollInterval = 10 * time.Millisecond
	t.Cleanup(func() { pollInterval = old })

	p := filepath.Join(t.TempDir(), "dialog.txt")
	if err := os.WriteFile(p, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w := &fileWatcher{path: p, events: make(chan struct{}, 1), done: make(chan struct{})}
	w.startPolling()
	defer w.Close()
	if !w.Polling() {
		t.Fatalf("expected polling mode")
	}
	// changed immediately after the switch, before the first tick
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(p, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatalf("polling did not report the change")
	}
}

func TestFileWatcher_PollingReportsRemoval(t *testing.T) {
	p := filepath.Join(t.TempDir(), "dialog.txt")
	if err := os.WriteFile(p, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w := &fileWatcher{path: p, events: make(chan struct{}, 1), done: make(chan struct{})}
	go w.poll(modTime(p), 10*time.Millisecond)
	defer w.Close()
	if err := os.Remove(p); err != nil {
		t.Fatalf("remove: %v", err)
	}
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatalf("removal not reported")
	}
}

func TestWatch_RerendersOnChange(t *testing.T) {
	dir, cfg := setupWorkspace(t)
	text := filepath.Join(dir, "dialog.txt")
	out := filepath.Join(dir, "watched.png")
	if err := os.WriteFile(text, []byte("first"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	var stdout, stderr bytes.Buffer
	go func() { done <- run(ctx, []string{"watch", "-config", cfg, "-o", out, text}, nil, &stdout, &stderr) }()

	waitFor := func(what string) {
		t.Helper()
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(out); err == nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		cancel()
		t.Fatalf("timed out waiting for %s", what)
	}
	waitFor("initial render")
	if err := os.Remove(out); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.WriteFile(text, []byte("second"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor("re-render")

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("watch exited with %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop on cancel")
	}
}

func TestCrashInfo(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	logFile := filepath.Join(t.TempDir(), "logs", "textfit.log")

	info := crashInfo([]string{"textfit", "text", "-config", "/srv/cfg.yaml", "hi"}, applog.Options{File: logFile})
	if info.Command != "text" || info.ConfigPath != "/srv/cfg.yaml" || len(info.Args) != 4 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.ReportDir != filepath.Dir(logFile) {
		t.Fatalf("report dir %q, want log dir", info.ReportDir)
	}
	if got := crashInfo([]string{"textfit", "image", "--config=a.yaml", "x.png"}, applog.Options{}); got.ConfigPath != "a.yaml" || got.ReportDir != "" {
		t.Fatalf("unexpected info %+v", got)
	}
	// no flag and no per-user file
	if got := crashInfo([]string{"textfit", "config", "init"}, applog.Options{}); got.ConfigPath != "" {
		t.Fatalf("unexpected config path %q", got.ConfigPath)
	}
	if got := crashInfo([]string{"textfit"}, applog.Options{}); got.Command != "" || got.Args != nil {
		t.Fatalf("unexpected info %+v", got)
	}
}
