/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a logged error, a crash report
// file and exit code 2.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "textfit/internal/log"
	"textfit/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Info describes the invocation that crashed.
type Info struct {
	Command    string
	Args       []string
	ConfigPath string
	// ReportDir receives crash-<stamp>.log; empty means os.TempDir().
	ReportDir string
}

// Recover must be deferred directly:
//
//	defer crash.Recover(crash.Info{Command: "text"})
func Recover(info Info) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithOperation(applog.WithComponent("crash"), info.Command)
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(info, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err), slog.String("path", reportPath))
	}
	if _, err := fmt.Fprintf(os.Stderr, "textfit crashed. Report: %s\nVersion: %s (%s/%s)\n",
		reportPath, version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

func writeReport(info Info, panicVal any, stack []byte) (string, error) {
	dir := info.ReportDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir, err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "textfit crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s (%s)\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
	if info.Command != "" {
		fmt.Fprintf(&buf, "Command: %s %s\n", info.Command, strings.Join(info.Args, " "))
	}
	if info.ConfigPath != "" {
		fmt.Fprintf(&buf, "Config: %s\n", info.ConfigPath)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	return path, nil
}
