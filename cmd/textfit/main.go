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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"textfit/internal/config"
	"textfit/internal/crash"
	applog "textfit/internal/log"
	"textfit/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `textfit %s

Usage:
  textfit version                                   Show version
  textfit text  [-config f] [-o out] [-format png|pdf] <text...|->
                                                    Fit text into the box of the base image
  textfit image [-config f] [-o out] [-format png|pdf] <image-file>
                                                    Fit an image into the box of the base image
  textfit watch [-config f] [-o out] [-format png|pdf] <text-file>
                                                    Re-render whenever the text file changes
  textfit config [-config f]                        Print the effective configuration
  textfit config init [path]                        Write the default configuration
`, version.String())
}

func main() {
	logOpts := applog.FromEnv()
	defer crash.Recover(crashInfo(os.Args, logOpts))
	applog.Init(logOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// crashInfo describes the invocation for crash reports. Reports go next to the
// log file when one is configured.
func crashInfo(args []string, logOpts applog.Options) crash.Info {
	info := crash.Info{Command: commandName(args)}
	if len(args) > 1 {
		info.Args = args[1:]
		info.ConfigPath = configArg(args[1:])
	}
	if info.ConfigPath == "" {
		if p, err := config.ConfigPath(); err == nil {
			if _, err := os.Stat(p); err == nil {
				info.ConfigPath = p
			}
		}
	}
	if logOpts.File != "" {
		info.ReportDir = filepath.Dir(logOpts.File)
	}
	return info
}

// configArg returns the value of a -config flag in args, if any.
func configArg(args []string) string {
	for i, a := range args {
		name, val, hasVal := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasVal {
			return val
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func commandName(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "--help", "-h":
		usage(stdout)
		return 0
	case "text":
		err = cmdText(ctx, args[1:], stdin, stdout, stderr)
	case "image":
		err = cmdImage(ctx, args[1:], stdout, stderr)
	case "watch":
		err = cmdWatch(ctx, args[1:], stdout, stderr)
	case "config":
		err = cmdConfig(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			return 2
		}
		applog.WithComponent("cli").Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }
