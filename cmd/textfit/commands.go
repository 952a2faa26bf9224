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
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"textfit/internal/compose"
	"textfit/internal/config"
	"textfit/internal/export"
	applog "textfit/internal/log"
	"textfit/internal/textlayout"
)

// renderFlags are shared by the rendering commands.
type renderFlags struct {
	config string
	out    string
	format string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *renderFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &renderFlags{}
	fs.StringVar(&f.config, "config", "", "config file (default: per-user config path)")
	fs.StringVar(&f.out, "o", "", "output file (default: textfit-out.<format>)")
	fs.StringVar(&f.format, "format", "", "output format png|pdf (default: from -o or config)")
	return fs, f
}

// session is the loaded configuration plus the objects built from it.
type session struct {
	cfg      config.AppConfig
	cfgPath  string
	renderer *compose.Renderer
	selector *config.BaseSelector
	log      *slog.Logger

	out    string
	format export.Format
}

func newSession(f *renderFlags, stderr io.Writer) (*session, error) {
	cfg, path, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   stderr,
	})
	l := applog.WithComponent("cli")
	if path != "" {
		l.Debug("config loaded", slog.String("path", path))
	}

	format, err := resolveFormat(f, cfg)
	if err != nil {
		return nil, usageError(err.Error())
	}
	out := f.out
	if out == "" {
		out = "textfit-out" + format.Ext()
	}

	fonts := textlayout.NewFontLibrary(append(append([]string{}, cfg.Fonts.Dirs...), textlayout.DefaultFontDirs()...)...)
	return &session{
		cfg:      cfg,
		cfgPath:  path,
		renderer: compose.NewRenderer(compose.NewImageCache(compose.DefaultCacheSize), fonts),
		selector: config.NewBaseSelector(cfg.Base),
		log:      l,
		out:      out,
		format:   format,
	}, nil
}

// resolveFormat prefers -format, then the extension of -o, then the config.
func resolveFormat(f *renderFlags, cfg config.AppConfig) (export.Format, error) {
	if f.format != "" {
		return export.ParseFormat(f.format)
	}
	def, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return "", err
	}
	return export.FormatFromPath(f.out, def), nil
}

func (s *session) textRequest(text string) (compose.TextRequest, error) {
	opts, err := s.cfg.TextOptions()
	if err != nil {
		return compose.TextRequest{}, err
	}
	region, err := s.cfg.TextRegion()
	if err != nil {
		return compose.TextRequest{}, err
	}
	base, text := s.selector.Select(text)
	return compose.TextRequest{
		Base:          compose.Source{Path: base},
		Overlay:       compose.Source{Path: s.cfg.OverlayPath()},
		Region:        region,
		Text:          text,
		Options:       opts,
		FontPath:      s.cfg.Fonts.File,
		FontFamily:    s.cfg.Fonts.FallbackFamily,
		EmojiFontPath: s.cfg.Fonts.EmojiFile,
		Format:        s.format,
	}, nil
}

// renderText renders and writes one text. An empty text after keyword
// stripping writes nothing.
func (s *session) renderText(ctx context.Context, text string) (bool, error) {
	ctx = applog.WithRenderID(ctx, uuid.NewString())
	req, err := s.textRequest(text)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(req.Text) == "" {
		s.log.InfoContext(ctx, "nothing to draw", slog.String("base", req.Base.Path))
		return false, nil
	}
	out, err := s.renderer.RenderText(ctx, req)
	if err != nil {
		return false, err
	}
	if out.Layout.Overflow {
		s.log.WarnContext(ctx, "text overflows the box at the smallest size", slog.Int("lines", len(out.Layout.Lines)))
	}
	return true, s.write(ctx, out)
}

func (s *session) write(ctx context.Context, out compose.Output) error {
	if err := export.WriteFile(s.out, out.Bytes); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "output written", slog.String("path", s.out),
		slog.String("format", string(out.Format)), slog.String("size", humanize.Bytes(uint64(len(out.Bytes)))))
	return nil
}

func cmdText(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, f := newFlagSet("text", stderr)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if fs.NArg() == 0 {
		return usageError("text requires the text to render, or - for stdin")
	}
	text := strings.Join(fs.Args(), " ")
	if text == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\r\n")
	}
	s, err := newSession(f, stderr)
	if err != nil {
		return err
	}
	wrote, err := s.renderText(ctx, text)
	if err != nil {
		return err
	}
	if wrote {
		_, _ = fmt.Fprintln(stdout, s.out)
	}
	return nil
}

func cmdImage(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, f := newFlagSet("image", stderr)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if fs.NArg() != 1 {
		return usageError("image requires exactly one image file")
	}
	s, err := newSession(f, stderr)
	if err != nil {
		return err
	}
	region, err := s.cfg.TextRegion()
	if err != nil {
		return err
	}
	fit, err := s.cfg.FitOptions()
	if err != nil {
		return err
	}
	ctx = applog.WithRenderID(ctx, uuid.NewString())
	out, err := s.renderer.RenderImage(ctx, compose.ImageRequest{
		Base:      compose.Source{Path: s.selector.Current()},
		Overlay:   compose.Source{Path: s.cfg.OverlayPath()},
		Content:   compose.Source{Path: fs.Arg(0)},
		Region:    region,
		Fit:       fit,
		KeepAlpha: s.cfg.Image.KeepAlpha,
		Format:    s.format,
	})
	if err != nil {
		return err
	}
	if err := s.write(ctx, out); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, s.out)
	return nil
}

func cmdConfig(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "init" {
		if len(args) > 2 {
			return usageError("config init takes at most one path")
		}
		path := ""
		if len(args) == 2 {
			path = args[1]
		} else {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
		if err := config.Save(path, config.Defaults()); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, path)
		return nil
	}

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgFlag := fs.String("config", "", "config file (default: per-user config path)")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	cfg, path, err := config.Load(*cfgFlag)
	if err != nil {
		return err
	}
	if path == "" {
		path = "(defaults)"
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "# %s\n%s", path, data)
	return nil
}
