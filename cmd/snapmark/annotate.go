package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/example/snapmark/internal/appstate"
	"github.com/example/snapmark/internal/capture"
	"github.com/example/snapmark/internal/clipboard"
	"github.com/example/snapmark/internal/engine"
)

// readClipboardFn is replaced in tests.
var readClipboardFn = clipboard.ReadPNG

// annotateCmd opens the annotation window on a file, a fresh capture or the
// clipboard image.
type annotateCmd struct {
	action string
	file   string
	output string
	host   hostOptions
	*root
	fs *flag.FlagSet
}

func (a *annotateCmd) FlagSet() *flag.FlagSet {
	return a.fs
}

func parseAnnotateCmd(args []string, r *root) (*annotateCmd, error) {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	cfg := r.cfg()
	a := &annotateCmd{root: r, fs: fs, host: newHostOptions(cfg)}
	fs.Usage = usageFunc(a)
	fs.StringVar(&a.file, "file", "", "image file to annotate")
	fs.StringVar(&a.output, "output", filepath.Join(cfg.SaveDir, "annotated.png"), "output file path")
	a.host.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	operands := fs.Args()
	if len(operands) < 1 {
		return nil, &UsageError{of: a}
	}
	a.action = strings.ToLower(operands[0])
	operands = operands[1:]
	switch a.action {
	case "open":
		if a.file == "" && len(operands) > 0 {
			a.file = strings.Join(operands, " ")
		}
		if a.file == "" {
			return nil, &UsageError{of: a}
		}
	case "capture":
		if err := a.host.setBackend(operands); err != nil {
			return nil, err
		}
	case "paste":
		if len(operands) > 0 {
			return nil, fmt.Errorf("paste takes no arguments")
		}
	default:
		return nil, &UsageError{of: a}
	}
	return a, nil
}

func (a *annotateCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Recapture from the window reuses the host. A browser is only started
	// when the first image comes from it.
	var host capture.Host
	if a.action == "capture" || a.host.backend != "browser" {
		h, release, err := openHostFn(ctx, a.host)
		switch {
		case err == nil:
			host = h
			defer release()
		case a.action == "capture":
			return fmt.Errorf("annotate capture %s: %w", a.host.describe(), err)
		default:
			log.Printf("recapture unavailable: %v", err)
		}
	}

	cfg := a.root.cfg()
	opts := []appstate.SessionOption{
		appstate.WithZoomOptions(cfg.ZoomOptions()),
		appstate.WithHistoryDepth(cfg.HistoryDepth),
	}
	if host != nil {
		opts = append(opts, appstate.WithProcessor(a.host.processor(host)))
	}
	session := appstate.NewSession(opts...)
	applyDrawingDefaults(session, cfg.Tool, cfg.Color, cfg.Width)

	detail := ""
	switch a.action {
	case "open":
		data, err := os.ReadFile(a.file)
		if err != nil {
			return fmt.Errorf("annotate open %s: %w", a.file, err)
		}
		if _, err := session.Load(ctx, data); err != nil {
			return fmt.Errorf("annotate open %s: %w", a.file, err)
		}
		detail = filepath.Base(a.file)
	case "capture":
		res, err := session.CaptureOnly(ctx)
		if err != nil {
			return fmt.Errorf("annotate capture %s: %w", a.host.describe(), err)
		}
		if _, err := session.Install(res); err != nil {
			return fmt.Errorf("annotate capture %s: %w", a.host.describe(), err)
		}
		detail = a.host.describe()
		a.root.notifyCapture(detail, res.Image)
	case "paste":
		data, err := readClipboardFn()
		if err != nil {
			return fmt.Errorf("annotate paste: %w", err)
		}
		if _, err := session.Load(ctx, data); err != nil {
			return fmt.Errorf("annotate paste: %w", err)
		}
		detail = "clipboard"
	}

	st := appstate.New(
		appstate.WithSession(session),
		appstate.WithOutput(a.output),
		appstate.WithNotifier(a.root.alerts()),
		appstate.WithResizeDelay(cfg.ResizeDebounce),
		appstate.WithTitle(windowTitle(titleOptions{File: a.file, Mode: a.action, Detail: detail})),
	)
	st.Run()
	return nil
}

// applyDrawingDefaults selects the configured tool, color and width. Bad
// values are logged and the built-in defaults kept.
func applyDrawingDefaults(s *appstate.Session, tool, color string, width float64) {
	if t, err := engine.ParseTool(tool); err != nil {
		log.Printf("config tool: %v", err)
	} else if err := s.SetTool(t); err != nil {
		log.Printf("config tool: %v", err)
	}
	if err := s.SetColor(color); err != nil {
		log.Printf("config color: %v", err)
	}
	if err := s.SetWidth(width); err != nil {
		log.Printf("config width: %v", err)
	}
}
