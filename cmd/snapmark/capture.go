package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/example/snapmark/internal/clipboard"
)

type captureCmd struct {
	output      string
	stdout      bool
	toClipboard bool
	host        hostOptions
	*root
	fs *flag.FlagSet
}

func (c *captureCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseCaptureCmd(args []string, r *root) (*captureCmd, error) {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	cfg := r.cfg()
	c := &captureCmd{root: r, fs: fs, host: newHostOptions(cfg)}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "output", filepath.Join(cfg.SaveDir, "screenshot.png"), "write the capture to this file path")
	fs.BoolVar(&c.stdout, "stdout", false, "write PNG data to stdout")
	fs.BoolVar(&c.toClipboard, "to-clipboard", false, "copy the capture to the clipboard")
	fs.BoolVar(&c.toClipboard, "to-clip", false, "copy the capture to the clipboard (alias)")
	c.host.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.toClipboard && c.stdout {
		return nil, fmt.Errorf("-stdout cannot be used with -to-clipboard")
	}
	if err := c.host.setBackend(fs.Args()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *captureCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host, release, err := openHostFn(ctx, c.host)
	if err != nil {
		return fmt.Errorf("failed to capture %s: %w", c.host.describe(), err)
	}
	defer release()
	res, err := c.host.processor(host).Capture(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture %s: %w", c.host.describe(), err)
	}
	detail := c.host.describe()
	c.root.notifyCapture(detail, res.Image)

	if c.toClipboard {
		if err := clipboard.WritePNG(res.Encoded.PNG); err != nil {
			return fmt.Errorf("copy PNG to clipboard: %w", err)
		}
		fmt.Fprintf(os.Stderr, "copied %s to clipboard\n", detail)
		c.root.notifyCopy(detail)
		return nil
	}
	if c.stdout {
		if _, err := os.Stdout.Write(res.Encoded.PNG); err != nil {
			return fmt.Errorf("write PNG to stdout: %w", err)
		}
		fmt.Fprintln(os.Stderr, "wrote PNG data to stdout")
		return nil
	}
	if err := os.WriteFile(c.output, res.Encoded.PNG, 0o644); err != nil {
		return fmt.Errorf("write PNG to %q: %w", c.output, err)
	}
	saved := c.output
	if abs, err := filepath.Abs(c.output); err == nil {
		saved = abs
	}
	fmt.Fprintf(os.Stderr, "saved %s\n", saved)
	c.root.notifySave(saved)
	return nil
}
