package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/snapmark/internal/capture"
	"github.com/example/snapmark/internal/palette"
)

// listing functions are replaced in tests.
var (
	listMonitorsFn = capture.ListMonitors
	listWindowsFn  = capture.ListWindows
)

type windowsCmd struct {
	*root
	fs  *flag.FlagSet
	out io.Writer
}

func parseWindowsCmd(args []string, r *root) (*windowsCmd, error) {
	fs := flag.NewFlagSet("windows", flag.ExitOnError)
	cmd := &windowsCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *windowsCmd) Run() error {
	monitors, err := listMonitorsFn()
	if err != nil {
		return fmt.Errorf("list monitors: %w", err)
	}
	fmt.Fprintln(c.out, "monitors (* marks the primary monitor):")
	for _, m := range monitors {
		marker := " "
		if m.Primary {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %d: %s %dx%d%+d%+d\n", marker, m.Index, m.Name, m.Rect.Dx(), m.Rect.Dy(), m.Rect.Min.X, m.Rect.Min.Y)
	}

	windows, err := listWindowsFn()
	if err != nil {
		return fmt.Errorf("list windows: %w", err)
	}
	if len(windows) == 0 {
		fmt.Fprintln(c.out, "no windows available")
		return nil
	}
	fmt.Fprintln(c.out, "available windows (* marks the active window):")
	for _, win := range windows {
		marker := " "
		if win.Active {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s\n", marker, formatWindowLabel(win))
	}
	fmt.Fprintln(c.out, "selectors: index:<n>, id:<hex>, pid:<pid>, exec:<name>, class:<name>, title:<text>, substring match")
	return nil
}

func (c *windowsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func formatWindowLabel(win capture.WindowInfo) string {
	title := strings.TrimSpace(win.Title)
	if title == "" {
		title = "(untitled)"
	}
	parts := []string{fmt.Sprintf("%d: %s", win.Index, title), fmt.Sprintf("id:0x%x", win.ID)}
	if win.Class != "" {
		parts = append(parts, "class:"+win.Class)
	}
	if win.Executable != "" {
		parts = append(parts, "exec:"+win.Executable)
	}
	if win.PID != 0 {
		parts = append(parts, fmt.Sprintf("pid:%d", win.PID))
	}
	if !win.Mapped {
		parts = append(parts, "hidden")
	}
	return strings.Join(parts, " ")
}

type colorsCmd struct {
	*root
	fs  *flag.FlagSet
	out io.Writer
}

func parseColorsCmd(args []string, r *root) (*colorsCmd, error) {
	fs := flag.NewFlagSet("colors", flag.ExitOnError)
	cmd := &colorsCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *colorsCmd) Run() error {
	colors := palette.Colors()
	if len(colors) == 0 {
		fmt.Fprintln(c.out, "no colors available")
		return nil
	}
	current := c.root.cfg().Color
	fmt.Fprintln(c.out, "available palette colors (* marks the configured color, 1-9 select in the window):")
	for idx, entry := range colors {
		marker := " "
		if strings.EqualFold(entry.Name, current) {
			marker = "*"
		}
		hex := palette.Hex(entry.Color)
		name := entry.Name
		if name == "" {
			name = hex
		}
		block := fmt.Sprintf("\x1b[48;2;%d;%d;%dm  \x1b[0m", entry.Color.R, entry.Color.G, entry.Color.B)
		fmt.Fprintf(c.out, "%s %2d: %-12s %s %s\n", marker, idx+1, name, hex, block)
	}
	widths := make([]string, 0, len(palette.Widths()))
	for _, w := range palette.Widths() {
		widths = append(widths, fmt.Sprintf("%dpx", w))
	}
	fmt.Fprintf(c.out, "stroke widths: %s\n", strings.Join(widths, " "))
	return nil
}

func (c *colorsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}
