package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/snapmark/internal/annotation"
	"github.com/example/snapmark/internal/appstate"
	"github.com/example/snapmark/internal/clipboard"
	"github.com/example/snapmark/internal/palette"
)

// drawCmd annotates an image without opening a window. Shapes come from the
// command line, a YAML script or both; the script is applied first.
type drawCmd struct {
	file          string
	output        string
	script        string
	export        string
	fromClipboard bool
	toClipboard   bool
	color         string
	width         float64
	shape         string
	coords        []float64
	*root
	fs *flag.FlagSet
}

func (d *drawCmd) FlagSet() *flag.FlagSet {
	return d.fs
}

func parseDrawCmd(args []string, r *root) (*drawCmd, error) {
	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	cfg := r.cfg()
	d := &drawCmd{root: r, fs: fs}
	fs.Usage = usageFunc(d)
	fs.StringVar(&d.file, "file", "", "input image file")
	fs.StringVar(&d.output, "output", "", "output file path (defaults to input file)")
	fs.StringVar(&d.script, "script", "", "YAML file of annotations to apply")
	fs.StringVar(&d.export, "export", "", "write the resulting annotations as YAML to this path")
	fs.BoolVar(&d.fromClipboard, "from-clipboard", false, "read the input image from the clipboard")
	fs.BoolVar(&d.fromClipboard, "from-clip", false, "read the input image from the clipboard (alias)")
	fs.BoolVar(&d.toClipboard, "to-clipboard", false, "copy the result to the clipboard")
	fs.BoolVar(&d.toClipboard, "to-clip", false, "copy the result to the clipboard (alias)")
	fs.StringVar(&d.color, "color", cfg.Color, "stroke color name or hex value")
	fs.Float64Var(&d.width, "width", cfg.Width, "stroke width in image pixels")

	flagArgs, positionals, err := splitDrawArgs(args)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}
	if len(positionals) < 1 && d.script == "" {
		return nil, &UsageError{of: d}
	}
	if len(positionals) > 0 {
		d.shape = strings.ToLower(positionals[0])
		remaining := positionals[1:]
		switch d.shape {
		case "rect", "rectangle", "arrow":
			d.coords, err = expectFloats(remaining, 4, d.shape)
		case "freehand", "line":
			if len(remaining) < 2 || len(remaining)%2 != 0 {
				return nil, fmt.Errorf("%s requires pairs of x y coordinates", d.shape)
			}
			d.coords, err = expectFloats(remaining, len(remaining), d.shape)
		default:
			return nil, fmt.Errorf("unsupported shape %q", d.shape)
		}
		if err != nil {
			return nil, err
		}
	}
	if _, err := palette.Parse(d.color); err != nil {
		return nil, err
	}
	if d.width <= 0 {
		return nil, fmt.Errorf("width must be positive")
	}
	if d.fromClipboard {
		if d.output == "" {
			if d.file != "" {
				d.output = d.file
			} else {
				return nil, fmt.Errorf("output file is required when reading from the clipboard")
			}
		}
	} else {
		if d.file == "" {
			return nil, fmt.Errorf("input file is required")
		}
		if d.output == "" {
			d.output = d.file
		}
	}
	return d, nil
}

var drawFlagNames = map[string]struct{}{
	"file":           {},
	"output":         {},
	"script":         {},
	"export":         {},
	"from-clipboard": {},
	"from-clip":      {},
	"to-clipboard":   {},
	"to-clip":        {},
	"color":          {},
	"width":          {},
	"h":              {},
	"help":           {},
}

var drawBoolFlags = map[string]struct{}{
	"from-clipboard": {},
	"from-clip":      {},
	"to-clipboard":   {},
	"to-clip":        {},
	"h":              {},
	"help":           {},
}

// splitDrawArgs separates known flags from the shape operands so flags may
// follow the coordinates and negative coordinates are not read as flags.
func splitDrawArgs(args []string) ([]string, []string, error) {
	var flags []string
	var positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		parts := strings.SplitN(name, "=", 2)
		base := strings.ToLower(parts[0])
		if _, ok := drawFlagNames[base]; !ok {
			positionals = append(positionals, arg)
			continue
		}
		norm := "-" + base
		if len(parts) == 2 {
			flags = append(flags, norm+"="+parts[1])
			continue
		}
		if _, ok := drawBoolFlags[base]; ok {
			flags = append(flags, norm)
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("flag %s requires a value", arg)
		}
		flags = append(flags, norm, args[i+1])
		i++
	}
	return flags, positionals, nil
}

func expectFloats(args []string, n int, shape string) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d numeric arguments", shape, n)
	}
	vals := make([]float64, n)
	for i, raw := range args {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", raw)
		}
		vals[i] = v
	}
	return vals, nil
}

// annotation builds the command line shape.
func (d *drawCmd) annotation() annotation.Annotation {
	a := annotation.Annotation{Color: d.color, Width: d.width}
	pt := func(i int) annotation.Point { return annotation.Point{X: d.coords[i], Y: d.coords[i+1]} }
	switch d.shape {
	case "rect", "rectangle":
		a.Shape = annotation.Rectangle{Start: pt(0), End: pt(2)}
	case "arrow":
		a.Shape = annotation.Arrow{Start: pt(0), End: pt(2)}
	default:
		path := make([]annotation.Point, 0, len(d.coords)/2)
		for i := 0; i+1 < len(d.coords); i += 2 {
			path = append(path, pt(i))
		}
		a.Shape = annotation.Freehand{Path: path}
	}
	return a
}

func (d *drawCmd) Run() error {
	data, err := d.loadSource()
	if err != nil {
		return err
	}
	session := appstate.NewSession()
	if _, err := session.Load(context.Background(), data); err != nil {
		return err
	}
	if d.script != "" {
		if err := d.applyScript(session); err != nil {
			return err
		}
	}
	if d.shape != "" {
		if err := session.Add(d.annotation()); err != nil {
			return fmt.Errorf("draw %s: %w", d.shape, err)
		}
	}

	res, err := session.EncodedResult()
	if err != nil {
		return err
	}
	if err := os.WriteFile(d.output, res.PNG, 0o644); err != nil {
		return err
	}
	saved := d.output
	if abs, err := filepath.Abs(d.output); err == nil {
		saved = abs
	}
	fmt.Fprintf(os.Stderr, "saved %s\n", saved)
	d.root.notifySave(saved)

	if d.export != "" {
		if err := writeExport(session, d.export); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %s\n", d.export)
	}
	if d.toClipboard {
		if err := clipboard.WritePNG(res.PNG); err != nil {
			return fmt.Errorf("copy PNG to clipboard: %w", err)
		}
		detail := filepath.Base(d.output)
		fmt.Fprintf(os.Stderr, "copied %s to clipboard\n", detail)
		d.root.notifyCopy(detail)
	}
	return nil
}

func (d *drawCmd) loadSource() ([]byte, error) {
	if d.fromClipboard {
		data, err := readClipboardFn()
		if err != nil {
			return nil, fmt.Errorf("read clipboard image: %w", err)
		}
		return data, nil
	}
	return os.ReadFile(d.file)
}

func (d *drawCmd) applyScript(s *appstate.Session) error {
	f, err := os.Open(d.script)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("error closing %q: %v", f.Name(), err)
		}
	}()
	if err := s.Import(f); err != nil {
		var verr *annotation.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("script %s: %w", d.script, err)
		}
		return fmt.Errorf("read script %s: %w", d.script, err)
	}
	return nil
}

func writeExport(s *appstate.Session, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Export(out); err != nil {
		if cerr := out.Close(); cerr != nil {
			log.Printf("error closing %q: %v", path, cerr)
		}
		return fmt.Errorf("export %s: %w", path, err)
	}
	return out.Close()
}
