package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Parse reads configuration from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var currentSection string
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}

		// Key = Value or Key: Value
		var parts []string
		if strings.Contains(line, "=") {
			parts = strings.SplitN(line, "=", 2)
		} else if strings.Contains(line, ":") {
			parts = strings.SplitN(line, ":", 2)
		} else {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := unquote(strings.TrimSpace(parts[1]))

		var err error
		switch currentSection {
		case "":
			err = setRootField(cfg, key, value)
		case "zoom":
			err = setZoomField(&cfg.Zoom, key, value)
		case "history":
			err = setHistoryField(cfg, key, value)
		case "canvas":
			err = setCanvasField(cfg, key, value)
		case "capture":
			err = setCaptureField(&cfg.Capture, key, value)
		case "notify":
			err = setNotifyField(&cfg.Notify, key, value)
		}
		if err != nil {
			section := "root section"
			if currentSection != "" {
				section = "section [" + currentSection + "]"
			}
			return nil, fmt.Errorf("line %d: error in %s: %w", lineNo, section, err)
		}
	}

	return cfg, scanner.Err()
}

func unquote(value string) string {
	if len(value) < 2 || !strings.HasPrefix(value, "\"") || !strings.HasSuffix(value, "\"") {
		return value
	}
	if s, err := strconv.Unquote(value); err == nil {
		return s
	}
	return value[1 : len(value)-1]
}

func setRootField(cfg *Config, key, value string) error {
	switch key {
	case "save_dir":
		cfg.SaveDir = value
	case "tool":
		cfg.Tool = value
	case "color":
		cfg.Color = value
	case "width":
		w, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		cfg.Width = w
	}
	return nil
}

func setZoomField(z *Zoom, key, value string) error {
	var dst *float64
	switch key {
	case "min":
		dst = &z.Min
	case "max":
		dst = &z.Max
	case "step":
		dst = &z.Step
	default:
		return nil
	}
	f, err := parsePositive(key, value)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setHistoryField(cfg *Config, key, value string) error {
	if key != "depth" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid depth %q", value)
	}
	cfg.HistoryDepth = n
	return nil
}

func setCanvasField(cfg *Config, key, value string) error {
	if key != "resize_debounce" {
		return nil
	}
	d, err := parseDuration(key, value)
	if err != nil {
		return err
	}
	cfg.ResizeDebounce = d
	return nil
}

func setCaptureField(c *Capture, key, value string) error {
	var err error
	switch key {
	case "backend":
		v := strings.ToLower(value)
		if v != "desktop" && v != "browser" {
			return fmt.Errorf("unknown backend %q", value)
		}
		c.Backend = v
	case "settle_delay":
		c.SettleDelay, err = parseDuration(key, value)
	case "window":
		c.Window = value
	case "display":
		c.Display = value
	case "overlay_classes":
		c.OverlayClasses = splitList(value)
	case "include_cursor":
		c.IncludeCursor, err = parseBool(key, value)
	case "url":
		c.URL = value
	case "overlay_selectors":
		c.OverlaySelectors = splitList(value)
	case "headless":
		c.Headless, err = parseBool(key, value)
	case "stealth":
		c.Stealth, err = parseBool(key, value)
	case "control_url":
		c.ControlURL = value
	}
	return err
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := parseBool(key, value)
	if err != nil {
		return err
	}
	switch key {
	case "capture":
		n.Capture = b
	case "save":
		n.Save = b
	case "copy":
		n.Copy = b
	}
	return nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	return b, nil
}

func parsePositive(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for key %s: %w", key, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("key %s must be positive", key)
	}
	return f, nil
}

// parseDuration accepts Go durations and bare milliseconds.
func parseDuration(key, value string) (time.Duration, error) {
	if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration for key %s: %q", key, value)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
