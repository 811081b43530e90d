package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

const programTitle = "Snapmark"

type titleOptions struct {
	File   string
	Mode   string
	Detail string
	Extras []string
}

func windowTitle(opts titleOptions) string {
	parts := []string{programTitle}

	if file := strings.TrimSpace(opts.File); file != "" {
		parts = append(parts, filepath.Base(file))
	}

	if mode := strings.TrimSpace(opts.Mode); mode != "" {
		parts = append(parts, mode)
	}

	detail := strings.TrimSpace(opts.Detail)
	if detail != "" && (opts.File == "" || detail != filepath.Base(opts.File)) {
		parts = append(parts, detail)
	}

	extras := make([]string, 0, len(opts.Extras)+3)

	if v := strings.TrimSpace(version); v != "" {
		extras = append(extras, fmt.Sprintf("v%s", v))
	}

	if c := strings.TrimSpace(commit); c != "" {
		extras = append(extras, fmt.Sprintf("commit %s", c))
	}

	if d := strings.TrimSpace(date); d != "" {
		extras = append(extras, d)
	}

	extras = append(extras, opts.Extras...)
	parts = append(parts, extras...)

	return strings.Join(parts, " - ")
}
