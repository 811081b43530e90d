// Package palette resolves stroke color tokens and keeps the shared list of
// named colors and widths offered to the user.
package palette

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/colornames"
)

// Entry is a palette color with its display name.
type Entry struct {
	Name  string
	Color color.RGBA
}

// DefaultColor and DefaultWidth are used until the user picks something else.
const (
	DefaultColor = "Red"
	DefaultWidth = 4
)

var (
	mu      sync.RWMutex
	entries = []Entry{
		{"Black", color.RGBA{0, 0, 0, 255}},
		{"White", color.RGBA{255, 255, 255, 255}},
		{"Red", color.RGBA{255, 0, 0, 255}},
		{"Lime", color.RGBA{0, 255, 0, 255}},
		{"Blue", color.RGBA{0, 0, 255, 255}},
		{"Yellow", color.RGBA{255, 255, 0, 255}},
		{"Cyan", color.RGBA{0, 255, 255, 255}},
		{"Magenta", color.RGBA{255, 0, 255, 255}},
		{"Maroon", color.RGBA{128, 0, 0, 255}},
		{"Green", color.RGBA{0, 128, 0, 255}},
		{"Navy", color.RGBA{0, 0, 128, 255}},
		{"Olive", color.RGBA{128, 128, 0, 255}},
		{"Teal", color.RGBA{0, 128, 128, 255}},
		{"Purple", color.RGBA{128, 0, 128, 255}},
		{"Silver", color.RGBA{192, 192, 192, 255}},
		{"Gray", color.RGBA{128, 128, 128, 255}},
	}

	widthsMu sync.RWMutex
	widths   = []int{1, 2, 4, 6, 8}
)

// Colors returns a copy of the palette.
func Colors() []Entry {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// At returns the palette entry at idx, clamped to the valid range.
func At(idx int) Entry {
	mu.RLock()
	defer mu.RUnlock()
	if len(entries) == 0 {
		return Entry{}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(entries) {
		idx = len(entries) - 1
	}
	return entries[idx]
}

// Ensure makes sure col is present and returns its index. An unnamed entry
// picks up name when one is given.
func Ensure(col color.RGBA, name string) int {
	mu.Lock()
	defer mu.Unlock()
	for idx, existing := range entries {
		if existing.Color == col {
			if name != "" && existing.Name == "" {
				entries[idx].Name = name
			}
			return idx
		}
	}
	entries = append(entries, Entry{Name: name, Color: col})
	return len(entries) - 1
}

// Widths returns a copy of the available stroke widths.
func Widths() []int {
	widthsMu.RLock()
	defer widthsMu.RUnlock()
	out := make([]int, len(widths))
	copy(out, widths)
	return out
}

// EnsureWidth makes sure width is offered and returns its index.
func EnsureWidth(width int) int {
	if width < 1 {
		width = 1
	}
	widthsMu.Lock()
	defer widthsMu.Unlock()
	for idx, existing := range widths {
		if existing == width {
			return idx
		}
	}
	widths = append(widths, width)
	sort.Ints(widths)
	return sort.SearchInts(widths, width)
}

// Parse resolves a color token. Accepted forms are SVG color names, palette
// names and #rrggbb or #rrggbbaa.
func Parse(s string) (color.RGBA, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if token == "" {
		return color.RGBA{}, fmt.Errorf("color cannot be empty")
	}
	if c, ok := colornames.Map[token]; ok {
		return c, nil
	}
	for _, e := range Colors() {
		if strings.EqualFold(e.Name, token) {
			return e.Color, nil
		}
	}
	if strings.HasPrefix(token, "#") && (len(token) == 7 || len(token) == 9) {
		var parts [4]uint8
		parts[3] = 255
		for i := 0; i < (len(token)-1)/2; i++ {
			v, err := strconv.ParseUint(token[1+i*2:3+i*2], 16, 8)
			if err != nil {
				return color.RGBA{}, fmt.Errorf("invalid color %q", s)
			}
			parts[i] = uint8(v)
		}
		return color.RGBA{parts[0], parts[1], parts[2], parts[3]}, nil
	}
	return color.RGBA{}, fmt.Errorf("invalid color %q", s)
}

// Hex formats c as #rrggbb, or #rrggbbaa when not opaque.
func Hex(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
