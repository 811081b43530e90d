// Package notify sends desktop notifications for capture, save and copy.
package notify

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/snapmark/internal/config"
)

const appName = "snapmark"

// Event identifies a notification trigger.
type Event string

const (
	// EventCapture fires when a capture completes.
	EventCapture Event = "capture"
	// EventSave fires when an annotated image is written to disk.
	EventSave Event = "save"
	// EventCopy fires when the result is copied to the clipboard.
	EventCopy Event = "copy"
)

type options struct {
	iconPath string
	expire   time.Duration
}

// sendFn is replaced in tests.
var sendFn = send

// Preferences holds the title and per-event message templates.
type Preferences struct {
	Title     string
	Templates map[Event]string
	Expire    time.Duration
}

// DefaultPreferences returns the built-in texts.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "Snapmark",
		Templates: map[Event]string{
			EventCapture: "Captured %s",
			EventSave:    "Saved %s",
			EventCopy:    "Copied %s to clipboard",
		},
		Expire: 5 * time.Second,
	}
}

// LoadPreferences applies SNAPMARK_NOTIFY_* overrides to the defaults.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("SNAPMARK_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	for event, key := range map[Event]string{
		EventCapture: "SNAPMARK_NOTIFY_CAPTURE_TEXT",
		EventSave:    "SNAPMARK_NOTIFY_SAVE_TEXT",
		EventCopy:    "SNAPMARK_NOTIFY_COPY_TEXT",
	} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			prefs.Templates[event] = v
		}
	}
	return prefs
}

// Notifier sends notifications for the events enabled on it. A nil
// Notifier is silent.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
}

// New creates a Notifier with every event disabled.
func New(prefs Preferences) *Notifier {
	templates := make(map[Event]string, len(prefs.Templates))
	for k, v := range prefs.Templates {
		templates[k] = v
	}
	prefs.Templates = templates
	return &Notifier{prefs: prefs, enabled: make(map[Event]bool)}
}

// FromConfig builds a notifier from the environment and the [notify] section.
func FromConfig(n config.Notify) *Notifier {
	notifier := New(LoadPreferences())
	notifier.Enable(EventCapture, n.Capture)
	notifier.Enable(EventSave, n.Save)
	notifier.Enable(EventCopy, n.Copy)
	return notifier
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	n.enabled[event] = enabled
}

// Capture announces a finished capture with a thumbnail of img.
func (n *Notifier) Capture(detail string, img image.Image) {
	if !n.enabledFor(EventCapture) {
		return
	}
	opts := n.options()
	if img != nil {
		path, cleanup, err := createPreview(img)
		if err != nil {
			log.Printf("notification preview: %v", err)
		} else {
			defer cleanup()
			opts.iconPath = path
		}
	}
	n.dispatch(EventCapture, detail, opts)
}

// Save announces a written file, using it as the icon when it exists.
func (n *Notifier) Save(path string) {
	if !n.enabledFor(EventSave) {
		return
	}
	detail := strings.TrimSpace(path)
	opts := n.options()
	if abs, err := filepath.Abs(path); err == nil {
		detail = abs
		if _, err := os.Stat(abs); err == nil {
			opts.iconPath = abs
		}
	}
	n.dispatch(EventSave, detail, opts)
}

// Copy announces a clipboard copy.
func (n *Notifier) Copy(detail string) {
	if !n.enabledFor(EventCopy) {
		return
	}
	if strings.TrimSpace(detail) == "" {
		detail = "image"
	}
	n.dispatch(EventCopy, detail, n.options())
}

func (n *Notifier) enabledFor(event Event) bool {
	return n != nil && n.enabled[event]
}

func (n *Notifier) options() options {
	return options{expire: n.prefs.Expire}
}

func (n *Notifier) dispatch(event Event, detail string, opts options) {
	template := strings.TrimSpace(n.prefs.Templates[event])
	if template == "" {
		return
	}
	var body string
	if strings.Contains(template, "%s") {
		body = fmt.Sprintf(template, strings.TrimSpace(detail))
	} else {
		body = template
	}
	if err := sendFn(n.prefs.Title, strings.TrimSpace(body), opts); err != nil {
		log.Printf("notification %s: %v", event, err)
	}
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", appName+"-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove preview: %v", err)
		}
	}
	return path, cleanup, nil
}
