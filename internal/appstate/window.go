package appstate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/snapmark/internal/canvas"
	"github.com/example/snapmark/internal/capture"
	"github.com/example/snapmark/internal/clipboard"
	"github.com/example/snapmark/internal/engine"
	"github.com/example/snapmark/internal/notify"
	"github.com/example/snapmark/internal/palette"
	"github.com/example/snapmark/internal/viewport"
)

const (
	statusHeight  = 24
	messageLength = 2 * time.Second

	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
)

var checkerLight = color.RGBA{220, 220, 220, 255}
var checkerDark = color.RGBA{192, 192, 192, 255}
var statusBackground = color.RGBA{220, 220, 220, 255}

// backdropCache holds a cached checkerboard backdrop.
var backdropCache *image.RGBA

// AppState runs the annotation window around a Session.
type AppState struct {
	Session     *Session
	Output      string
	Title       string
	Notifier    *notify.Notifier
	ResizeDelay time.Duration

	onClose   func()
	closeOnce sync.Once

	// gestureButton started the current pan or stroke. Only its release
	// ends the gesture.
	gestureButton mouse.Button
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithSession sets the session edited by the window.
func WithSession(s *Session) Option { return func(a *AppState) { a.Session = s } }

// WithOutput sets the PNG path written on save. Exports go next to it.
func WithOutput(out string) Option { return func(a *AppState) { a.Output = out } }

// WithTitle sets the window title.
func WithTitle(title string) Option { return func(a *AppState) { a.Title = title } }

// WithNotifier sets the notifier used for capture, save and copy.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.Notifier = n } }

// WithResizeDelay sets the quiet period before a resize refits the image.
func WithResizeDelay(d time.Duration) Option { return func(a *AppState) { a.ResizeDelay = d } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState with the provided options.
func New(opts ...Option) *AppState {
	a := &AppState{
		Output:      "annotated.png",
		Title:       "Snapmark",
		ResizeDelay: canvas.DefaultResizeDelay,
	}
	for _, o := range opts {
		o(a)
	}
	if a.Session == nil {
		a.Session = NewSession()
	}
	return a
}

// refitEvent carries a debounced canvas size into the event loop.
type refitEvent struct {
	size image.Point
}

// captureEvent carries a finished background capture into the event loop.
type captureEvent struct {
	res capture.Result
	err error
}

// KeyShortcut describes a keyboard combination that triggers an action.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

type shortcutList []KeyShortcut

// shortcutFor normalizes a key press into the lookup form used by the
// action map. Only the control modifier distinguishes bindings.
func shortcutFor(e key.Event) KeyShortcut {
	mods := e.Modifiers & key.ModControl
	if e.Rune > 0 {
		return KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: mods}
	}
	return KeyShortcut{Code: e.Code, Modifiers: mods}
}

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Run executes the UI loop using shiny's driver.
func (a *AppState) Run() { driver.Main(a.Main) }

// initialWindowSize shows the image at 1:1 when it fits a typical screen.
func initialWindowSize(orig canvas.Size) image.Point {
	w, h := orig.Width, orig.Height
	if w <= 0 || h <= 0 {
		return image.Pt(defaultWindowWidth, defaultWindowHeight)
	}
	if w > defaultWindowWidth {
		w = defaultWindowWidth
	}
	if h > defaultWindowHeight-statusHeight {
		h = defaultWindowHeight - statusHeight
	}
	return image.Pt(w, h+statusHeight)
}

// canvasSize is the part of the window available to the image.
func canvasSize(width, height int) image.Point {
	h := height - statusHeight
	if h < 0 {
		h = 0
	}
	return image.Pt(width, h)
}

// displayRect returns where the original image lands in device pixels.
func displayRect(t viewport.Transform, orig canvas.Size) image.Rectangle {
	lo := t.OriginalToDevice(viewport.Point{})
	hi := t.OriginalToDevice(viewport.Point{X: float64(orig.Width), Y: float64(orig.Height)})
	return image.Rect(int(math.Round(lo.X)), int(math.Round(lo.Y)), int(math.Round(hi.X)), int(math.Round(hi.Y)))
}

// exportPath places the YAML export next to the saved image.
func exportPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".yaml"
}

type paintState struct {
	width, height int
	session       *Session
	busy          bool
	message       string
	messageUntil  time.Time
}

func statusText(st paintState) string {
	s := st.session
	parts := []string{
		s.Tool().String(),
		s.Color(),
		fmt.Sprintf("w%g", s.Width()),
		fmt.Sprintf("%.0f%%", s.Zoom()*100),
		fmt.Sprintf("%d shapes", len(s.Annotations())),
	}
	if st.busy {
		parts = append(parts, "capturing...")
	}
	if st.message != "" && time.Now().Before(st.messageUntil) {
		parts = append(parts, st.message)
	}
	return strings.Join(parts, "  ")
}

// drawCheckerboard fills rect of dst with a checkerboard pattern of the given
// colors. size controls the checker square size.
func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.Set(x, y, light)
			} else {
				dst.Set(x, y, dark)
			}
		}
	}
}

// drawBackdrop fills dst with a cached checkerboard pattern.
func drawBackdrop(dst *image.RGBA) {
	b := dst.Bounds()
	if backdropCache == nil || backdropCache.Bounds() != b {
		backdropCache = image.NewRGBA(b)
		drawCheckerboard(backdropCache, b, 8, checkerLight, checkerDark)
	}
	draw.Draw(dst, b, backdropCache, b.Min, draw.Src)
}

func drawStatus(dst *image.RGBA, rect image.Rectangle, text string) {
	draw.Draw(dst, rect, &image.Uniform{statusBackground}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13,
		Dot: fixed.P(rect.Min.X+4, rect.Min.Y+16)}
	d.DrawString(text)
}

func drawFrame(s screen.Screen, w screen.Window, st paintState) {
	if st.width <= 0 || st.height <= 0 {
		return
	}
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()

	area := canvasSize(st.width, st.height)
	dst := b.RGBA().SubImage(image.Rectangle{Max: area}).(*image.RGBA)
	drawBackdrop(dst)
	if view := st.session.View(); view != nil {
		r := displayRect(st.session.Transform(), st.session.OriginalSize())
		xdraw.ApproxBiLinear.Scale(dst, r, view, view.Bounds(), draw.Over, nil)
	}
	drawStatus(b.RGBA(), image.Rect(0, area.Y, st.width, st.height), statusText(st))

	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

func (a *AppState) Main(s screen.Screen) {
	session := a.Session
	output := a.Output

	initial := initialWindowSize(session.OriginalSize())
	width, height := initial.X, initial.Y
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: a.Title})
	if err != nil {
		log.Printf("new window: %v", err)
		return
	}
	defer w.Release()

	defer a.notifyClose()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	debounce := canvas.NewDebouncer(a.ResizeDelay, func(size image.Point) {
		w.Send(refitEvent{size: size})
	})
	defer debounce.Stop()
	session.Fit(canvasSize(width, height))

	var message string
	var messageUntil time.Time
	status := func(msg string) {
		message = msg
		log.Print(message)
		messageUntil = time.Now().Add(messageLength)
	}

	keyboardAction := map[KeyShortcut]string{}
	actions := map[string]func(){}

	register := func(name string, keys shortcutList, fn func()) {
		actions[name] = fn
		for _, sc := range keys {
			keyboardAction[sc] = name
		}
	}

	centre := func() viewport.Point {
		c := canvasSize(width, height)
		return viewport.Point{X: float64(c.X) / 2, Y: float64(c.Y) / 2}
	}

	selectTool := func(t engine.Tool) func() {
		return func() {
			if err := session.SetTool(t); err != nil {
				log.Printf("tool: %v", err)
				return
			}
			status(t.String())
		}
	}

	register("zoomin", shortcutList{{Rune: '+'}, {Rune: '='}}, func() { session.ZoomInAt(centre()) })
	register("zoomout", shortcutList{{Rune: '-'}}, func() { session.ZoomOutAt(centre()) })
	register("resetview", shortcutList{{Rune: '0'}}, session.ResetView)
	register("freehand", shortcutList{{Rune: 'f'}}, selectTool(engine.ToolFreehand))
	register("rectangle", shortcutList{{Rune: 'r'}}, selectTool(engine.ToolRectangle))
	register("arrow", shortcutList{{Rune: 'a'}}, selectTool(engine.ToolArrow))
	for i := 0; i < 9; i++ {
		idx := i
		register(fmt.Sprintf("color%d", idx+1), shortcutList{{Rune: rune('1' + idx)}}, func() {
			entry := palette.At(idx)
			if err := session.SetColor(entry.Name); err != nil {
				log.Printf("color: %v", err)
				return
			}
			status("color " + entry.Name)
		})
	}

	register("undo", shortcutList{{Rune: 'z', Modifiers: key.ModControl}}, func() {
		if !session.Undo() {
			status("nothing to undo")
		}
	})
	register("redo", shortcutList{{Rune: 'y', Modifiers: key.ModControl}}, func() {
		if !session.Redo() {
			status("nothing to redo")
		}
	})
	register("clear", shortcutList{{Code: key.CodeDeleteForward}}, func() {
		if err := session.Clear(); err != nil {
			log.Printf("clear: %v", err)
		}
	})
	register("cancel", shortcutList{{Code: key.CodeEscape}}, func() {
		session.CancelGesture()
		if err := session.Redraw(); err != nil && !errors.Is(err, canvas.ErrNotReady) {
			log.Printf("redraw: %v", err)
		}
	})

	register("save", shortcutList{{Rune: 's', Modifiers: key.ModControl}}, func() {
		res, err := session.EncodedResult()
		if err != nil {
			log.Printf("save: %v", err)
			return
		}
		if err := os.WriteFile(output, res.PNG, 0o644); err != nil {
			log.Printf("save: %v", err)
			return
		}
		status(fmt.Sprintf("saved %s", output))
		a.Notifier.Save(output)
	})

	register("copy", shortcutList{{Rune: 'c', Modifiers: key.ModControl}}, func() {
		res, err := session.EncodedResult()
		if err != nil {
			log.Printf("copy: %v", err)
			return
		}
		if err := clipboard.WritePNG(res.PNG); err != nil {
			log.Printf("copy: %v", err)
			return
		}
		status("image copied to clipboard")
		a.Notifier.Copy("image")
	})

	register("copyclean", shortcutList{{Rune: 'b', Modifiers: key.ModControl}}, func() {
		res, err := session.EncodedBase()
		if err != nil {
			log.Printf("copy capture: %v", err)
			return
		}
		if err := clipboard.WritePNG(res.PNG); err != nil {
			log.Printf("copy capture: %v", err)
			return
		}
		status("capture copied to clipboard")
		a.Notifier.Copy("capture")
	})

	register("copymarkup", shortcutList{{Rune: 'm', Modifiers: key.ModControl}}, func() {
		text, err := session.ExportText()
		if err != nil {
			log.Printf("copy annotations: %v", err)
			return
		}
		if err := clipboard.WriteText(text); err != nil {
			log.Printf("copy annotations: %v", err)
			return
		}
		status(fmt.Sprintf("%d annotations copied", len(session.Annotations())))
	})

	register("pastemarkup", shortcutList{{Rune: 'v', Modifiers: key.ModControl}}, func() {
		text, err := clipboard.ReadText()
		if err != nil {
			log.Printf("paste annotations: %v", err)
			status("clipboard has no annotations")
			return
		}
		if err := session.ImportText(text); err != nil {
			log.Printf("paste annotations: %v", err)
			status(fmt.Sprintf("paste rejected: %v", err))
			return
		}
		status(fmt.Sprintf("%d annotations pasted", len(session.Annotations())))
	})

	register("export", shortcutList{{Rune: 'e', Modifiers: key.ModControl}}, func() {
		path := exportPath(output)
		out, err := os.Create(path)
		if err != nil {
			log.Printf("export: %v", err)
			return
		}
		if err := session.Export(out); err != nil {
			log.Printf("export: %v", err)
			if cerr := out.Close(); cerr != nil {
				log.Printf("export: closing file: %v", cerr)
			}
			return
		}
		if err := out.Close(); err != nil {
			log.Printf("export: closing file: %v", err)
			return
		}
		status(fmt.Sprintf("exported %s", path))
	})

	register("capture", shortcutList{{Rune: 'n', Modifiers: key.ModControl}}, func() {
		if session.Busy() {
			status("capture already in progress")
			return
		}
		status("capturing")
		go func() {
			res, err := session.CaptureOnly(ctx)
			w.Send(captureEvent{res: res, err: err})
		}()
	})

	quit := false
	register("quit", shortcutList{{Rune: 'q'}}, func() { quit = true })

	paintNow := func() {
		drawFrame(s, w, paintState{
			width:        width,
			height:       height,
			session:      session,
			busy:         session.Busy(),
			message:      message,
			messageUntil: messageUntil,
		})
	}

	for {
		e := w.NextEvent()
		switch e := e.(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}
		case size.Event:
			width = e.WidthPx
			height = e.HeightPx
			debounce.Notify(canvasSize(width, height))
			w.Send(paint.Event{})
		case refitEvent:
			session.Fit(e.size)
			w.Send(paint.Event{})
		case captureEvent:
			if e.err != nil {
				status(fmt.Sprintf("capture failed: %v", e.err))
				w.Send(paint.Event{})
				continue
			}
			if _, err := session.Install(e.res); err != nil {
				status(fmt.Sprintf("capture failed: %v", err))
				w.Send(paint.Event{})
				continue
			}
			status("captured screenshot")
			a.Notifier.Capture(session.Backend(), e.res.Image)
			w.Send(paint.Event{})
		case paint.Event:
			paintNow()
		case mouse.Event:
			if a.handleMouse(e, canvasSize(width, height)) {
				w.Send(paint.Event{})
			}
		case key.Event:
			if e.Direction != key.DirPress {
				continue
			}
			name, ok := keyboardAction[shortcutFor(e)]
			if !ok {
				continue
			}
			actions[name]()
			if quit {
				return
			}
			w.Send(paint.Event{})
		}
	}
}

// handleMouse routes a pointer event to the session and reports whether a
// repaint is needed. Left drags draw; right, middle or ctrl+left drags pan;
// the wheel zooms toward the pointer.
func (a *AppState) handleMouse(e mouse.Event, area image.Point) bool {
	s := a.Session
	p := viewport.Point{X: float64(e.X), Y: float64(e.Y)}
	switch {
	case e.Button == mouse.ButtonWheelUp:
		if e.Direction == mouse.DirStep || e.Direction == mouse.DirPress {
			s.ZoomInAt(p)
			return true
		}
		return false
	case e.Button == mouse.ButtonWheelDown:
		if e.Direction == mouse.DirStep || e.Direction == mouse.DirPress {
			s.ZoomOutAt(p)
			return true
		}
		return false
	}

	switch e.Direction {
	case mouse.DirPress:
		if int(e.Y) >= area.Y || s.Panning() || s.Drawing() {
			return false
		}
		if e.Button == mouse.ButtonRight || e.Button == mouse.ButtonMiddle ||
			(e.Button == mouse.ButtonLeft && e.Modifiers&key.ModControl != 0) {
			s.BeginPan(p)
			a.gestureButton = e.Button
			return true
		}
		if e.Button == mouse.ButtonLeft {
			if err := s.PointerDown(p); err != nil {
				log.Printf("draw: %v", err)
			}
			a.gestureButton = e.Button
			return true
		}
	case mouse.DirNone:
		if s.Panning() {
			s.UpdatePan(p)
			return true
		}
		if s.Drawing() {
			if err := s.PointerMove(p); err != nil {
				log.Printf("draw: %v", err)
			}
			return true
		}
	case mouse.DirRelease:
		if e.Button != a.gestureButton {
			return false
		}
		a.gestureButton = mouse.ButtonNone
		if s.Panning() {
			s.EndPan()
			return true
		}
		if s.Drawing() {
			if err := s.PointerUp(p); err != nil {
				log.Printf("annotation rejected: %v", err)
			}
			return true
		}
	}
	return false
}
