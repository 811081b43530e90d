package canvas

import (
	"image"
	"sync"
	"testing"
	"time"
)

func TestDebouncerFiresOncePerBurst(t *testing.T) {
	var mu sync.Mutex
	var got []image.Point
	done := make(chan struct{}, 4)
	d := NewDebouncer(30*time.Millisecond, func(p image.Point) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		done <- struct{}{}
	})
	for i := 1; i <= 5; i++ {
		d.Notify(image.Pt(i*100, i*50))
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debouncer never fired")
	}
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected one call, got %d", len(got))
	}
	if got[0] != image.Pt(500, 250) {
		t.Fatalf("expected the last size, got %v", got[0])
	}
}

func TestDebouncerStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(20*time.Millisecond, func(image.Point) { fired <- struct{}{} })
	d.Notify(image.Pt(1, 1))
	d.Stop()
	select {
	case <-fired:
		t.Fatalf("stopped debouncer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerDefaultDelay(t *testing.T) {
	d := NewDebouncer(0, func(image.Point) {})
	if d.delay != DefaultResizeDelay {
		t.Fatalf("expected default delay, got %v", d.delay)
	}
}
