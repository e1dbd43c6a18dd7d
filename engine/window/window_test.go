package window

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

type fakePlatform struct {
	closeRequested bool
	destroyed      bool
	title          string
	polls          int
	onPoll         func()
}

func (f *fakePlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor { return &wgpu.SurfaceDescriptor{} }
func (f *fakePlatform) shouldClose() bool                          { return f.closeRequested }
func (f *fakePlatform) requestClose()                              { f.closeRequested = true }
func (f *fakePlatform) setTitle(title string)                      { f.title = title }
func (f *fakePlatform) destroy()                                   { f.destroyed = true }

func (f *fakePlatform) pollEvents() {
	f.polls++
	if f.onPoll != nil {
		f.onPoll()
	}
}

type drag struct {
	button Button
	dx, dy float32
}

func TestDragDispatch(t *testing.T) {
	tests := []struct {
		name   string
		events func(w *engineWindow)
		want   []drag
	}{
		{"move without button", func(w *engineWindow) {
			w.cursorEvent(10, 10)
			w.cursorEvent(20, 15)
		}, nil},
		{"left drag measured from press", func(w *engineWindow) {
			w.cursorEvent(3, 3)
			w.buttonEvent(ButtonLeft, true, 10, 10)
			w.cursorEvent(14, 7)
			w.cursorEvent(15, 7)
		}, []drag{{ButtonLeft, 4, -3}, {ButtonLeft, 1, 0}}},
		{"release stops drag", func(w *engineWindow) {
			w.buttonEvent(ButtonMiddle, true, 0, 0)
			w.cursorEvent(2, 0)
			w.buttonEvent(ButtonMiddle, false, 2, 0)
			w.cursorEvent(5, 5)
		}, []drag{{ButtonMiddle, 2, 0}}},
		{"two buttons held", func(w *engineWindow) {
			w.buttonEvent(ButtonLeft, true, 0, 0)
			w.buttonEvent(ButtonRight, true, 0, 0)
			w.cursorEvent(1, 2)
		}, []drag{{ButtonLeft, 1, 2}, {ButtonRight, 1, 2}}},
		{"zero movement ignored", func(w *engineWindow) {
			w.buttonEvent(ButtonLeft, true, 5, 5)
			w.cursorEvent(5, 5)
		}, nil},
		{"unknown button ignored", func(w *engineWindow) {
			w.buttonEvent(Button(7), true, 0, 0)
			w.cursorEvent(1, 1)
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newEngineWindow()
			var got []drag
			w.SetDragCallback(func(b Button, dx, dy float32) {
				got = append(got, drag{b, dx, dy})
			})
			tt.events(w)
			if len(got) != len(tt.want) {
				t.Fatalf("drags = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("drag %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestKeyScrollAndResize(t *testing.T) {
	w := newEngineWindow(WithSize(800, 600))
	var down, up []uint32
	var scroll float32
	var resized [2]int
	w.SetKeyDownCallback(func(code uint32) { down = append(down, code) })
	w.SetKeyUpCallback(func(code uint32) { up = append(up, code) })
	w.SetScrollCallback(func(delta float32) { scroll += delta })
	w.SetResizeCallback(func(width, height int) { resized = [2]int{width, height} })

	w.keyEvent(49, true)
	w.keyEvent(49, true)
	w.keyEvent(49, false)
	w.scrollEvent(1.5)
	w.scrollEvent(0)
	w.resizeEvent(0, 0)
	if w.Width() != 800 || w.Height() != 600 || resized != [2]int{} {
		t.Errorf("minimized resize changed size to %dx%d (callback %v)", w.Width(), w.Height(), resized)
	}
	w.resizeEvent(1024, 768)

	if len(down) != 2 || len(up) != 1 {
		t.Errorf("key downs %v ups %v", down, up)
	}
	if scroll != 1.5 {
		t.Errorf("scroll = %v, want 1.5", scroll)
	}
	if resized != [2]int{1024, 768} || w.Width() != 1024 || w.Height() != 768 {
		t.Errorf("resize = %v, size %dx%d", resized, w.Width(), w.Height())
	}
}

func TestProcessMessagesStopsOnRequestClose(t *testing.T) {
	w := newEngineWindow()
	p := &fakePlatform{}
	w.platform = p

	updates := 0
	w.SetUpdateCallback(func() {
		updates++
		if updates == 3 {
			w.RequestClose()
		}
	})
	w.ProcessMessages()

	if updates != 3 || p.polls != 3 {
		t.Errorf("updates = %d polls = %d, want 3 and 3", updates, p.polls)
	}
	if !p.closeRequested || w.IsRunning() {
		t.Error("window still running after RequestClose")
	}
}

func TestProcessMessagesSkipsUpdateAfterPlatformClose(t *testing.T) {
	w := newEngineWindow()
	p := &fakePlatform{}
	p.onPoll = func() { p.closeRequested = true }
	w.platform = p

	w.SetUpdateCallback(func() { t.Error("update called after the platform closed") })
	w.ProcessMessages()
	if p.polls != 1 {
		t.Errorf("polls = %d, want 1", p.polls)
	}
}

func TestTitleAndClose(t *testing.T) {
	w := newEngineWindow(WithTitle("a"))
	if w.SurfaceDescriptor() != nil || w.IsRunning() {
		t.Fatal("window without a platform reports a surface or running state")
	}
	if err := w.Close(); err == nil {
		t.Error("Close() without a platform succeeded")
	}

	p := &fakePlatform{}
	w.platform = p
	w.SetTitle("a")
	if p.title != "" {
		t.Errorf("unchanged title forwarded: %q", p.title)
	}
	w.SetTitle("b")
	if p.title != "b" || w.Title() != "b" {
		t.Errorf("title = %q platform %q", w.Title(), p.title)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !p.destroyed || w.IsRunning() {
		t.Error("Close() did not destroy the platform")
	}
}
