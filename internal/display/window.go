package display

import "gocv.io/x/gocv"

// Keys that close the preview window.
const (
	keyQuit      = 'q'
	keyQuitUpper = 'Q'
	keyEscape    = 27
)

// Window is the live preview window. It must be used from the thread that created it.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a preview window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show displays frame and polls the keyboard for one millisecond.
// It returns true when the user asked to quit.
func (w *Window) Show(frame *gocv.Mat) bool {
	if frame != nil && !frame.Empty() {
		w.win.IMShow(*frame)
	}
	return IsQuitKey(w.win.WaitKey(1))
}

// Close closes the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// IsQuitKey reports whether a WaitKey result is one of the quit keys.
func IsQuitKey(key int) bool {
	if key < 0 {
		return false
	}
	switch key & 0xFF {
	case keyQuit, keyQuitUpper, keyEscape:
		return true
	}
	return false
}
