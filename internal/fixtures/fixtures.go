// Package fixtures provides synthetic frames and scripted face sequences for
// integration tests.
package fixtures

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/winkmouse/internal/detector"
	"github.com/ayusman/winkmouse/internal/landmark"
)

// Frame size used by the fixtures. Eye gaps of the preset faces are sized
// against this height.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// BlankFrames returns n black BGR frames. Close them with CloseFrames.
func BlankFrames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		m := gocv.NewMatWithSize(FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
		frames = append(frames, &m)
	}
	return frames
}

// CloseFrames releases frames created by BlankFrames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// Step is one frame of a script: the face seen (nil for none) and when.
type Step struct {
	Face *detector.FaceLandmarks
	At   time.Duration
}

// At builds a step with face seen at the given offset in seconds.
func At(seconds float64, face *detector.FaceLandmarks) Step {
	return Step{Face: face, At: time.Duration(seconds * float64(time.Second))}
}

// Face helpers for scripts.
func Open() *detector.FaceLandmarks      { f := landmark.OpenEyesFace(); return &f }
func WinkLeft() *detector.FaceLandmarks  { f := landmark.WinkLeftFace(); return &f }
func WinkRight() *detector.FaceLandmarks { f := landmark.WinkRightFace(); return &f }
func Closed() *detector.FaceLandmarks    { f := landmark.ClosedEyesFace(); return &f }

// Script is a Detector that plays back one step per Detect call and a clock
// that reports the time of the step being processed.
type Script struct {
	mu    sync.Mutex
	base  time.Time
	steps []Step
	next  int
	now   time.Time
}

// NewScript creates a script starting at base.
func NewScript(base time.Time, steps ...Step) *Script {
	return &Script{base: base, steps: steps, now: base}
}

// Len returns the number of steps.
func (s *Script) Len() int {
	return len(s.steps)
}

// Detect returns the face of the next step. Past the end it returns no faces.
func (s *Script) Detect(frame *gocv.Mat) ([]detector.FaceLandmarks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.steps) {
		return nil, nil
	}
	step := s.steps[s.next]
	s.next++
	s.now = s.base.Add(step.At)

	if step.Face == nil {
		return nil, nil
	}
	return []detector.FaceLandmarks{*step.Face}, nil
}

// Close is a no-op.
func (s *Script) Close() error {
	return nil
}

// Now returns the time of the step last returned by Detect.
func (s *Script) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
