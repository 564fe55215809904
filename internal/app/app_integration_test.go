package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/winkmouse/internal/blink"
	"github.com/ayusman/winkmouse/internal/capture"
	"github.com/ayusman/winkmouse/internal/detector"
	"github.com/ayusman/winkmouse/internal/landmark"
	"github.com/ayusman/winkmouse/internal/input"
	"github.com/ayusman/winkmouse/internal/store"
	"gocv.io/x/gocv"
)

// stepClock returns start, start+step, start+2*step... on successive calls.
type stepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{next: time.Unix(1000, 0), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// fixedClock returns whatever time is stored in it.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Set(seconds float64) {
	c.t = time.Unix(1000, 0).Add(time.Duration(seconds * float64(time.Second)))
}

func newTestFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return &frame
}

func newTestApp(t *testing.T) (*App, *detector.MockDetector, *input.MockSink, *fixedClock) {
	t.Helper()
	det := detector.NewMockDetector()
	sink := input.NewMockSink()
	clock := &fixedClock{}
	clock.Set(0)

	app := New(Config{}, capture.NewMockCamera(nil, false), det, sink)
	app.SetClock(clock.Now)
	return app, det, sink, clock
}

func TestApp_New_Defaults(t *testing.T) {
	app := New(Config{}, nil, nil, nil)

	if !app.IsEnabled() {
		t.Error("app should start enabled")
	}
	if app.Policy() != blink.DefaultPolicy() {
		t.Errorf("Policy() = %+v, want default", app.Policy())
	}
	if app.State() != (blink.State{}) {
		t.Errorf("State() = %+v, want zero state", app.State())
	}
	if app.LastClick() != nil {
		t.Error("LastClick() should be nil before any click")
	}
}

func TestApp_ProcessFrame_WinkTriggersClick(t *testing.T) {
	tests := []struct {
		name string
		face detector.FaceLandmarks
		want []blink.Click
	}{
		{"open eyes", landmark.OpenEyesFace(), nil},
		{"left wink", landmark.WinkLeftFace(), []blink.Click{blink.Left}},
		{"right wink", landmark.WinkRightFace(), []blink.Click{blink.Right}},
		{"both closed", landmark.ClosedEyesFace(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, det, sink, _ := newTestApp(t)
			det.SetFaces([]detector.FaceLandmarks{tt.face})

			result, err := app.ProcessFrame(newTestFrame(t))
			if err != nil {
				t.Fatalf("ProcessFrame() error = %v", err)
			}
			if !result.FaceFound {
				t.Fatal("expected face to be found")
			}

			got := sink.Clicks()
			if len(got) != len(tt.want) {
				t.Fatalf("clicks = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("click[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestApp_ProcessFrame_BothClosedLeavesStateUnchanged(t *testing.T) {
	app, det, _, _ := newTestApp(t)
	det.SetFaces([]detector.FaceLandmarks{landmark.ClosedEyesFace()})

	result, err := app.ProcessFrame(newTestFrame(t))
	if err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if !result.Decision.BothClosed {
		t.Error("expected BothClosed decision")
	}
	if app.State() != (blink.State{}) {
		t.Errorf("State() = %+v, want unchanged zero state", app.State())
	}
}

func TestApp_ProcessFrame_Cooldown(t *testing.T) {
	app, det, sink, clock := newTestApp(t)
	det.SetFaces([]detector.FaceLandmarks{landmark.WinkLeftFace()})
	frame := newTestFrame(t)

	steps := []struct {
		at    float64
		total int
	}{
		{0, 1},
		{0.5, 1},
		{1.0, 1}, // exactly one cooldown later is still inside it
		{1.01, 2},
		{1.5, 2},
		{2.2, 3},
	}

	for _, s := range steps {
		clock.Set(s.at)
		if _, err := app.ProcessFrame(frame); err != nil {
			t.Fatalf("ProcessFrame() at %.2fs error = %v", s.at, err)
		}
		if got := sink.Count(blink.Left); got != s.total {
			t.Errorf("after %.2fs left clicks = %d, want %d", s.at, got, s.total)
		}
	}

	if sink.Count(blink.Right) != 0 {
		t.Errorf("unexpected right clicks: %d", sink.Count(blink.Right))
	}
}

func TestApp_ProcessFrame_NoFace(t *testing.T) {
	app, det, sink, clock := newTestApp(t)
	frame := newTestFrame(t)

	det.SetFaces([]detector.FaceLandmarks{landmark.WinkLeftFace()})
	if _, err := app.ProcessFrame(frame); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	before := app.State()

	clock.Set(5)
	det.SetFaces(nil)
	result, err := app.ProcessFrame(frame)
	if err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if result.FaceFound {
		t.Error("FaceFound should be false without faces")
	}
	if app.State() != before {
		t.Errorf("State() changed on faceless frame: %+v -> %+v", before, app.State())
	}
	if len(sink.Clicks()) != 1 {
		t.Errorf("clicks = %v, want only the first one", sink.Clicks())
	}

	stats := app.Stats()
	if stats.Frames != 2 || stats.FacelessFrames != 1 || stats.Clicks != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestApp_ProcessFrame_IncompleteFace(t *testing.T) {
	app, det, sink, _ := newTestApp(t)
	det.SetFaces([]detector.FaceLandmarks{{Points: make([]detector.Point3D, 100)}})

	result, err := app.ProcessFrame(newTestFrame(t))
	if !errors.Is(err, blink.ErrIncompleteFace) {
		t.Fatalf("ProcessFrame() error = %v, want ErrIncompleteFace", err)
	}
	if !result.FaceFound {
		t.Error("FaceFound should be true for an incomplete face")
	}
	if app.State() != (blink.State{}) {
		t.Error("State() should not change on incomplete face")
	}
	if len(sink.Clicks()) != 0 {
		t.Errorf("clicks = %v, want none", sink.Clicks())
	}
}

func TestApp_ProcessFrame_FirstFaceOnly(t *testing.T) {
	app, det, sink, _ := newTestApp(t)
	det.SetFaces([]detector.FaceLandmarks{landmark.OpenEyesFace(), landmark.WinkLeftFace()})

	if _, err := app.ProcessFrame(newTestFrame(t)); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if len(sink.Clicks()) != 0 {
		t.Errorf("clicks = %v, second face should be ignored", sink.Clicks())
	}
}

func TestApp_ProcessFrame_DetectorError(t *testing.T) {
	app, det, sink, _ := newTestApp(t)
	det.SetError(errors.New("service died"))

	if _, err := app.ProcessFrame(newTestFrame(t)); err == nil {
		t.Fatal("expected detector error")
	}
	if len(sink.Clicks()) != 0 {
		t.Error("no clicks expected on detector error")
	}
}

func TestApp_ProcessFrame_SinkErrorStillConsumesCooldown(t *testing.T) {
	app, det, sink, clock := newTestApp(t)
	det.SetFaces([]detector.FaceLandmarks{landmark.WinkRightFace()})
	sink.SetError(errors.New("no display"))
	frame := newTestFrame(t)

	if _, err := app.ProcessFrame(frame); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if app.State().LastRight.IsZero() {
		t.Fatal("LastRight should be set even though the sink failed")
	}

	clock.Set(0.5)
	if _, err := app.ProcessFrame(frame); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if app.Stats().Clicks != 1 {
		t.Errorf("Stats().Clicks = %d, want 1", app.Stats().Clicks)
	}
}

func TestApp_SetEnabled(t *testing.T) {
	app, det, sink, _ := newTestApp(t)
	det.SetFaces([]detector.FaceLandmarks{landmark.WinkLeftFace()})
	frame := newTestFrame(t)

	app.SetEnabled(false)
	result, err := app.ProcessFrame(frame)
	if err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if !result.Skipped {
		t.Error("frame should be skipped while disabled")
	}
	if det.Calls() != 0 {
		t.Errorf("detector called %d times while disabled", det.Calls())
	}

	app.SetEnabled(true)
	if _, err := app.ProcessFrame(frame); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if sink.Count(blink.Left) != 1 {
		t.Errorf("left clicks = %d, want 1 after re-enabling", sink.Count(blink.Left))
	}
}

func TestApp_ClickCallback(t *testing.T) {
	app, det, _, _ := newTestApp(t)
	det.SetFaces([]detector.FaceLandmarks{landmark.WinkLeftFace()})

	var events []ClickEvent
	app.RegisterClickCallback(func(e ClickEvent) {
		events = append(events, e)
	})

	if _, err := app.ProcessFrame(newTestFrame(t)); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("callback events = %d, want 1", len(events))
	}
	e := events[0]
	if e.Click != blink.Left || e.Side != "left" {
		t.Errorf("event = %+v, want left click", e)
	}
	if e.Left >= blink.DefaultThreshold || e.Right <= blink.DefaultThreshold {
		t.Errorf("event distances = (%.2f, %.2f)", e.Left, e.Right)
	}

	last := app.LastClick()
	if last == nil || last.Side != "left" {
		t.Errorf("LastClick() = %+v, want left", last)
	}
}

func TestApp_Run_RecordsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	var frames []*gocv.Mat
	for i := 0; i < 4; i++ {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		defer m.Close()
		frames = append(frames, &m)
	}
	camera := capture.NewMockCamera(frames, false)

	det := detector.NewMockDetector()
	det.SetFaces([]detector.FaceLandmarks{landmark.WinkRightFace()})
	sink := input.NewMockSink()

	app := New(Config{Store: s, Mirror: true}, camera, det, sink)
	clock := newStepClock(600 * time.Millisecond)
	app.SetClock(clock.Now)

	var annotated int
	app.RegisterFrameCallback(func(m *gocv.Mat) {
		if !m.Empty() {
			annotated++
		}
	})

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Frames at 0, 0.6, 1.2 and 1.8s: clicks at 0 and 1.2.
	if got := sink.Count(blink.Right); got != 2 {
		t.Errorf("right clicks = %d, want 2", got)
	}
	if annotated != 4 {
		t.Errorf("frame callback calls = %d, want 4", annotated)
	}
	if camera.IsOpen() {
		t.Error("camera should be closed after Run")
	}

	sessions, err := s.Sessions().List(10)
	if err != nil {
		t.Fatalf("Sessions().List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	sess := sessions[0]
	if sess.Running() {
		t.Error("session should be finished")
	}
	if sess.Frames != 4 || sess.Clicks != 2 || sess.FacelessFrames != 0 {
		t.Errorf("session stats = %+v", sess)
	}

	clicks, err := s.Clicks().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(clicks) != 2 {
		t.Fatalf("recorded clicks = %d, want 2", len(clicks))
	}
	for _, c := range clicks {
		if c.Side != store.SideRight {
			t.Errorf("recorded side = %q, want %q", c.Side, store.SideRight)
		}
	}
}

func TestApp_Run_StopsOnContextCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer m.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&m}, true)

	det := detector.NewMockDetector()
	det.SetFaces([]detector.FaceLandmarks{landmark.OpenEyesFace()})

	app := New(Config{}, camera, det, input.NewMockSink())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for camera.Reads() < 5 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("loop did not read frames")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestApp_StatsReadableDuringRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer m.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&m}, true)

	det := detector.NewMockDetector()
	det.SetFaces([]detector.FaceLandmarks{landmark.WinkLeftFace()})

	app := New(Config{}, camera, det, input.NewMockSink())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	// Read loop-owned fields from another goroutine while frames flow.
	deadline := time.Now().Add(2 * time.Second)
	for app.Stats().Frames < 20 {
		if time.Now().After(deadline) {
			t.Fatal("loop did not process frames")
		}
		_ = app.State()
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if app.State().LastLeft.IsZero() {
		t.Error("left wink should have set LastLeft")
	}
	if got := app.Stats().Clicks; got < 1 {
		t.Errorf("Clicks = %d, want at least 1", got)
	}
}

type quitAfter struct {
	n     int
	shown int
}

func (q *quitAfter) Show(*gocv.Mat) bool {
	q.shown++
	return q.shown >= q.n
}

func TestApp_Run_DisplayQuit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer m.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&m}, true)

	det := detector.NewMockDetector()
	disp := &quitAfter{n: 3}
	app := New(Config{Display: disp}, camera, det, input.NewMockSink())

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if disp.shown != 3 {
		t.Errorf("frames shown = %d, want 3", disp.shown)
	}
	if app.Stats().FacelessFrames != 3 {
		t.Errorf("FacelessFrames = %d, want 3", app.Stats().FacelessFrames)
	}
}
