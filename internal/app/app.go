// Package app provides the blink-to-click loop driver for winkmouse.
package app

import (
	"sync"
	"time"

	"github.com/ayusman/winkmouse/internal/blink"
	"github.com/ayusman/winkmouse/internal/capture"
	"github.com/ayusman/winkmouse/internal/detector"
	"github.com/ayusman/winkmouse/internal/input"
	"github.com/ayusman/winkmouse/internal/store"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// readRetryDelay is how long the loop waits after a failed camera read.
const readRetryDelay = 50 * time.Millisecond

// Display shows annotated frames. It returns true when the user asked to quit.
type Display interface {
	Show(frame *gocv.Mat) bool
}

// Config holds configuration options for the application.
type Config struct {
	Policy blink.Policy
	Mirror bool
	// Store records sessions and clicks. Nil disables history.
	Store *store.Store
	// Display shows the annotated preview. Nil runs headless.
	Display Display
}

// ClickEvent describes one dispatched click.
type ClickEvent struct {
	Click     blink.Click    `json:"-"`
	Side      string         `json:"side"`
	Decision  blink.Decision `json:"-"`
	Left      float64        `json:"leftDistance"`
	Right     float64        `json:"rightDistance"`
	At        time.Time      `json:"at"`
	SessionID string         `json:"sessionId,omitempty"`
}

// Stats counts what the loop has seen since Run started.
type Stats struct {
	Frames         int
	FacelessFrames int
	Clicks         int
}

// App is the loop driver. It owns the debounce state exclusively: only the
// goroutine calling Run or ProcessFrame reads or writes it.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	sink     input.ClickSink
	now      func() time.Time

	// loopMu guards state and stats. Only the loop writes them; readers on
	// other goroutines go through State and Stats.
	loopMu    sync.Mutex
	state     blink.State
	stats     Stats
	sessionID string

	mu             sync.RWMutex
	enabled        bool
	lastClick      *ClickEvent
	clickCallbacks []func(ClickEvent)
	frameCallbacks []func(*gocv.Mat)
}

// New creates a new App reading frames from camera, finding faces with det
// and dispatching clicks to sink.
func New(config Config, camera capture.Camera, det detector.Detector, sink input.ClickSink) *App {
	if config.Policy == (blink.Policy{}) {
		config.Policy = blink.DefaultPolicy()
	}
	return &App{
		config:   config,
		camera:   camera,
		detector: det,
		sink:     sink,
		now:      time.Now,
		enabled:  true,
	}
}

// SetEnabled enables or disables click evaluation. Frames keep flowing to the
// display while disabled, and the debounce state is left untouched.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	log.Info().Bool("enabled", enabled).Msg("Blink clicks toggled")
}

// IsEnabled returns whether click evaluation is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the face detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.detector = d
}

// SetSink sets the click sink.
func (a *App) SetSink(s input.ClickSink) {
	a.sink = s
}

// SetClock replaces the time source used for cooldowns.
func (a *App) SetClock(now func() time.Time) {
	a.now = now
}

// RegisterClickCallback adds a function called after every dispatched click.
func (a *App) RegisterClickCallback(fn func(ClickEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clickCallbacks = append(a.clickCallbacks, fn)
}

// RegisterFrameCallback adds a function called with every annotated frame.
// The frame is only valid for the duration of the call.
func (a *App) RegisterFrameCallback(fn func(*gocv.Mat)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameCallbacks = append(a.frameCallbacks, fn)
}

// State returns the current debounce state. Safe to call while Run is active.
func (a *App) State() blink.State {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()
	return a.state
}

// Stats returns the counters of the current run. Safe to call while Run is active.
func (a *App) Stats() Stats {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()
	return a.stats
}

// update applies fn to the loop-owned fields under loopMu.
func (a *App) update(fn func()) {
	a.loopMu.Lock()
	fn()
	a.loopMu.Unlock()
}

// LastClick returns the most recent click, or nil if none happened yet.
func (a *App) LastClick() *ClickEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastClick == nil {
		return nil
	}
	c := *a.lastClick
	return &c
}

// Policy returns the blink policy in use.
func (a *App) Policy() blink.Policy {
	return a.config.Policy
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the face detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}
