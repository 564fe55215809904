package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/winkmouse/internal/blink"
	"github.com/ayusman/winkmouse/internal/capture"
	"github.com/ayusman/winkmouse/internal/display"
	"github.com/ayusman/winkmouse/internal/store"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// FrameResult is the outcome of evaluating one frame.
type FrameResult struct {
	// Skipped is true when evaluation is disabled.
	Skipped bool
	// FaceFound is false when the detector returned no face.
	FaceFound bool
	Decision  blink.Decision
}

// Run is the main loop. Each iteration reads one frame, runs one detection,
// one policy evaluation and dispatches zero or more clicks.
//
// Run returns nil when ctx is cancelled, the display asks to quit, or a
// finite source runs out of frames.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer a.camera.Close()

	a.update(func() { a.stats = Stats{} })
	a.startSession()
	defer a.finishSession()

	log.Info().
		Float64("threshold", a.config.Policy.Threshold).
		Dur("cooldown", a.config.Policy.Cooldown).
		Bool("mirror", a.config.Mirror).
		Msg("Blink tracking started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Blink tracking stopped")
			return nil
		default:
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			log.Info().Int("frames", a.stats.Frames).Msg("Frame source exhausted")
			return nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("Error reading frame")
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}

		quit := a.step(frame)
		frame.Close()

		if quit {
			log.Info().Msg("Quit key pressed")
			return nil
		}
	}
}

// step handles one captured frame end to end and reports whether to quit.
func (a *App) step(frame *gocv.Mat) bool {
	if a.config.Mirror {
		capture.Mirror(frame)
	}

	result, err := a.ProcessFrame(frame)
	switch {
	case errors.Is(err, blink.ErrIncompleteFace):
		log.Warn().Err(err).Msg("Skipping frame")
	case err != nil:
		log.Warn().Err(err).Msg("Error detecting face")
	case result.FaceFound:
		display.DrawOverlay(frame, result.Decision)
	case !result.Skipped:
		display.DrawNoFace(frame)
	}

	a.mu.RLock()
	callbacks := a.frameCallbacks
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn(frame)
	}

	if a.config.Display != nil {
		return a.config.Display.Show(frame)
	}
	return false
}

// ProcessFrame runs detection and the blink policy on a single frame and
// dispatches the resulting clicks. It does not mirror, draw or display.
//
// When no face is found, or the face is incomplete, the debounce state is
// left unchanged and no click is emitted.
func (a *App) ProcessFrame(frame *gocv.Mat) (FrameResult, error) {
	a.update(func() { a.stats.Frames++ })

	if !a.IsEnabled() {
		return FrameResult{Skipped: true}, nil
	}
	if a.detector == nil {
		return FrameResult{}, errors.New("no face detector configured")
	}

	faces, err := a.detector.Detect(frame)
	if err != nil {
		return FrameResult{}, err
	}

	if len(faces) == 0 {
		a.update(func() { a.stats.FacelessFrames++ })
		log.Debug().Msg("No face detected")
		return FrameResult{}, nil
	}

	decision, next, err := a.config.Policy.EvaluateFace(&faces[0], frame.Cols(), frame.Rows(), a.now(), a.state)
	if err != nil {
		return FrameResult{FaceFound: true}, err
	}
	a.update(func() { a.state = next })

	for _, c := range decision.Clicks {
		a.dispatch(c, decision)
	}

	return FrameResult{FaceFound: true, Decision: decision}, nil
}

// dispatch sends one click to the sink, records it and notifies listeners.
// A sink failure is logged; the click still counts toward the cooldown.
func (a *App) dispatch(c blink.Click, d blink.Decision) {
	a.update(func() { a.stats.Clicks++ })

	log.Info().
		Str("side", c.String()).
		Float64("left_distance", d.Left.Distance).
		Float64("right_distance", d.Right.Distance).
		Msgf("%s blink detected, %s click triggered", sideTitle(c), c)

	if a.sink != nil {
		if err := a.sink.Click(c); err != nil {
			log.Error().Err(err).Str("side", c.String()).Msg("Failed to dispatch click")
		}
	}

	event := ClickEvent{
		Click:     c,
		Side:      c.String(),
		Decision:  d,
		Left:      d.Left.Distance,
		Right:     d.Right.Distance,
		At:        d.At,
		SessionID: a.sessionID,
	}
	a.recordClick(event)

	a.mu.Lock()
	a.lastClick = &event
	callbacks := a.clickCallbacks
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn(event)
	}
}

func sideTitle(c blink.Click) string {
	if c == blink.Right {
		return "Right"
	}
	return "Left"
}

func (a *App) startSession() {
	if a.config.Store == nil {
		return
	}
	sess, err := a.config.Store.Sessions().Start()
	if err != nil {
		log.Error().Err(err).Msg("Failed to start session, click history disabled")
		return
	}
	a.sessionID = sess.ID
	log.Debug().Str("session", sess.ID).Msg("Session started")
}

func (a *App) finishSession() {
	if a.config.Store == nil || a.sessionID == "" {
		return
	}
	stats := store.SessionStats{
		Frames:         a.stats.Frames,
		FacelessFrames: a.stats.FacelessFrames,
		Clicks:         a.stats.Clicks,
	}
	if err := a.config.Store.Sessions().Finish(a.sessionID, stats); err != nil {
		log.Error().Err(err).Str("session", a.sessionID).Msg("Failed to finish session")
	}
	log.Info().
		Str("session", a.sessionID).
		Int("frames", stats.Frames).
		Int("faceless_frames", stats.FacelessFrames).
		Int("clicks", stats.Clicks).
		Msg("Session finished")
	a.sessionID = ""
}

func (a *App) recordClick(e ClickEvent) {
	if a.config.Store == nil || e.SessionID == "" {
		return
	}
	err := a.config.Store.Clicks().Create(&store.Click{
		SessionID:     e.SessionID,
		Side:          e.Side,
		LeftDistance:  e.Left,
		RightDistance: e.Right,
		CreatedAt:     e.At,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to record click")
	}
}
