// Package input dispatches synthetic mouse clicks to the operating system.
package input

import (
	"errors"
	"sync"

	"github.com/ayusman/winkmouse/internal/blink"
	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog/log"
)

// ClickSink receives the clicks decided by the blink policy.
type ClickSink interface {
	Click(c blink.Click) error
}

// RobotSink injects real mouse clicks at the current cursor position via robotgo.
type RobotSink struct {
	mu sync.Mutex
}

// NewRobotSink creates a sink that clicks through robotgo.
func NewRobotSink() *RobotSink {
	return &RobotSink{}
}

// Click presses and releases the mouse button for c.
func (s *RobotSink) Click(c blink.Click) error {
	if c != blink.Left && c != blink.Right {
		return errors.New("unknown click " + c.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	robotgo.Click(c.String())
	return nil
}

// LogSink only logs clicks. It is used for dry runs.
type LogSink struct{}

// Click logs the click at info level.
func (LogSink) Click(c blink.Click) error {
	log.Info().Str("side", c.String()).Msg("Dry run: click suppressed")
	return nil
}

// Fanout dispatches every click to each sink in order.
type Fanout []ClickSink

// Click calls every sink, even after a failure, and joins their errors.
func (f Fanout) Click(c blink.Click) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Click(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Except forwards clicks to Sink, dropping the sides listed in Skip.
type Except struct {
	Sink ClickSink
	Skip map[blink.Click]bool
}

// Click forwards c unless its side is skipped.
func (e Except) Click(c blink.Click) error {
	if e.Skip[c] || e.Sink == nil {
		return nil
	}
	return e.Sink.Click(c)
}
