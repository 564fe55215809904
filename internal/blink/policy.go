// Package blink turns per-frame eyelid measurements into debounced mouse clicks.
//
// A wink (one eye closed, the other open) produces a click for that side at
// most once per cooldown window. Closing both eyes is a pause gesture and
// never clicks.
package blink

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Default policy values.
const (
	// DefaultThreshold is the eyelid gap in pixels below which an eye counts as closed.
	DefaultThreshold = 3.5
	// DefaultCooldown is the minimum time between two clicks of the same side.
	DefaultCooldown = time.Second
)

// ErrIncompleteFace is returned when a face mesh lacks the eye landmarks.
var ErrIncompleteFace = errors.New("face mesh is missing eye landmarks")

// Click identifies the mouse button a wink maps to.
type Click int

const (
	Left Click = iota
	Right
)

// String returns the robotgo button name for the click.
func (c Click) String() string {
	switch c {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("click(%d)", int(c))
	}
}

// State carries the only information kept between frames: when each side
// last clicked. The zero value is the startup state.
type State struct {
	LastLeft  time.Time
	LastRight time.Time
}

// Last returns the last click time for the given side.
func (s State) Last(c Click) time.Time {
	if c == Right {
		return s.LastRight
	}
	return s.LastLeft
}

// Policy holds the fixed blink threshold and cooldown.
type Policy struct {
	Threshold float64
	Cooldown  time.Duration
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Threshold: DefaultThreshold,
		Cooldown:  DefaultCooldown,
	}
}

// Validate checks that the policy can ever fire and that its cooldown is sane.
func (p Policy) Validate() error {
	if math.IsNaN(p.Threshold) || p.Threshold <= 0 {
		return fmt.Errorf("blink threshold must be positive, got %v", p.Threshold)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("blink cooldown must not be negative, got %v", p.Cooldown)
	}
	return nil
}

// Closed reports whether an eyelid distance counts as a closed eye.
func (p Policy) Closed(distance float64) bool {
	return distance < p.Threshold
}

// Evaluate decides which clicks to emit for one frame.
//
// A side fires when its eye is closed, the other eye is open, and strictly
// more than Cooldown has passed since that side last fired. The returned
// state records now for every side that fired; it is otherwise st unchanged.
// Left is always reported before Right.
func (p Policy) Evaluate(left, right float64, now time.Time, st State) ([]Click, State) {
	leftClosed := p.Closed(left)
	rightClosed := p.Closed(right)

	if leftClosed && rightClosed {
		return nil, st
	}

	var clicks []Click
	if leftClosed && now.Sub(st.LastLeft) > p.Cooldown {
		clicks = append(clicks, Left)
		st.LastLeft = now
	}
	if rightClosed && now.Sub(st.LastRight) > p.Cooldown {
		clicks = append(clicks, Right)
		st.LastRight = now
	}
	return clicks, st
}
