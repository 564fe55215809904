package blink

import (
	"math"
	"time"

	"github.com/ayusman/winkmouse/internal/landmark"
)

// Distance returns the pixel distance between two normalized landmarks on a
// frame of the given size. The depth coordinate is ignored.
func Distance(a, b landmark.Point3D, width, height int) float64 {
	dx := (b.X - a.X) * float64(width)
	dy := (b.Y - a.Y) * float64(height)
	return math.Sqrt(dx*dx + dy*dy)
}

// EyeState is the per-frame measurement of one eye.
type EyeState struct {
	Top      landmark.Point3D
	Bottom   landmark.Point3D
	Distance float64
}

// MeasureEye measures the eyelid gap between two landmarks.
func MeasureEye(top, bottom landmark.Point3D, width, height int) EyeState {
	return EyeState{
		Top:      top,
		Bottom:   bottom,
		Distance: Distance(top, bottom, width, height),
	}
}

// MeasureEyes measures both eyes of a face mesh.
// Returns ErrIncompleteFace if the mesh does not contain the eye landmarks.
func MeasureEyes(face *landmark.FaceLandmarks, width, height int) (left, right EyeState, err error) {
	if !face.HasEyes() {
		return EyeState{}, EyeState{}, ErrIncompleteFace
	}

	p := face.Points
	left = MeasureEye(p[landmark.LeftEyeTop], p[landmark.LeftEyeBottom], width, height)
	right = MeasureEye(p[landmark.RightEyeTop], p[landmark.RightEyeBottom], width, height)
	return left, right, nil
}

// Decision is everything the policy concluded about one frame.
type Decision struct {
	Left       EyeState
	Right      EyeState
	BothClosed bool
	Clicks     []Click
	At         time.Time
}

// EvaluateFace measures both eyes of a face and runs Evaluate on them.
// On error the returned state is st unchanged.
func (p Policy) EvaluateFace(face *landmark.FaceLandmarks, width, height int, now time.Time, st State) (Decision, State, error) {
	left, right, err := MeasureEyes(face, width, height)
	if err != nil {
		return Decision{}, st, err
	}

	clicks, next := p.Evaluate(left.Distance, right.Distance, now, st)
	return Decision{
		Left:       left,
		Right:      right,
		BothClosed: p.Closed(left.Distance) && p.Closed(right.Distance),
		Clicks:     clicks,
		At:         now,
	}, next, nil
}
