// Package detector provides face landmark detection for blink tracking.
package detector

import "github.com/ayusman/winkmouse/internal/landmark"

// Point3D and FaceLandmarks are the detector's result types.
type (
	Point3D       = landmark.Point3D
	FaceLandmarks = landmark.FaceLandmarks
)
