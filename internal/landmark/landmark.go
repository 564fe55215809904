// Package landmark holds the face mesh geometry shared by the detector and
// the blink policy. It has no cgo dependencies.
package landmark

import "math"

// Face mesh landmark indices following the MediaPipe Face Mesh topology.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	LeftEyeTop     = 145
	LeftEyeBottom  = 159
	RightEyeTop    = 374
	RightEyeBottom = 386

	// NumFaceLandmarks is the size of the base face mesh.
	NumFaceLandmarks = 468
	// NumRefinedLandmarks includes the ten iris points added by refine_landmarks.
	NumRefinedLandmarks = 478
)

// MinEyeLandmarks is the smallest point count that covers every eye index.
const MinEyeLandmarks = RightEyeBottom + 1

// Point3D represents a normalized landmark. X and Y are in [0,1] relative to
// the frame; Z is the model's relative depth and is not used for blinks.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks represents one face mesh detected by MediaPipe.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// HasEyes reports whether the mesh contains every eye landmark index.
func (f *FaceLandmarks) HasEyes() bool {
	return f != nil && len(f.Points) >= MinEyeLandmarks
}

// Pixel scales a normalized point to frame pixel coordinates.
func (p Point3D) Pixel(width, height int) (x, y float64) {
	return p.X * float64(width), p.Y * float64(height)
}

// BoundingBox returns the normalized extent of the mesh as min and max corners.
// An empty mesh yields zero points.
func (f *FaceLandmarks) BoundingBox() (min, max Point3D) {
	if f == nil || len(f.Points) == 0 {
		return Point3D{}, Point3D{}
	}

	min = Point3D{X: math.Inf(1), Y: math.Inf(1)}
	max = Point3D{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range f.Points {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}
