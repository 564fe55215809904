package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for face landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected face meshes.
	// Returns an empty slice if no face is detected.
	Detect(frame *gocv.Mat) ([]FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MaxFaces is the maximum number of faces to detect (default: 1).
	MaxFaces int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// RefineLandmarks enables the iris refinement model (478 points).
	RefineLandmarks bool

	// IdleTimeout shuts the model process down after this long without frames.
	IdleTimeout time.Duration

	// Python overrides the interpreter used for the model service.
	Python string

	// Script overrides the location of facemesh_service.py.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		RefineLandmarks: true,
		IdleTimeout:     30 * time.Second,
	}
}
