package landmark

// Eyelid gaps used by the preset faces, as a fraction of frame height.
// On a 480 pixel tall frame an open eye measures 14.4px and a closed one 1.92px.
const (
	OpenEyeGap   = 0.03
	ClosedEyeGap = 0.004
)

// FaceWithEyeGaps returns a refined face mesh whose eyelids are separated by
// the given normalized gaps. Every other point sits on a neutral oval.
func FaceWithEyeGaps(leftGap, rightGap float64) FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumRefinedLandmarks),
		Score:  0.95,
	}

	// Spread the mesh over a plausible face region so the bounding box is sane.
	for i := range face.Points {
		col := float64(i%26) / 25.0
		row := float64(i/26) / 18.0
		face.Points[i] = Point3D{X: 0.35 + 0.3*col, Y: 0.25 + 0.5*row}
	}

	// Image-left eye sits at x=0.42, image-right eye at x=0.58.
	face.Points[LeftEyeBottom] = Point3D{X: 0.42, Y: 0.45}
	face.Points[LeftEyeTop] = Point3D{X: 0.42, Y: 0.45 + leftGap}
	face.Points[RightEyeBottom] = Point3D{X: 0.58, Y: 0.45}
	face.Points[RightEyeTop] = Point3D{X: 0.58, Y: 0.45 + rightGap}

	return face
}

// OpenEyesFace returns a preset face with both eyes open.
func OpenEyesFace() FaceLandmarks {
	return FaceWithEyeGaps(OpenEyeGap, OpenEyeGap)
}

// WinkLeftFace returns a preset face with only the left eye closed.
func WinkLeftFace() FaceLandmarks {
	return FaceWithEyeGaps(ClosedEyeGap, OpenEyeGap)
}

// WinkRightFace returns a preset face with only the right eye closed.
func WinkRightFace() FaceLandmarks {
	return FaceWithEyeGaps(OpenEyeGap, ClosedEyeGap)
}

// ClosedEyesFace returns a preset face with both eyes closed.
func ClosedEyesFace() FaceLandmarks {
	return FaceWithEyeGaps(ClosedEyeGap, ClosedEyeGap)
}
