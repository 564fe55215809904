// Package display renders the diagnostic preview: the camera frame with the
// evaluated eye landmarks and the current eyelid distances.
package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/winkmouse/internal/blink"
	"github.com/ayusman/winkmouse/internal/detector"
	"gocv.io/x/gocv"
)

// Marker colors. gocv maps RGBA to the frame's BGR order.
var (
	LeftEyeColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	RightEyeColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	PausedColor   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	TextColor     = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// MarkerRadius is the radius in pixels of the filled eye markers.
const MarkerRadius = 5

// point converts a normalized landmark to a pixel position on frame.
func point(p detector.Point3D, frame *gocv.Mat) image.Point {
	x, y := p.Pixel(frame.Cols(), frame.Rows())
	return image.Pt(int(x), int(y))
}

// DrawOverlay draws the eye markers and a status line for d onto frame.
func DrawOverlay(frame *gocv.Mat, d blink.Decision) {
	if frame == nil || frame.Empty() {
		return
	}

	gocv.Circle(frame, point(d.Left.Top, frame), MarkerRadius, LeftEyeColor, -1)
	gocv.Circle(frame, point(d.Left.Bottom, frame), MarkerRadius, LeftEyeColor, -1)
	gocv.Circle(frame, point(d.Right.Top, frame), MarkerRadius, RightEyeColor, -1)
	gocv.Circle(frame, point(d.Right.Bottom, frame), MarkerRadius, RightEyeColor, -1)

	status := fmt.Sprintf("L %.1fpx  R %.1fpx", d.Left.Distance, d.Right.Distance)
	gocv.PutText(frame, status, image.Pt(10, 24), gocv.FontHersheySimplex, 0.6, TextColor, 2)

	if d.BothClosed {
		gocv.PutText(frame, "PAUSED", image.Pt(10, 52), gocv.FontHersheySimplex, 0.8, PausedColor, 2)
	}
}

// DrawNoFace marks a frame in which no face was found.
func DrawNoFace(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	gocv.PutText(frame, "no face", image.Pt(10, 24), gocv.FontHersheySimplex, 0.6, PausedColor, 2)
}
