package capture

import (
	"fmt"
	"math"
	"sync"

	vidio "github.com/AlexEidt/Vidio"
	"gocv.io/x/gocv"
)

// VideoFileCamera replays a recorded video file as a Camera using Vidio.
// It is used to reproduce a session offline without a webcam.
type VideoFileCamera struct {
	path  string
	loop  bool
	video *vidio.Video
	fps   int
	mu    sync.Mutex
}

// NewVideoFileCamera creates a camera that reads frames from path.
// When loop is true playback restarts at the end instead of returning ErrEndOfStream.
func NewVideoFileCamera(path string, loop bool) *VideoFileCamera {
	return &VideoFileCamera{
		path: path,
		loop: loop,
	}
}

// Open opens the video file.
func (c *VideoFileCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.video != nil {
		return nil
	}
	return c.openLocked()
}

func (c *VideoFileCamera) openLocked() error {
	video, err := vidio.NewVideo(c.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", c.path, err)
	}
	c.video = video
	if c.fps <= 0 {
		c.fps = int(math.Round(video.FPS()))
	}
	return nil
}

// Close closes the video file.
func (c *VideoFileCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.video != nil {
		c.video.Close()
		c.video = nil
	}
	return nil
}

// ReadFrame decodes the next frame and converts it to a BGR Mat.
// The caller is responsible for closing the returned Mat.
func (c *VideoFileCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.video == nil {
		return nil, ErrCameraNotOpen
	}

	if !c.video.Read() {
		if !c.loop {
			return nil, ErrEndOfStream
		}
		c.video.Close()
		c.video = nil
		if err := c.openLocked(); err != nil {
			return nil, err
		}
		if !c.video.Read() {
			return nil, ErrEndOfStream
		}
	}

	return rgbaToBGR(c.video.FrameBuffer(), c.video.Width(), c.video.Height())
}

// rgbaToBGR copies a packed RGBA buffer into a new 3-channel BGR Mat.
func rgbaToBGR(buf []byte, width, height int) (*gocv.Mat, error) {
	if len(buf) < width*height*4 {
		return nil, fmt.Errorf("frame buffer too small: %d bytes for %dx%d", len(buf), width, height)
	}

	rgba, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, buf[:width*height*4])
	if err != nil {
		return nil, fmt.Errorf("wrap frame buffer: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return &bgr, nil
}

// SetFPS overrides the reported frame rate; the file is still read frame by frame.
func (c *VideoFileCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

// FPS returns the file's frame rate unless overridden.
func (c *VideoFileCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen returns true while the file is open.
func (c *VideoFileCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.video != nil
}
