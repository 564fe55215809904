package server

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// streamInterval paces the MJPEG stream at roughly 15 FPS.
const streamInterval = 66 * time.Millisecond

// FrameHub keeps the latest annotated frame as JPEG for the stream endpoint.
// The tracker loop publishes, HTTP handlers read.
type FrameHub struct {
	mu      sync.RWMutex
	jpeg    []byte
	seq     uint64
	viewers atomic.Int32
}

// NewFrameHub creates an empty FrameHub.
func NewFrameHub() *FrameHub {
	return &FrameHub{}
}

// Publish encodes frame as JPEG and stores it. Frames are only encoded while
// at least one client is watching the stream.
func (h *FrameHub) Publish(frame *gocv.Mat) {
	if h.viewers.Load() == 0 || frame == nil || frame.Empty() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	h.PublishJPEG(data)
}

// PublishJPEG stores an already encoded frame.
func (h *FrameHub) PublishJPEG(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jpeg = data
	h.seq++
}

// Latest returns the most recent JPEG and its sequence number. The sequence
// is zero until the first frame is published.
func (h *FrameHub) Latest() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.jpeg, h.seq
}

// Viewers returns the number of connected stream clients.
func (h *FrameHub) Viewers() int {
	return int(h.viewers.Load())
}

// StreamHandler serves MJPEG frames from a FrameHub.
type StreamHandler struct {
	hub *FrameHub
}

// NewStreamHandler creates a new StreamHandler reading from hub.
func NewStreamHandler(hub *FrameHub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// ServeHTTP streams MJPEG frames to connected clients until they disconnect.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	h.hub.viewers.Add(1)
	defer h.hub.viewers.Add(-1)

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var sent uint64
	for {
		if data, seq := h.hub.Latest(); seq != sent && len(data) > 0 {
			if err := writePart(w, data); err != nil {
				return
			}
			sent = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// writePart writes one JPEG as a multipart section and flushes it.
func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
