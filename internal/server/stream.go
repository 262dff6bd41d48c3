package server

import (
	"fmt"
	"image"
	"image/color"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/intelevision/internal/snapshot"
)

const streamInterval = 66 * time.Millisecond // ~15 FPS

var (
	personColor = color.RGBA{0, 255, 0, 255}
	objectColor = color.RGBA{255, 255, 0, 255}
	statusColor = color.RGBA{255, 255, 255, 255}
)

// FrameSource provides the preview frame and the labels drawn over it.
type FrameSource interface {
	LatestFrame() (*gocv.Mat, bool)
	Snapshots() *snapshot.Store
}

// StreamHandler serves MJPEG frames with the current labels drawn on them.
// It reads the preview frame kept by the driver and never touches the
// camera itself.
type StreamHandler struct {
	source FrameSource
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, ok := h.source.LatestFrame()
		if !ok {
			continue
		}

		drawOverlay(frame, h.source.Snapshots().Current())
		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, err = w.Write(buf.GetBytes())
		buf.Close()
		if err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// overlayLines renders one text line per record, people first.
func overlayLines(s snapshot.Snapshot) []string {
	lines := make([]string, 0, len(s.Persons)+len(s.Objects))
	for _, p := range s.Persons {
		lines = append(lines, fmt.Sprintf("%s %s %s %s %s (%.0f%%)",
			p.ID, p.Position, p.Distance, p.Expression, p.Gesture, p.Confidence*100))
	}
	for _, o := range s.Objects {
		lines = append(lines, fmt.Sprintf("%s %s %s %s (%.0f%%)",
			o.ID, o.Category, o.Direction, o.Distance, o.Confidence*100))
	}
	return lines
}

func drawOverlay(img *gocv.Mat, s snapshot.Snapshot) {
	status := "detection idle"
	if s.CameraActive {
		status = fmt.Sprintf("%d people, %d objects", len(s.Persons), len(s.Objects))
	}
	gocv.PutText(img, status, image.Point{10, 20}, gocv.FontHersheySimplex, 0.5, statusColor, 1)

	y := 42
	for i, line := range overlayLines(s) {
		c := objectColor
		if i < len(s.Persons) {
			c = personColor
		}
		gocv.PutText(img, line, image.Point{10, y}, gocv.FontHersheySimplex, 0.45, c, 1)
		y += 18
	}
}
