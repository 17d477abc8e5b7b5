package mjpeg

import (
	"fmt"
	"net/http"
	"time"
)

// Boundary string for our multipart streams.
// Browsers don't care what this is, as long as it's consistent.
const StreamBoundary = "frame"

// ServeStream writes an MJPEG stream to an HTTP client, as
// multipart/x-mixed-replace. This is the dumbest possible way to get live video
// into a browser, and it works everywhere, with a plain <img> tag.
// We consume JPEG frames from 'frames' until the channel is closed, the client
// goes away, or the request context is cancelled.
// maxFPS caps the rate at which we send frames to this client (0 = no cap).
// Frames that arrive faster than that are discarded.
func ServeStream(w http.ResponseWriter, r *http.Request, frames <-chan []byte, maxFPS int) error {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+StreamBoundary)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	minInterval := time.Duration(0)
	if maxFPS > 0 {
		minInterval = time.Second / time.Duration(maxFPS)
	}
	lastSent := time.Time{}

	flusher, _ := w.(http.Flusher)
	for {
		select {
		case <-r.Context().Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if time.Since(lastSent) < minInterval {
				continue
			}
			lastSent = time.Now()
			if err := WriteFrame(w, frame); err != nil {
				return err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Write a single frame of a multipart/x-mixed-replace stream
func WriteFrame(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%v\r\nContent-Type: image/jpeg\r\nContent-Length: %v\r\n\r\n", StreamBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
