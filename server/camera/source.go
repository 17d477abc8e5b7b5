package camera

import (
	"time"
)

// A single camera frame, as it came off the wire
type Frame struct {
	ID   int64     // Monotonic frame counter, starting at 1
	PTS  time.Time // Wall clock time when we received the frame
	JPEG []byte    // Complete JPEG image
}

// FrameSource produces JPEG frames from somewhere.
// We have three of these:
// rpicam-vid as a child process, a UDP listener, and a directory watcher.
type FrameSource interface {
	// Start the source. onFrame is called from the source's own goroutine,
	// once per complete JPEG frame, until Close() is called.
	Start(onFrame func(jpeg []byte)) error

	// Close stops the source and releases its resources
	Close()

	// Human readable description, for logs and the status API
	Ident() string
}
