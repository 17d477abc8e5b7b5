package camera

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"
)

// Number of recent frame intervals that we keep for FPS estimation
const fpsWindowSize = 32

// Camera represents a single camera, fed by one FrameSource.
// The camera stamps incoming frames with an ID and a PTS, keeps a short history
// of them in a ring buffer, and fans them out to listeners (the monitor, the
// MJPEG streamer, websockets).
type Camera struct {
	Name   string
	Log    logs.Log
	Source FrameSource

	bufferLock sync.Mutex // Guards buffer and intervals
	buffer     ringbuffer.WeightedRingT[Frame]
	intervals  ringbuffer.RingP[time.Duration]
	lastFrame  Frame

	listenersLock  sync.Mutex
	listeners      []chan Frame
	droppedListens atomic.Int64

	nextFrameID atomic.Int64
}

// Create a camera.
// ringBufferSizeBytes is how much recent JPEG history we keep (a few seconds is
// plenty, it exists so that a client connecting mid-stream gets a frame at once).
func NewCamera(logger logs.Log, name string, source FrameSource, ringBufferSizeBytes int) *Camera {
	return &Camera{
		Name:      name,
		Log:       logger,
		Source:    source,
		buffer:    ringbuffer.NewWeightedRingT[Frame](ringBufferSizeBytes),
		intervals: ringbuffer.NewRingP[time.Duration](fpsWindowSize),
	}
}

func (c *Camera) Start() error {
	c.Log.Infof("Camera %v: starting source %v", c.Name, c.Source.Ident())
	return c.Source.Start(c.onFrame)
}

func (c *Camera) Close() {
	c.Log.Infof("Camera %v: closing", c.Name)
	c.Source.Close()
}

// Most recent frame, or a zero Frame if nothing has arrived yet
func (c *Camera) LatestFrame() Frame {
	c.bufferLock.Lock()
	defer c.bufferLock.Unlock()
	return c.lastFrame
}

// Recent frames, oldest first.
// A client that connects mid-stream uses this as backlog, so that it has
// something to show before the next live frame arrives.
func (c *Camera) RecentFrames() []Frame {
	c.bufferLock.Lock()
	defer c.bufferLock.Unlock()
	frames := make([]Frame, 0, c.buffer.Len())
	for i := 0; i < c.buffer.Len(); i++ {
		have, frame, _ := c.buffer.Peek(i)
		if have {
			frames = append(frames, *frame)
		}
	}
	return frames
}

// Estimated frames per second, over the recent past
func (c *Camera) FPS() float64 {
	c.bufferLock.Lock()
	defer c.bufferLock.Unlock()
	intervals := make([]time.Duration, 0, c.intervals.Len())
	for i := 0; i < c.intervals.Len(); i++ {
		intervals = append(intervals, c.intervals.Peek(i))
	}
	return EstimateFPS(intervals)
}

// Number of frames received since startup
func (c *Camera) FrameCount() int64 {
	return c.nextFrameID.Load()
}

// Number of frames that were dropped because a listener was too slow
func (c *Camera) DroppedFrames() int64 {
	return c.droppedListens.Load()
}

// Register a listener that receives every frame.
// If the listener's channel is full, frames are dropped, not queued. Live video
// is disposable: a slow consumer gets fewer frames, never older ones.
func (c *Camera) AddFrameListener(ch chan Frame) {
	c.listenersLock.Lock()
	defer c.listenersLock.Unlock()
	c.listeners = append(c.listeners, ch)
}

func (c *Camera) RemoveFrameListener(ch chan Frame) {
	c.listenersLock.Lock()
	defer c.listenersLock.Unlock()
	for i, listener := range c.listeners {
		if listener == ch {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Camera) onFrame(jpeg []byte) {
	now := time.Now()
	frame := Frame{
		ID:   c.nextFrameID.Add(1),
		PTS:  now,
		JPEG: jpeg,
	}

	c.bufferLock.Lock()
	if !c.lastFrame.PTS.IsZero() {
		c.intervals.Add(now.Sub(c.lastFrame.PTS))
	}
	c.lastFrame = frame
	c.buffer.Add(len(jpeg), &frame)
	c.bufferLock.Unlock()

	c.listenersLock.Lock()
	for _, listener := range c.listeners {
		select {
		case listener <- frame:
		default:
			c.droppedListens.Add(1)
		}
	}
	c.listenersLock.Unlock()
}
