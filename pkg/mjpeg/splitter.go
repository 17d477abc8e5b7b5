package mjpeg

// Package mjpeg deals with MJPEG as a transport: a raw concatenation of JPEG
// images, the way rpicam-vid emits it with "--codec mjpeg", and the way we
// receive it over UDP. There is no container format. Frames are delimited only
// by the JPEG SOI (ff d8) and EOI (ff d9) markers.

// Default cap on the amount of buffered, incomplete frame data.
// A 1920x1080 JPEG at high quality is under 1MB, so if we've buffered this much
// without seeing an EOI marker, the stream is garbage and we resync.
const DefaultMaxFrameSize = 8 * 1024 * 1024

// Splitter extracts complete JPEG images from a byte stream.
// Feed it chunks as they arrive (UDP datagrams, pipe reads), and it hands back
// zero or more complete frames per chunk.
type Splitter struct {
	// Number of frames discarded due to resyncs. Interesting on lossy transports.
	Dropped int64

	maxFrameSize int
	buf          []byte
	inFrame      bool
}

func NewSplitter() *Splitter {
	return &Splitter{
		maxFrameSize: DefaultMaxFrameSize,
	}
}

func NewSplitterWithMaxFrameSize(maxFrameSize int) *Splitter {
	return &Splitter{
		maxFrameSize: maxFrameSize,
	}
}

// Feed a chunk of the stream into the splitter.
// Returns the complete JPEG frames that ended inside this chunk. The returned
// slices are copies, so the caller may retain them.
func (s *Splitter) Feed(chunk []byte) [][]byte {
	s.buf = append(s.buf, chunk...)
	frames := [][]byte{}

	for {
		if !s.inFrame {
			start := findMarker(s.buf, 0xd8)
			if start == -1 {
				// No SOI yet. Keep at most one byte, in case the marker straddles chunks.
				if len(s.buf) > 1 {
					s.buf = s.buf[len(s.buf)-1:]
				}
				return frames
			}
			s.buf = s.buf[start:]
			s.inFrame = true
		}
		end := findMarker(s.buf[2:], 0xd9)
		if end == -1 {
			if len(s.buf) > s.maxFrameSize {
				// Never saw the end of this frame. Throw it away, resyncing at
				// the next SOI so that frames buffered behind it survive.
				s.Dropped++
				next := findMarker(s.buf[2:], 0xd8)
				if next != -1 {
					s.buf = s.buf[2+next:]
					continue
				}
				s.buf = nil
				s.inFrame = false
			}
			return frames
		}
		frameEnd := 2 + end + 2
		frame := make([]byte, frameEnd)
		copy(frame, s.buf[:frameEnd])
		frames = append(frames, frame)
		s.buf = s.buf[frameEnd:]
		s.inFrame = false
	}
}

// Find the next ff xx marker, and return the offset of the ff byte (or -1)
func findMarker(buf []byte, marker byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == 0xff && buf[i+1] == marker {
			return i
		}
	}
	return -1
}
