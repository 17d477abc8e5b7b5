package mjpeg

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeJPEG(body ...byte) []byte {
	frame := []byte{0xff, 0xd8}
	frame = append(frame, body...)
	return append(frame, 0xff, 0xd9)
}

func TestSplitterSingleFrame(t *testing.T) {
	s := NewSplitter()
	frame := fakeJPEG(1, 2, 3)
	frames := s.Feed(frame)
	require.Len(t, frames, 1)
	require.Equal(t, frame, frames[0])
}

func TestSplitterChunked(t *testing.T) {
	s := NewSplitter()
	frame := fakeJPEG(10, 20, 30, 40, 50)
	// Feed one byte at a time, so every marker straddles a chunk boundary
	got := [][]byte{}
	for _, b := range frame {
		got = append(got, s.Feed([]byte{b})...)
	}
	require.Len(t, got, 1)
	require.Equal(t, frame, got[0])
}

func TestSplitterMultipleFramesAndGarbage(t *testing.T) {
	s := NewSplitter()
	f1 := fakeJPEG(1)
	f2 := fakeJPEG(2)
	stream := []byte{0x55, 0x66} // leading garbage, eg we joined a UDP stream mid-frame
	stream = append(stream, f1...)
	stream = append(stream, f2...)
	stream = append(stream, 0xff, 0xd8, 0x01) // trailing partial frame
	frames := s.Feed(stream)
	require.Len(t, frames, 2)
	require.Equal(t, f1, frames[0])
	require.Equal(t, f2, frames[1])

	// Complete the trailing frame
	frames = s.Feed([]byte{0xff, 0xd9})
	require.Len(t, frames, 1)
	require.Equal(t, []byte{0xff, 0xd8, 0x01, 0xff, 0xd9}, frames[0])
}

func TestSplitterResync(t *testing.T) {
	s := NewSplitterWithMaxFrameSize(64)
	// A frame that never ends
	junk := make([]byte, 100)
	junk[0] = 0xff
	junk[1] = 0xd8
	frames := s.Feed(junk)
	require.Empty(t, frames)
	require.Equal(t, int64(1), s.Dropped)

	// The splitter must recover and parse the next valid frame
	f := fakeJPEG(7)
	frames = s.Feed(f)
	require.Len(t, frames, 1)
	require.Equal(t, f, frames[0])
}

// A frame buffered behind an oversized one must survive the resync
func TestSplitterResyncKeepsNextFrame(t *testing.T) {
	s := NewSplitterWithMaxFrameSize(64)
	junk := make([]byte, 102)
	junk[0] = 0xff
	junk[1] = 0xd8
	stream := append(junk, 0xff, 0xd8, 0x01) // a partial valid frame behind the junk
	frames := s.Feed(stream)
	require.Empty(t, frames)
	require.Equal(t, int64(1), s.Dropped)

	frames = s.Feed([]byte{0x02, 0xff, 0xd9})
	require.Len(t, frames, 1)
	require.Equal(t, []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}, frames[0])
	require.Equal(t, int64(1), s.Dropped)
}

func TestWriteFrame(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteFrame(w, fakeJPEG(9)))
	body := w.Body.String()
	require.True(t, strings.HasPrefix(body, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 5\r\n\r\n"))
	require.True(t, strings.HasSuffix(body, "\r\n"))
}
