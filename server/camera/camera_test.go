package camera

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

// fakeSource hands frames to the camera when the test says so
type fakeSource struct {
	onFrame func(jpeg []byte)
}

func (s *fakeSource) Start(onFrame func(jpeg []byte)) error {
	s.onFrame = onFrame
	return nil
}

func (s *fakeSource) Close() {}

func (s *fakeSource) Ident() string { return "fake" }

func fakeJPEG(body byte) []byte {
	return []byte{0xff, 0xd8, body, 0xff, 0xd9}
}

func TestCameraFrames(t *testing.T) {
	src := &fakeSource{}
	cam := NewCamera(logs.NewTestingLog(t), "test", src, 1024*1024)
	require.NoError(t, cam.Start())
	defer cam.Close()

	require.Equal(t, int64(0), cam.LatestFrame().ID)

	listener := make(chan Frame, 10)
	cam.AddFrameListener(listener)

	src.onFrame(fakeJPEG(1))
	src.onFrame(fakeJPEG(2))

	require.Equal(t, int64(2), cam.LatestFrame().ID)
	require.Equal(t, fakeJPEG(2), cam.LatestFrame().JPEG)
	require.Equal(t, int64(2), cam.FrameCount())

	f1 := <-listener
	f2 := <-listener
	require.Equal(t, int64(1), f1.ID)
	require.Equal(t, int64(2), f2.ID)

	recent := cam.RecentFrames()
	require.Len(t, recent, 2)
	require.Equal(t, int64(1), recent[0].ID)
	require.Equal(t, fakeJPEG(1), recent[0].JPEG)
	require.Equal(t, fakeJPEG(2), recent[1].JPEG)

	cam.RemoveFrameListener(listener)
	src.onFrame(fakeJPEG(3))
	require.Empty(t, listener)
}

func TestCameraRingBufferEviction(t *testing.T) {
	src := &fakeSource{}
	// Room for two fakeJPEG frames (5 bytes each), not three
	cam := NewCamera(logs.NewTestingLog(t), "test", src, 12)
	require.NoError(t, cam.Start())
	defer cam.Close()

	src.onFrame(fakeJPEG(1))
	src.onFrame(fakeJPEG(2))
	src.onFrame(fakeJPEG(3))

	recent := cam.RecentFrames()
	require.NotEmpty(t, recent)
	require.Less(t, len(recent), 3)
	newest := recent[len(recent)-1]
	require.Equal(t, int64(3), newest.ID)
	require.Equal(t, fakeJPEG(3), newest.JPEG)
}

func TestCameraDropsWhenListenerFull(t *testing.T) {
	src := &fakeSource{}
	cam := NewCamera(logs.NewTestingLog(t), "test", src, 1024*1024)
	require.NoError(t, cam.Start())
	defer cam.Close()

	listener := make(chan Frame, 1)
	cam.AddFrameListener(listener)
	src.onFrame(fakeJPEG(1))
	src.onFrame(fakeJPEG(2))
	require.Equal(t, int64(1), cam.DroppedFrames())
	f := <-listener
	require.Equal(t, int64(1), f.ID)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	src := NewDirSource(logs.NewTestingLog(t), dir, true)

	frames := make(chan []byte, 10)
	require.NoError(t, src.Start(func(jpeg []byte) { frames <- jpeg }))
	defer src.Close()

	// Names chosen to verify sort order
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_0002.jpg"), fakeJPEG(2), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_0001.jpg"), fakeJPEG(1), 0644))
	// Not a frame
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	// Incomplete write (no EOI marker)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_0003.jpg"), []byte{0xff, 0xd8, 0x01}, 0644))

	f1 := <-frames
	f2 := <-frames
	require.Equal(t, fakeJPEG(1), f1)
	require.Equal(t, fakeJPEG(2), f2)

	// Consumed frames must be deleted, the rest left alone
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(dir, "frame_0001.jpg")); os.IsNotExist(err) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	_, err := os.Stat(filepath.Join(dir, "frame_0001.jpg"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
}
