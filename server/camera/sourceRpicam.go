package camera

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/mjpeg"
)

// How long we wait after the capture process dies, before restarting it
const rpicamRestartDelay = 3 * time.Second

// RpicamSource runs rpicam-vid (or libcamera-vid on older OS images) as a child
// process, and reads its MJPEG output from stdout. This is how you get frames
// out of a CSI camera on a Pi without linking against libcamera.
type RpicamSource struct {
	Log    logs.Log
	Width  int
	Height int
	FPS    int

	binary  string
	cmd     *exec.Cmd
	closed  atomic.Bool
	done    chan struct{}
}

func NewRpicamSource(logger logs.Log, width, height, fps int) *RpicamSource {
	return &RpicamSource{
		Log:    logger,
		Width:  width,
		Height: height,
		FPS:    fps,
		done:   make(chan struct{}),
	}
}

func (s *RpicamSource) Ident() string {
	return fmt.Sprintf("rpicam-vid %vx%v@%v", s.Width, s.Height, s.FPS)
}

func (s *RpicamSource) Start(onFrame func(jpeg []byte)) error {
	binary, err := findCaptureBinary()
	if err != nil {
		return err
	}
	s.binary = binary
	go s.captureLoop(onFrame)
	return nil
}

func (s *RpicamSource) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Signal(syscall.SIGTERM)
	}
	<-s.done
}

// Run the capture process, restarting it if it dies.
// Cameras glitch, the libcamera stack crashes now and then. We just restart.
func (s *RpicamSource) captureLoop(onFrame func(jpeg []byte)) {
	defer close(s.done)
	for !s.closed.Load() {
		if err := s.runOnce(onFrame); err != nil && !s.closed.Load() {
			s.Log.Errorf("%v failed: %v. Restarting in %v", s.binary, err, rpicamRestartDelay)
			time.Sleep(rpicamRestartDelay)
		}
	}
}

func (s *RpicamSource) runOnce(onFrame func(jpeg []byte)) error {
	cmd := exec.Command(s.binary,
		"--codec", "mjpeg",
		"--width", strconv.Itoa(s.Width),
		"--height", strconv.Itoa(s.Height),
		"--framerate", strconv.Itoa(s.FPS),
		"--timeout", "0", // run forever
		"--nopreview",
		"-o", "-", // MJPEG to stdout
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.cmd = cmd

	splitter := mjpeg.NewSplitter()
	buf := make([]byte, 64*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			for _, frame := range splitter.Feed(buf[:n]) {
				onFrame(frame)
			}
		}
		if err != nil {
			cmd.Wait()
			if err == io.EOF {
				return fmt.Errorf("capture process exited")
			}
			return err
		}
	}
}

// rpicam-vid was renamed from libcamera-vid in Bookworm. Support both.
func findCaptureBinary() (string, error) {
	for _, name := range []string{"rpicam-vid", "libcamera-vid"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("Neither rpicam-vid nor libcamera-vid found in PATH")
}
