package monitor

import (
	"testing"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/hailocam/hailocam/pkg/nnsim"
	"github.com/hailocam/hailocam/server/camera"
	"github.com/stretchr/testify/require"
)

// A frame source that emits frames only when the test tells it to
type pushSource struct {
	onFrame func(jpeg []byte)
}

func (s *pushSource) Start(onFrame func(jpeg []byte)) error {
	s.onFrame = onFrame
	return nil
}

func (s *pushSource) Close() {}

func (s *pushSource) Ident() string {
	return "push"
}

func testJPEG(t *testing.T, width, height int, value byte) []byte {
	img := makeUniformRGB(width, height, value)
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 90, 0))
	require.NoError(t, err)
	return jpg
}

func TestMonitorPipeline(t *testing.T) {
	logger := logs.NewTestingLog(t)
	source := &pushSource{}
	cam := camera.NewCamera(logger, "testcam", source, 1024*1024)
	require.NoError(t, cam.Start())

	detector := nnsim.NewSimDetector(640, 640)
	mon := NewMonitor(logger, cam, detector, nn.NewModelSetup())
	mon.Start()

	watcher := mon.AddWatcher()

	jpg := testJPEG(t, 320, 240, 128)
	source.onFrame(jpg)

	var result *nn.DetectionResult
	select {
	case result = <-watcher:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for detection result")
	}
	require.NotNil(t, result)
	require.Equal(t, 320, result.ImageWidth)
	require.Equal(t, 240, result.ImageHeight)
	require.NotEmpty(t, result.Objects)
	// The sim detector emits boxes in NN coordinates, and the monitor transforms
	// them back into frame coordinates
	for _, obj := range result.Objects {
		require.GreaterOrEqual(t, obj.Box.X, 0)
		require.GreaterOrEqual(t, obj.Box.Y, 0)
		require.LessOrEqual(t, obj.Box.X2(), 320)
		require.LessOrEqual(t, obj.Box.Y2(), 240)
	}

	latest := mon.LatestDetection()
	require.NotNil(t, latest)
	require.Equal(t, result.FrameIndex, latest.FrameIndex)

	img, _ := mon.LatestFrame()
	require.NotNil(t, img)
	require.Equal(t, 320, img.Width)

	annotated, err := mon.AnnotatedJPEG(85)
	require.NoError(t, err)
	require.NotEmpty(t, annotated)

	stats := mon.Stats()
	require.Equal(t, int64(1), stats.FramesProcessed)

	mon.RemoveWatcher(watcher)
	mon.Close()
	cam.Close()
}

// A detector that always returns the same objects
type cannedDetector struct {
	config  nn.ModelConfig
	objects []nn.ObjectDetection
}

func (d *cannedDetector) Close() {}

func (d *cannedDetector) DetectObjects(img nn.ImageCrop, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	return append([]nn.ObjectDetection{}, d.objects...), nil
}

func (d *cannedDetector) Config() *nn.ModelConfig {
	return &d.config
}

// A pickup detected as both car and truck must come out as one car
func TestMonitorMergesSimilarObjects(t *testing.T) {
	logger := logs.NewTestingLog(t)
	source := &pushSource{}
	cam := camera.NewCamera(logger, "testcam", source, 1024*1024)
	require.NoError(t, cam.Start())

	detector := &cannedDetector{
		config: nn.ModelConfig{Architecture: "canned", Width: 640, Height: 640, Classes: nn.COCOClasses},
		objects: []nn.ObjectDetection{
			{Class: nn.COCOCar, Confidence: 0.8, Box: nn.MakeRect(100, 100, 200, 120)},
			{Class: nn.COCOTruck, Confidence: 0.7, Box: nn.MakeRect(102, 101, 200, 120)},
			{Class: nn.COCOPerson, Confidence: 0.9, Box: nn.MakeRect(400, 100, 60, 160)},
		},
	}
	mon := NewMonitor(logger, cam, detector, nn.NewModelSetup())
	mon.Start()
	watcher := mon.AddWatcher()

	source.onFrame(testJPEG(t, 640, 640, 128))

	var result *nn.DetectionResult
	select {
	case result = <-watcher:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for detection result")
	}
	require.Len(t, result.Objects, 2)
	classes := []int{result.Objects[0].Class, result.Objects[1].Class}
	require.Contains(t, classes, nn.COCOCar)
	require.Contains(t, classes, nn.COCOPerson)
	require.NotContains(t, classes, nn.COCOTruck)

	mon.RemoveWatcher(watcher)
	mon.Close()
	cam.Close()
}

func TestDrawDetections(t *testing.T) {
	img := makeUniformRGB(320, 240, 128)
	objects := []nn.ObjectDetection{
		{Class: 0, Confidence: 0.9, Box: nn.MakeRect(50, 50, 150, 200)},
	}
	annotated := DrawDetections(img, objects, []string{"person"}, 12.5)
	require.Equal(t, 320, annotated.Width)
	require.Equal(t, 240, annotated.Height)
	// The source image must not be modified
	require.Equal(t, byte(128), img.Pixels[0])
	// Something was drawn
	changed := false
	for i := range annotated.Pixels {
		if annotated.Pixels[i] != 128 {
			changed = true
			break
		}
	}
	require.True(t, changed)
}
