package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/hailocam/hailocam/pkg/nnaccel"
	"github.com/hailocam/hailocam/server/camera"
)

// monitor runs our neural network on the camera frames

// Number of frames that may be queued for the NN thread before we start dropping
const nnQueueSize = 20

// How often the NN thread logs its frame timing
const statsLogInterval = time.Minute

// Related classes whose overlapping detections get squashed into one.
// A pickup is often detected as both "truck" and "car"; we keep the "car".
var defaultMergeMap = map[string]string{
	"truck": "car",
	"bus":   "car",
}

// Minimum IoU for two detections to be considered the same object
const mergeMinIoU = 0.9

type Monitor struct {
	Log      logs.Log
	detector nn.ObjectDetector
	cam      *camera.Camera

	nnThreadQueue  chan monitorQueueItem
	nnThreadStopWG sync.WaitGroup
	frames         chan camera.Frame
	mustStop       atomic.Bool
	listenerDone   chan bool

	detectionParams *nn.DetectionParams
	mergeMap        map[string]string // eg truck -> car. See defaultMergeMap.
	nnWidth         int               // NN input image width
	nnHeight        int               // NN input image height
	nnImageStride   int               // Bytes reserved for the NN input image (page-rounded)
	nnImage         []byte
	resizeQuality   ResizeQuality

	watchersLock sync.Mutex
	watchers     []chan *nn.DetectionResult

	lock          sync.Mutex // Guards lastDetection and lastImg
	lastDetection *nn.DetectionResult
	lastImg       *cimg.Image

	avgTimeNSPerFrameDecode int64
	avgTimeNSPerFrameNNPrep int64
	avgTimeNSPerFrameNNDet  int64
	numFramesProcessed      atomic.Int64
	numFramesDropped        atomic.Int64

	hasShownResolutionWarning atomic.Bool
}

// A frame waiting to be run through the NN
type monitorQueueItem struct {
	frameID  int64
	framePTS time.Time
	jpeg     []byte
}

// Aggregate performance numbers of the NN pipeline
type Stats struct {
	FramesProcessed  int64
	FramesDropped    int64
	DecodeMS         float64
	NNPrepMS         float64
	NNDetMS          float64
	CameraFPS        float64
	CameraFrameCount int64
	CameraDropped    int64
}

// Create a monitor that watches frames from cam, and runs detector on them.
// Call Start() to begin processing.
func NewMonitor(logger logs.Log, cam *camera.Camera, detector nn.ObjectDetector, setup *nn.ModelSetup) *Monitor {
	params := nn.NewDetectionParams()
	params.ProbabilityThreshold = setup.ProbabilityThreshold
	params.NmsIouThreshold = setup.NmsIouThreshold
	m := &Monitor{
		Log:             logger,
		detector:        detector,
		cam:             cam,
		detectionParams: params,
		mergeMap:        defaultMergeMap,
		nnWidth:         detector.Config().Width,
		nnHeight:        detector.Config().Height,
		resizeQuality:   ResizeQualityLow,
	}
	// The image must start on a page boundary, and be a multiple of a whole page size.
	// The Hailo driver DMAs images straight out of our buffer, which is where the
	// alignment requirement comes from.
	m.nnImageStride = nnImageStride(m.nnWidth, m.nnHeight)
	m.nnImage = nnaccel.PageAlignedAlloc(m.nnImageStride)
	return m
}

// Start the NN thread and begin listening to camera frames
func (m *Monitor) Start() {
	m.mustStop.Store(false)
	m.nnThreadQueue = make(chan monitorQueueItem, nnQueueSize)
	m.frames = make(chan camera.Frame, nnQueueSize)
	m.listenerDone = make(chan bool)
	m.nnThreadStopWG.Add(1)
	go m.nnThread()
	go m.frameListener()
	m.cam.AddFrameListener(m.frames)
}

// Close the monitor object.
func (m *Monitor) Close() {
	m.Log.Infof("Monitor shutting down")
	m.mustStop.Store(true)
	m.cam.RemoveFrameListener(m.frames)
	close(m.frames)
	<-m.listenerDone
	close(m.nnThreadQueue)
	m.nnThreadStopWG.Wait()
	m.detector.Close()
	m.closeWatchers()
	m.Log.Infof("Monitor is closed")
}

// Most recent detection result, or nil if no frame has been processed yet
func (m *Monitor) LatestDetection() *nn.DetectionResult {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.lastDetection
}

// Most recent decoded frame, and the detection that was run on it.
// Either may be nil.
func (m *Monitor) LatestFrame() (*cimg.Image, *nn.DetectionResult) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.lastImg, m.lastDetection
}

// Class names of the detector
func (m *Monitor) Classes() []string {
	return m.detector.Config().Classes
}

func (m *Monitor) Stats() Stats {
	return Stats{
		FramesProcessed:  m.numFramesProcessed.Load(),
		FramesDropped:    m.numFramesDropped.Load(),
		DecodeMS:         float64(atomic.LoadInt64(&m.avgTimeNSPerFrameDecode)) / 1e6,
		NNPrepMS:         float64(atomic.LoadInt64(&m.avgTimeNSPerFrameNNPrep)) / 1e6,
		NNDetMS:          float64(atomic.LoadInt64(&m.avgTimeNSPerFrameNNDet)) / 1e6,
		CameraFPS:        m.cam.FPS(),
		CameraFrameCount: m.cam.FrameCount(),
		CameraDropped:    m.cam.DroppedFrames(),
	}
}

// Forward camera frames into the NN queue, dropping when the NN can't keep up.
// The NN thread is typically the bottleneck (eg 30 FPS camera, 10 FPS NN on a Pi
// without an accelerator), so dropping here is the normal steady state.
func (m *Monitor) frameListener() {
	for frame := range m.frames {
		if m.mustStop.Load() {
			continue
		}
		if len(m.nnThreadQueue) >= cap(m.nnThreadQueue)*9/10 {
			m.numFramesDropped.Add(1)
			continue
		}
		m.nnThreadQueue <- monitorQueueItem{
			frameID:  frame.ID,
			framePTS: frame.PTS,
			jpeg:     frame.JPEG,
		}
	}
	close(m.listenerDone)
}
