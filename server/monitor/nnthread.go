package monitor

import (
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/hailocam/hailocam/pkg/nnaccel"
	"github.com/hailocam/hailocam/pkg/perfstats"
)

// Run the neural network processing thread.
// All the per-frame state in here is owned by this single thread, so there's no
// need to coordinate access to it.
func (m *Monitor) nnThread() {
	lastErrAt := time.Time{}
	frameTime := perfstats.TimeAccumulator{}
	lastStatsAt := time.Now()

	for item := range m.nnThreadQueue {
		frameStart := time.Now()
		start := frameStart
		rgb, err := decodeFrameToRGB(item.jpeg)
		perfstats.UpdateMovingAverage(&m.avgTimeNSPerFrameDecode, time.Now().Sub(start).Nanoseconds())
		if err != nil {
			if time.Now().Sub(lastErrAt) > 15*time.Second {
				m.Log.Errorf("Error decoding frame %v: %v", item.frameID, err)
				lastErrAt = time.Now()
			}
			continue
		}

		start = time.Now()
		xformRgbToNN := m.prepareImageForNN(rgb, m.nnImage, m.resizeQuality)
		perfstats.UpdateMovingAverage(&m.avgTimeNSPerFrameNNPrep, time.Now().Sub(start).Nanoseconds())

		start = time.Now()
		objects, err := m.detector.DetectObjects(nn.WholeImage(3, m.nnImage, m.nnWidth, m.nnHeight), m.detectionParams)
		perfstats.UpdateMovingAverage(&m.avgTimeNSPerFrameNNDet, time.Now().Sub(start).Nanoseconds())
		if err != nil {
			if time.Now().Sub(lastErrAt) > 15*time.Second {
				m.Log.Errorf("Error detecting objects: %v", err)
				lastErrAt = time.Now()
			}
			continue
		}

		// Squash duplicate detections of related classes (eg a pickup seen as
		// both truck and car), while everything is still in NN coordinates.
		if len(m.mergeMap) != 0 {
			retain := nn.MergeSimilarObjects(objects, m.mergeMap, m.Classes(), mergeMinIoU)
			if len(retain) != len(objects) {
				merged := make([]nn.ObjectDetection, 0, len(retain))
				for _, idx := range retain {
					merged = append(merged, objects[idx])
				}
				objects = merged
			}
		}

		// Detections come out in NN coordinates (eg 640x640). Bring them back
		// into the coordinate space of the camera frame.
		xformRgbToNN.ApplyBackward(objects)

		result := &nn.DetectionResult{
			ImageWidth:  rgb.Width,
			ImageHeight: rgb.Height,
			Objects:     objects,
			FramePTS:    item.framePTS,
			FrameIndex:  item.frameID,
		}

		m.lock.Lock()
		m.lastDetection = result
		m.lastImg = rgb
		m.lock.Unlock()

		m.numFramesProcessed.Add(1)
		m.sendToWatchers(result)

		frameTime.AddSample(time.Now().Sub(frameStart))
		if time.Now().Sub(lastStatsAt) > statsLogInterval {
			m.Log.Infof("Processed %v frames, average %.1f ms/frame", frameTime.Samples, float64(frameTime.Average().Microseconds())/1000)
			frameTime.Reset()
			lastStatsAt = time.Now()
		}
	}

	m.nnThreadStopWG.Done()
}

func decodeFrameToRGB(jpeg []byte) (*cimg.Image, error) {
	img, err := cimg.Decompress(jpeg)
	if err != nil {
		return nil, err
	}
	return img.ToRGB(), nil
}

// Return the number of bytes reserved for an RGB image of the given size,
// rounded up to a whole number of pages
func nnImageStride(nnWidth, nnHeight int) int {
	return (nnWidth*nnHeight*3 + nnaccel.PageSize() - 1) & ^(nnaccel.PageSize() - 1)
}
